package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEasingCurve_Linear(t *testing.T) {
	c := DefaultEasing()
	for _, x := range []float32{0, 0.25, 0.5, 0.9, 1} {
		assert.InDelta(t, x, c.Evaluate(x), 1e-5)
	}
	assert.Equal(t, float32(0), c.Evaluate(-1))
	assert.Equal(t, float32(1), c.Evaluate(2))
}

func TestEasingCurve_EaseInOut(t *testing.T) {
	c := EaseInOutCurve(0, 0, 1, 1)
	assert.InDelta(t, 0.5, c.Evaluate(0.5), 1e-5)
	assert.Less(t, c.Evaluate(0.25), float32(0.25))
	assert.Greater(t, c.Evaluate(0.75), float32(0.75))
}

func TestEasingCurve_Empty(t *testing.T) {
	var c *EasingCurve
	assert.Equal(t, float32(0), c.Evaluate(0.5))
	assert.Equal(t, float32(0), NewEasingCurve().Evaluate(0.5))
}
