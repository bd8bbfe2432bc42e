package core

import (
	"sort"

	"github.com/chewxy/math32"
)

// Keyframe is one control point of an EasingCurve with Hermite tangents.
type Keyframe struct {
	Time       float32
	Value      float32
	InTangent  float32
	OutTangent float32
}

// EasingCurve is a piecewise cubic Hermite curve. Evaluation outside the key
// range clamps to the first/last value.
type EasingCurve struct {
	keys []Keyframe
}

func NewEasingCurve(keys ...Keyframe) *EasingCurve {
	c := &EasingCurve{keys: append([]Keyframe(nil), keys...)}
	sort.Slice(c.keys, func(i, j int) bool { return c.keys[i].Time < c.keys[j].Time })
	return c
}

// LinearCurve goes from (t0,v0) to (t1,v1) in a straight line.
func LinearCurve(t0, v0, t1, v1 float32) *EasingCurve {
	if t0 == t1 {
		return NewEasingCurve(Keyframe{Time: t0, Value: v1})
	}
	slope := (v1 - v0) / (t1 - t0)
	return NewEasingCurve(
		Keyframe{Time: t0, Value: v0, InTangent: 0, OutTangent: slope},
		Keyframe{Time: t1, Value: v1, InTangent: slope, OutTangent: 0},
	)
}

// EaseInOutCurve is a smoothstep between (t0,v0) and (t1,v1).
func EaseInOutCurve(t0, v0, t1, v1 float32) *EasingCurve {
	return NewEasingCurve(
		Keyframe{Time: t0, Value: v0},
		Keyframe{Time: t1, Value: v1},
	)
}

// DefaultEasing is the linear 0..1 curve used when none is supplied.
func DefaultEasing() *EasingCurve { return LinearCurve(0, 0, 1, 1) }

func (c *EasingCurve) Keys() []Keyframe { return c.keys }

func (c *EasingCurve) Evaluate(t float32) float32 {
	if c == nil || len(c.keys) == 0 {
		return 0
	}
	first, last := c.keys[0], c.keys[len(c.keys)-1]
	if t <= first.Time {
		return first.Value
	}
	if t >= last.Time {
		return last.Value
	}

	i := sort.Search(len(c.keys), func(i int) bool { return c.keys[i].Time > t })
	k0, k1 := c.keys[i-1], c.keys[i]
	dt := k1.Time - k0.Time
	if dt <= 0 {
		return k1.Value
	}
	s := (t - k0.Time) / dt

	s2 := s * s
	s3 := s2 * s
	h00 := 2*s3 - 3*s2 + 1
	h10 := s3 - 2*s2 + s
	h01 := -2*s3 + 3*s2
	h11 := s3 - s2

	v := h00*k0.Value + h10*dt*k0.OutTangent + h01*k1.Value + h11*dt*k1.InTangent
	if math32.IsNaN(v) {
		return k0.Value
	}
	return v
}
