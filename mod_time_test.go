package grassfur

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func timeResources(t *testing.T, app *App) (*Time, *Mode) {
	t.Helper()
	tm, ok := findResource[*Time](app)
	require.True(t, ok)
	mode, ok := findResource[*Mode](app)
	require.True(t, ok)
	return tm, mode
}

func TestTime_EditModeUsesFixedStep(t *testing.T) {
	app := NewAppBuilder().
		UseStates(EditMode, Exiting).
		UseModule(TimeModule{EditStep: 20 * time.Millisecond, Now: fixedClock()}).
		Build()

	app.RunFrames(3)
	tm, mode := timeResources(t, app)
	assert.False(t, mode.Playing)
	assert.Equal(t, uint64(3), tm.Frame)
	assert.Equal(t, 20*time.Millisecond, tm.Dt)
	assert.Equal(t, 60*time.Millisecond, tm.Elapsed)

	frame := tm.FrameContext(mode)
	assert.False(t, frame.Playing)
	assert.InDelta(t, 0.06, frame.Time, 1e-6)
	assert.InDelta(t, 0.02, frame.Dt, 1e-6)
}

func TestTime_PlayModeUsesClock(t *testing.T) {
	app := NewAppBuilder().
		UseStates(EditMode, Exiting).
		UseModule(TimeModule{Now: fixedClock()}).
		Build()

	app.Commands().ChangeState(PlayMode)
	app.RunFrames(1)
	tm, mode := timeResources(t, app)
	require.True(t, mode.Playing)
	assert.Equal(t, DefaultEditStep, tm.Dt)

	app.RunFrames(2)
	assert.Equal(t, 10*time.Millisecond, tm.Dt)
	assert.True(t, tm.FrameContext(mode).Playing)
}

func TestTime_StatelessApp(t *testing.T) {
	app := NewAppBuilder().UseModule(TimeModule{Now: fixedClock()}).Build()
	app.RunFrames(2)
	tm, mode := timeResources(t, app)
	assert.False(t, mode.Playing)
	assert.Equal(t, uint64(2), tm.Frame)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "play", PlayMode.String())
	assert.Equal(t, "State(9)", State(9).String())
}
