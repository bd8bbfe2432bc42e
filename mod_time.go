package grassfur

import (
	"time"

	"github.com/gekko3d/grassfur/furrt/rt/shell"
)

// DefaultEditStep is the fixed frame delta used outside play mode.
const DefaultEditStep = time.Second / 60

type Time struct {
	Time     time.Time
	Dt       time.Duration
	Elapsed  time.Duration
	Frame    uint64
	EditStep time.Duration
}

// Mode tells systems whether the app is in play mode. It follows the app
// state on every transition.
type Mode struct {
	Playing bool
}

// FrameContext is the per-frame view handed to shell renderers. Elapsed is
// the time axis of explosion timestamps.
func (t *Time) FrameContext(mode *Mode) shell.FrameContext {
	return shell.FrameContext{
		Time:    float32(t.Elapsed.Seconds()),
		Dt:      float32(t.Dt.Seconds()),
		Playing: mode != nil && mode.Playing,
	}
}

type TimeModule struct {
	EditStep time.Duration
	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

func (mod TimeModule) Install(app *App, cmd *Commands) {
	step := mod.EditStep
	if step <= 0 {
		step = DefaultEditStep
	}
	now := mod.Now
	if now == nil {
		now = time.Now
	}

	cmd.AddResources(&Time{Time: now(), EditStep: step}, &Mode{})
	cmd.UseSystem(System(func(t *Time, mode *Mode) {
		timeSystem(t, mode, now())
	}).InStage(Prelude).RunAlways())

	if app.hasState(PlayMode) {
		cmd.UseSystem(System(enterPlayMode).InState(OnEnter(PlayMode)).InStage(Prelude))
	}
	if app.hasState(EditMode) {
		cmd.UseSystem(System(enterEditMode).InState(OnEnter(EditMode)).InStage(Prelude))
	}
}

// timeSystem advances by the wall clock in play mode and by the fixed edit
// step otherwise, so edit mode runs deterministically.
func timeSystem(t *Time, mode *Mode, now time.Time) {
	if mode.Playing {
		t.Dt = now.Sub(t.Time)
	} else {
		t.Dt = t.EditStep
	}
	t.Time = now
	t.Elapsed += t.Dt
	t.Frame++
}

func enterPlayMode(mode *Mode) { mode.Playing = true }
func enterEditMode(mode *Mode) { mode.Playing = false }
