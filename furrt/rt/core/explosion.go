package core

import (
	"encoding/binary"
	"math"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const MaxExplosions = 8

// ExplosionEvent is a radial shockwave in UV space followed by a shell wiggle.
// Time counts down from MaxTime; the event is inactive once it reaches zero.
type ExplosionEvent struct {
	UV              mgl32.Vec2
	Radius          float32
	BlendSmoothness float32
	Intensity01     float32
	ImpactCut       float32
	ShockDuration   float32
	WiggleDuration  float32
	PulsingSpeed    float32
	Easing          *EasingCurve
	WiggleEasing    *EasingCurve

	Time      float32
	MaxTime   float32
	StartTime float32
}

// NewExplosionEvent fills in default curves and arms the countdown.
func NewExplosionEvent(ev ExplosionEvent) ExplosionEvent {
	if ev.Easing == nil {
		ev.Easing = DefaultEasing()
	}
	if ev.WiggleEasing == nil {
		ev.WiggleEasing = DefaultEasing()
	}
	ev.MaxTime = math32.Max(ev.ShockDuration, ev.WiggleDuration)
	ev.Time = ev.MaxTime
	return ev
}

func (e *ExplosionEvent) Active() bool { return e.Time > 0 }

// Elapsed is the time since the event was requested.
func (e *ExplosionEvent) Elapsed() float32 { return e.MaxTime - e.Time }

// EasingInputs returns the normalized shockwave and wiggle progress fed to
// the two easing curves.
func (e *ExplosionEvent) EasingInputs() (shock, wiggle float32) {
	t := e.Elapsed()
	return progress(t, e.ShockDuration), progress(t, e.WiggleDuration)
}

func progress(t, duration float32) float32 {
	if duration <= 0 {
		return 1
	}
	return Clamp01(t / duration)
}

// ExplosionTable holds up to MaxExplosions concurrent events plus the
// per-slot packed arrays uploaded to the material.
type ExplosionTable struct {
	events [MaxExplosions]ExplosionEvent
	data0  [MaxExplosions]mgl32.Vec4
	data1  [MaxExplosions]mgl32.Vec4
}

// Request writes ev into the first slot whose time has run out. now is
// recorded as the start time in data1.
func (t *ExplosionTable) Request(ev ExplosionEvent, now float32) bool {
	ev = NewExplosionEvent(ev)
	if !ev.Active() {
		return false
	}
	for i := range t.events {
		if t.events[i].Active() {
			continue
		}
		ev.StartTime = now
		t.events[i] = ev
		t.data1[i] = mgl32.Vec4{now, ev.BlendSmoothness, ev.ImpactCut, ev.PulsingSpeed}
		return true
	}
	return false
}

// Step packs data0 for each active slot from its current progress, then
// advances the countdown by dt. Free slots are written as zeros.
func (t *ExplosionTable) Step(dt, intensityMultiplier float32) {
	for i := range t.events {
		ev := &t.events[i]
		if !ev.Active() {
			t.data0[i] = mgl32.Vec4{}
			continue
		}
		shock, wiggle := ev.EasingInputs()
		expt := ev.Easing.Evaluate(shock)
		wigt := ev.WiggleEasing.Evaluate(wiggle)
		t.data0[i] = mgl32.Vec4{
			ev.UV[0], ev.UV[1],
			ev.Radius * expt,
			ev.Intensity01 * intensityMultiplier * (1 - wigt),
		}

		ev.Time -= dt
		if ev.Time <= 0 {
			ev.Time = 0
		}
	}
}

func (t *ExplosionTable) Event(i int) (ExplosionEvent, bool) {
	if i < 0 || i >= MaxExplosions {
		return ExplosionEvent{}, false
	}
	return t.events[i], t.events[i].Active()
}

func (t *ExplosionTable) ActiveCount() int {
	n := 0
	for i := range t.events {
		if t.events[i].Active() {
			n++
		}
	}
	return n
}

func (t *ExplosionTable) Data0() [MaxExplosions]mgl32.Vec4 { return t.data0 }
func (t *ExplosionTable) Data1() [MaxExplosions]mgl32.Vec4 { return t.data1 }

func (t *ExplosionTable) Reset() {
	*t = ExplosionTable{}
}

// MarshalVec4s packs a vec4 array as little-endian float32.
func MarshalVec4s(vs []mgl32.Vec4) []byte {
	buf := make([]byte, len(vs)*16)
	for i, v := range vs {
		for j := 0; j < 4; j++ {
			binary.LittleEndian.PutUint32(buf[i*16+j*4:], math.Float32bits(v[j]))
		}
	}
	return buf
}
