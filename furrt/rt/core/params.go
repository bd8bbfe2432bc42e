package core

import (
	"github.com/chewxy/math32"
)

const (
	MinDensity = 1
	MaxDensity = 128
	MinOffset  = 1.0e-5

	MinMotionShellInfluence = 0.01
	MaxMotionShellInfluence = 16.0

	MinGlobalMultiplier = 0.1
	MaxGlobalMultiplier = 16.0

	DefaultDensity              = 32
	DefaultOffset               = 1.0
	DefaultMotionShellInfluence = 2.0
	DefaultMotionIntensity      = 128.0
)

// ShellParameters drive the expansion kernel. Fields are only changed
// through the setters, which keep every value inside its valid range and
// report whether the requested value had to be altered.
type ShellParameters struct {
	density              int
	offset               float32
	motionShellInfluence float32
	motionIntensity      float32
	skinScale            float32
	skinMotionVectors    bool
}

func DefaultShellParameters() ShellParameters {
	return ShellParameters{
		density:              DefaultDensity,
		offset:               DefaultOffset,
		motionShellInfluence: DefaultMotionShellInfluence,
		motionIntensity:      DefaultMotionIntensity,
		skinScale:            1,
	}
}

func (p ShellParameters) Density() int                  { return p.density }
func (p ShellParameters) Offset() float32               { return p.offset }
func (p ShellParameters) MotionShellInfluence() float32 { return p.motionShellInfluence }
func (p ShellParameters) MotionIntensity() float32      { return p.motionIntensity }
func (p ShellParameters) SkinScale() float32            { return p.skinScale }
func (p ShellParameters) SkinMotionVectors() bool       { return p.skinMotionVectors }

func (p *ShellParameters) SetDensity(d int) (int, bool) {
	v := d
	if v < MinDensity {
		v = MinDensity
	} else if v > MaxDensity {
		v = MaxDensity
	}
	p.density = v
	return v, v != d
}

func (p *ShellParameters) SetOffset(o float32) (float32, bool) {
	v := math32.Max(MinOffset, o)
	if math32.IsNaN(o) {
		v = MinOffset
	}
	p.offset = v
	return v, v != o
}

func (p *ShellParameters) SetMotionShellInfluence(s float32) (float32, bool) {
	v := Clamp(s, MinMotionShellInfluence, MaxMotionShellInfluence)
	p.motionShellInfluence = v
	return v, v != s
}

func (p *ShellParameters) SetMotionIntensity(i float32) (float32, bool) {
	v := math32.Abs(i)
	p.motionIntensity = v
	return v, v != i
}

func (p *ShellParameters) SetSkinScale(s float32) (float32, bool) {
	v := math32.Abs(s)
	p.skinScale = v
	return v, v != s
}

func (p *ShellParameters) SetSkinMotionVectors(enabled bool) {
	p.skinMotionVectors = enabled
}

// GlobalModifierSettings are shared by every spatial conversion of an
// instance (tracking, explosions, painting).
type GlobalModifierSettings struct {
	// InvertUV flips converted coordinates to 1-uv.
	InvertUV bool

	trackingRadius     float32
	explosionIntensity float32
}

func NewGlobalModifierSettings() *GlobalModifierSettings {
	return &GlobalModifierSettings{trackingRadius: 1, explosionIntensity: 1}
}

func (g *GlobalModifierSettings) MultiplyTrackingRadius() float32 {
	if g.trackingRadius == 0 {
		return 1
	}
	return g.trackingRadius
}

func (g *GlobalModifierSettings) MultiplyExplosionIntensity() float32 {
	if g.explosionIntensity == 0 {
		return 1
	}
	return g.explosionIntensity
}

func (g *GlobalModifierSettings) SetMultiplyTrackingRadius(v float32) (float32, bool) {
	c := Clamp(v, MinGlobalMultiplier, MaxGlobalMultiplier)
	g.trackingRadius = c
	return c, c != v
}

func (g *GlobalModifierSettings) SetMultiplyExplosionIntensity(v float32) (float32, bool) {
	c := Clamp(v, MinGlobalMultiplier, MaxGlobalMultiplier)
	g.explosionIntensity = c
	return c, c != v
}

func Clamp(v, lo, hi float32) float32 {
	if math32.IsNaN(v) {
		return lo
	}
	return math32.Min(math32.Max(v, lo), hi)
}

func Clamp01(v float32) float32 { return Clamp(v, 0, 1) }
