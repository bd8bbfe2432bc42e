package shell

import (
	"fmt"

	"github.com/gekko3d/grassfur/furrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

// TrackingTextureSize is the edge length of the tracking render target.
const TrackingTextureSize = 256

// UVSpace converts world positions and lengths into an instance's mask UVs.
type UVSpace struct {
	Transform       *core.Transform
	HalfExtents     mgl32.Vec3
	LocalBoundsSize mgl32.Vec3
	Invert          bool
}

func (s UVSpace) Point(world mgl32.Vec3) mgl32.Vec2 {
	return core.WorldToUV(world, s.Transform, s.HalfExtents, s.Invert)
}

func (s UVSpace) Scalar(v float32) float32 {
	return core.WorldScalarToUV(v, s.LocalBoundsSize)
}

// ExplosionOptions are the world-space parameters of an explosion request.
type ExplosionOptions struct {
	Radius          float32
	BlendSmoothness float32
	Intensity01     float32
	ShockDuration   float32
	WiggleDuration  float32
	ImpactCut       float32
	PulsingSpeed    float32
	Easing          *core.EasingCurve
	WiggleEasing    *core.EasingCurve
}

func DefaultExplosionOptions() ExplosionOptions {
	return ExplosionOptions{
		Radius:          10,
		BlendSmoothness: 2,
		Intensity01:     0.2,
		ShockDuration:   0.4,
		WiggleDuration:  1.0,
		ImpactCut:       0.1,
		PulsingSpeed:    5.0,
		Easing:          core.DefaultEasing(),
		WiggleEasing:    core.DefaultEasing(),
	}
}

// SurfaceEffects owns the tracking and explosion state of one renderer.
// It is stepped once per frame by the frame driver.
type SurfaceEffects struct {
	backend   Backend
	material  *Material
	modifiers *core.GlobalModifierSettings
	log       Logger

	tracking    core.TrackingTable
	trackingRT  Texture
	trackingBuf Buffer

	explosions core.ExplosionTable

	trackingOn   bool
	explosionsOn bool
}

func newSurfaceEffects(backend Backend, material *Material, modifiers *core.GlobalModifierSettings, log Logger) *SurfaceEffects {
	return &SurfaceEffects{backend: backend, material: material, modifiers: modifiers, log: log}
}

// Setup enables the effects whose feature keyword is set on the material.
// The tracking target is created and cleared here.
func (e *SurfaceEffects) Setup() error {
	e.Stop()

	if e.material.IsFeatureEnabled(FeatureExplosions) {
		e.explosions.Reset()
		e.explosionsOn = true
	}
	if !e.material.IsFeatureEnabled(FeatureTracking) {
		return nil
	}

	rt, err := e.backend.CreateRenderTexture("TrackingRT", TrackingTextureSize, TrackingTextureSize)
	if err != nil {
		return fmt.Errorf("tracking target: %w", err)
	}
	buf, err := e.backend.CreateBuffer("TrackingMarks", core.MaxTrackingMarks*core.TrackingMarkStride, BufferUsageStorage)
	if err != nil {
		rt.Release()
		return fmt.Errorf("tracking marks: %w", err)
	}
	e.trackingRT, e.trackingBuf = rt, buf

	if err := e.blitThroughTemp(PassMotionClear, nil); err != nil {
		e.stopTracking()
		return fmt.Errorf("tracking clear: %w", err)
	}
	e.tracking.Clear()
	e.trackingOn = true
	return nil
}

func (e *SurfaceEffects) TrackingEnabled() bool   { return e.trackingOn }
func (e *SurfaceEffects) ExplosionsEnabled() bool { return e.explosionsOn }
func (e *SurfaceEffects) TrackingTexture() Texture {
	return e.trackingRT
}

// RequestMark queues a tracking mark for the next StepTracking.
func (e *SurfaceEffects) RequestMark(space UVSpace, worldPos mgl32.Vec3, radius, cutRadius, smoothness, cutHeight float32) bool {
	if !e.trackingOn {
		return false
	}
	mult := e.modifiers.MultiplyTrackingRadius()
	return e.tracking.Request(core.TrackingMark{
		UV:         space.Point(worldPos),
		Radius:     space.Scalar(radius) * mult,
		CutRadius:  space.Scalar(cutRadius) * mult,
		Smoothness: space.Scalar(smoothness),
		CutHeight:  cutHeight,
	})
}

// RequestExplosion starts an explosion at worldPos. now is the frame time.
func (e *SurfaceEffects) RequestExplosion(space UVSpace, worldPos mgl32.Vec3, opts ExplosionOptions, now float32) bool {
	if !e.explosionsOn {
		return false
	}
	return e.explosions.Request(core.ExplosionEvent{
		UV:              space.Point(worldPos),
		Radius:          space.Scalar(opts.Radius),
		BlendSmoothness: space.Scalar(opts.BlendSmoothness),
		Intensity01:     opts.Intensity01,
		ImpactCut:       opts.ImpactCut,
		ShockDuration:   opts.ShockDuration,
		WiggleDuration:  opts.WiggleDuration,
		PulsingSpeed:    opts.PulsingSpeed,
		Easing:          opts.Easing,
		WiggleEasing:    opts.WiggleEasing,
	}, now)
}

// StepTracking stamps every queued mark into the tracking target in a single
// blit and frees all slots. Frames without marks do nothing.
func (e *SurfaceEffects) StepTracking() error {
	if !e.trackingOn || !e.tracking.Occupied() {
		return nil
	}
	if err := e.backend.WriteBuffer(e.trackingBuf, 0, e.tracking.Marshal()); err != nil {
		return fmt.Errorf("tracking upload: %w", err)
	}
	if err := e.blitThroughTemp(PassTrackingDirectSet, e.trackingBuf); err != nil {
		return fmt.Errorf("tracking blit: %w", err)
	}
	e.material.SetTexture(TextureTracking, e.trackingRT)
	e.tracking.Clear()
	return nil
}

// StepExplosions advances every explosion by dt and publishes both packed
// arrays to the material.
func (e *SurfaceEffects) StepExplosions(frame FrameContext) {
	if !e.explosionsOn {
		return
	}
	e.explosions.Step(frame.Dt, e.modifiers.MultiplyExplosionIntensity())
	e.material.SetExplosionData(e.explosions.Data0(), e.explosions.Data1())
}

func (e *SurfaceEffects) PendingMarks() int     { return e.tracking.Count() }
func (e *SurfaceEffects) ActiveExplosions() int { return e.explosions.ActiveCount() }

// Stop drops all effect state and releases the tracking resources.
func (e *SurfaceEffects) Stop() {
	e.stopTracking()
	e.explosions.Reset()
	e.explosionsOn = false
}

func (e *SurfaceEffects) stopTracking() {
	if e.trackingRT != nil {
		e.trackingRT.Release()
		e.trackingRT = nil
	}
	if e.trackingBuf != nil {
		e.trackingBuf.Release()
		e.trackingBuf = nil
	}
	e.tracking.Clear()
	e.trackingOn = false
}

func (e *SurfaceEffects) blitThroughTemp(pass BlitPass, marks Buffer) error {
	tmp, err := e.backend.CreateRenderTexture("TrackingTemp", e.trackingRT.Width(), e.trackingRT.Height())
	if err != nil {
		return err
	}
	defer tmp.Release()

	if err := e.backend.Blit(BlitRequest{Pass: pass, Source: e.trackingRT, Dest: tmp, Marks: marks}); err != nil {
		return err
	}
	return e.backend.CopyTexture(tmp, e.trackingRT)
}
