package shell

import (
	"errors"
	"testing"

	"github.com/gekko3d/grassfur/furrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffects_DisabledInEditMode(t *testing.T) {
	be := newFakeBackend()
	r := newCubeRenderer(t, be, FeatureTracking, FeatureExplosions)
	require.NoError(t, r.Initialize(editFrame))

	assert.False(t, r.RequestTrackingMark(mgl32.Vec3{}, 1, 1, 0, 0))
	assert.False(t, r.RequestExplosion(mgl32.Vec3{}, DefaultExplosionOptions()))
	assert.Empty(t, be.textures)
}

func TestEffects_DisabledWithoutFeature(t *testing.T) {
	r := newCubeRenderer(t, newFakeBackend())
	require.NoError(t, r.Initialize(playFrame))
	assert.False(t, r.RequestTrackingMark(mgl32.Vec3{}, 1, 1, 0, 0))
	assert.False(t, r.RequestExplosion(mgl32.Vec3{}, DefaultExplosionOptions()))
}

func TestEffects_TrackingSetupClearsTarget(t *testing.T) {
	be := newFakeBackend()
	r := newCubeRenderer(t, be, FeatureTracking)
	require.NoError(t, r.Initialize(playFrame))

	require.Len(t, be.blits, 1)
	assert.Equal(t, PassMotionClear, be.blits[0].Pass)
	assert.Equal(t, 1, be.copies)

	rt := r.Effects().TrackingTexture()
	require.NotNil(t, rt)
	assert.Equal(t, TrackingTextureSize, rt.Width())
	assert.Equal(t, TrackingTextureSize, rt.Height())
}

func TestEffects_TrackingTargetFailureKeepsRendering(t *testing.T) {
	be := newFakeBackend()
	be.failRT = errors.New("out of device memory")
	log := &recLogger{}
	r := NewRenderer(RendererOptions{
		Backend:  be,
		Material: NewMaterial("fur", FeatureTracking, FeatureExplosions),
		Mesh:     core.NewCubeMesh(2),
		Logger:   log,
	})

	require.NoError(t, r.Initialize(playFrame))
	assert.Equal(t, StateInitialized, r.State())
	assert.Len(t, be.draws, 1)
	require.Len(t, log.warnings, 1)
	assert.Contains(t, log.warnings[0], "out of device memory")

	// tracking stays off, explosions still work
	assert.False(t, r.Effects().TrackingEnabled())
	assert.False(t, r.RequestTrackingMark(mgl32.Vec3{}, 1, 1, 0, 0))
	assert.True(t, r.RequestExplosion(mgl32.Vec3{}, DefaultExplosionOptions()))
	require.NoError(t, r.StepEffects(playFrame))

	require.NoError(t, r.Render(playFrame, false))
	assert.Len(t, be.draws, 2)
}

func TestEffects_TrackingSingleCycle(t *testing.T) {
	be := newFakeBackend()
	r := newCubeRenderer(t, be, FeatureTracking)
	require.NoError(t, r.Initialize(playFrame))
	be.blits = nil

	// nothing queued: no blit
	require.NoError(t, r.StepEffects(playFrame))
	assert.Empty(t, be.blits)

	require.True(t, r.RequestTrackingMark(mgl32.Vec3{0, 0, 0}, 1, 0.5, 0.2, 0.3))
	require.NoError(t, r.StepEffects(playFrame))

	require.Len(t, be.blits, 1)
	assert.Equal(t, PassTrackingDirectSet, be.blits[0].Pass)
	assert.Equal(t, r.Effects().TrackingTexture(), r.Material().Texture(TextureTracking))

	marks := be.buffer("TrackingMarks")
	require.NotNil(t, marks)
	// cube of size 2: half extents 1, local bounds 4 across
	assert.InDelta(t, 0.5, f32At(marks.data, 0), 1e-6)
	assert.InDelta(t, 0.5, f32At(marks.data, 4), 1e-6)
	assert.InDelta(t, 0.25, f32At(marks.data, 8), 1e-6)
	assert.InDelta(t, 0.125, f32At(marks.data, 12), 1e-6)
	assert.InDelta(t, 0.05, f32At(marks.data, 16), 1e-6)
	assert.InDelta(t, 0.3, f32At(marks.data, 20), 1e-6)

	// consumed: the next frame does nothing
	assert.Equal(t, 0, r.Effects().PendingMarks())
	require.NoError(t, r.StepEffects(playFrame))
	assert.Len(t, be.blits, 1)
}

func TestEffects_TrackingRadiusMultiplier(t *testing.T) {
	be := newFakeBackend()
	r := newCubeRenderer(t, be, FeatureTracking)
	r.Modifiers().SetMultiplyTrackingRadius(2)
	r.Modifiers().InvertUV = true
	require.NoError(t, r.Initialize(playFrame))

	require.True(t, r.RequestTrackingMark(mgl32.Vec3{1, 0, 1}, 1, 1, 1, 0))
	mark, ok := trackingSlot0(r)
	require.True(t, ok)
	assert.InDelta(t, 0, mark.UV.X(), 1e-6)
	assert.InDelta(t, 0, mark.UV.Y(), 1e-6)
	assert.InDelta(t, 0.5, mark.Radius, 1e-6)
	assert.InDelta(t, 0.5, mark.CutRadius, 1e-6)
	assert.InDelta(t, 0.25, mark.Smoothness, 1e-6)
}

func trackingSlot0(r *Renderer) (core.TrackingMark, bool) {
	return r.Effects().tracking.Slot(0)
}

func TestEffects_SeventeenthMarkDropped(t *testing.T) {
	r := newCubeRenderer(t, newFakeBackend(), FeatureTracking)
	require.NoError(t, r.Initialize(playFrame))

	for i := 0; i < core.MaxTrackingMarks; i++ {
		require.True(t, r.RequestTrackingMark(mgl32.Vec3{}, 1, 1, 0, 0))
	}
	assert.False(t, r.RequestTrackingMark(mgl32.Vec3{}, 1, 1, 0, 0))
	assert.Equal(t, core.MaxTrackingMarks, r.Effects().PendingMarks())

	require.NoError(t, r.StepEffects(playFrame))
	assert.True(t, r.RequestTrackingMark(mgl32.Vec3{}, 1, 1, 0, 0))
}

func TestEffects_ExplosionLifecycle(t *testing.T) {
	r := newCubeRenderer(t, newFakeBackend(), FeatureExplosions)
	frame := FrameContext{Time: 5, Dt: 0.1, Playing: true}
	require.NoError(t, r.Initialize(frame))

	opts := DefaultExplosionOptions()
	opts.Radius = 2
	opts.Intensity01 = 0.5
	require.True(t, r.RequestExplosion(mgl32.Vec3{}, opts))

	assert.Equal(t, mgl32.Vec4{5, 0.5, 0.1, 5}, r.Effects().explosions.Data1()[0])

	for i := 0; i < 6; i++ {
		require.NoError(t, r.StepEffects(frame))
	}
	// after 0.6s the shockwave is complete and the wiggle is at 0.5
	d0 := r.Material().Explosions0[0]
	assert.InDelta(t, 0.5, d0.Z(), 1e-5)
	assert.InDelta(t, 0.5*(1-0.5), d0.W(), 1e-5)

	ev, active := r.Effects().explosions.Event(0)
	require.True(t, active)
	shock, wiggle := ev.EasingInputs()
	assert.InDelta(t, 1.0, shock, 1e-5)
	assert.InDelta(t, 0.6, wiggle, 1e-5)

	// runs out during the fifth step, the sixth writes the cleared slot
	for i := 0; i < 6; i++ {
		require.NoError(t, r.StepEffects(frame))
	}
	assert.Equal(t, 0, r.Effects().ActiveExplosions())
	assert.Equal(t, mgl32.Vec4{}, r.Material().Explosions0[0])
}

func TestEffects_NinthExplosionThenReuse(t *testing.T) {
	r := newCubeRenderer(t, newFakeBackend(), FeatureExplosions)
	require.NoError(t, r.Initialize(playFrame))

	for i := 0; i < core.MaxExplosions; i++ {
		require.True(t, r.RequestExplosion(mgl32.Vec3{}, DefaultExplosionOptions()))
	}
	assert.False(t, r.RequestExplosion(mgl32.Vec3{}, DefaultExplosionOptions()))

	require.NoError(t, r.StepEffects(FrameContext{Time: 2, Dt: 1.5, Playing: true}))
	assert.True(t, r.RequestExplosion(mgl32.Vec3{}, DefaultExplosionOptions()))
	assert.Equal(t, 1, r.Effects().ActiveExplosions())
}

func TestEffects_ExplosionIntensityMultiplier(t *testing.T) {
	r := newCubeRenderer(t, newFakeBackend(), FeatureExplosions)
	r.Modifiers().SetMultiplyExplosionIntensity(4)
	require.NoError(t, r.Initialize(playFrame))

	opts := DefaultExplosionOptions()
	opts.Intensity01 = 0.25
	require.True(t, r.RequestExplosion(mgl32.Vec3{}, opts))
	require.NoError(t, r.StepEffects(playFrame))
	assert.InDelta(t, 1.0, r.Material().Explosions0[0].W(), 1e-6)
}

func TestEffects_ReinitializeResetsState(t *testing.T) {
	be := newFakeBackend()
	r := newCubeRenderer(t, be, FeatureTracking, FeatureExplosions)
	require.NoError(t, r.Initialize(playFrame))
	require.True(t, r.RequestExplosion(mgl32.Vec3{}, DefaultExplosionOptions()))
	require.True(t, r.RequestTrackingMark(mgl32.Vec3{}, 1, 1, 0, 0))
	oldRT := r.Effects().TrackingTexture().(*fakeTexture)

	r.SetDensity(8)
	assert.Equal(t, 0, r.Effects().ActiveExplosions())
	assert.Equal(t, 0, r.Effects().PendingMarks())
	assert.Equal(t, 1, oldRT.released)
	assert.NotEqual(t, Texture(oldRT), r.Effects().TrackingTexture())
}
