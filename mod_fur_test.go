package grassfur

import (
	"errors"
	"testing"
	"time"

	"github.com/gekko3d/grassfur/furrt/rt/core"
	"github.com/gekko3d/grassfur/furrt/rt/shell"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() func() time.Time {
	now := time.Unix(0, 0)
	return func() time.Time {
		now = now.Add(10 * time.Millisecond)
		return now
	}
}

func newFurApp(t *testing.T, initial State) (*App, *recBackend) {
	t.Helper()
	be := &recBackend{}
	app := NewAppBuilder().
		UseStates(initial, Exiting).
		UseModule(
			TimeModule{Now: fixedClock()},
			backendModule{backend: be},
			FurModule{},
		).
		Build()
	return app, be
}

func spawnCube(app *App, features ...shell.Feature) uuid.UUID {
	id := app.Commands().SpawnFur(FurSpec{
		Name:     "cube",
		Material: shell.NewMaterial("fur", features...),
		Mesh:     core.NewCubeMesh(2),
	})
	app.FlushCommands()
	return id
}

func furWorld(t *testing.T, app *App) *FurWorld {
	t.Helper()
	w, ok := findResource[*FurWorld](app)
	require.True(t, ok)
	return w
}

func TestFur_SpawnIsDeferredUntilFlush(t *testing.T) {
	app, _ := newFurApp(t, EditMode)
	w := furWorld(t, app)

	id := app.Commands().SpawnFur(FurSpec{Material: shell.NewMaterial("fur"), Mesh: core.NewCubeMesh(1)})
	assert.Equal(t, 0, w.Len())

	app.FlushCommands()
	require.Equal(t, 1, w.Len())
	inst, ok := w.Get(id)
	require.True(t, ok)
	assert.False(t, inst.Activated())
	assert.True(t, inst.Visible)
}

func TestFur_EditModeRebuildsEveryFrame(t *testing.T) {
	app, be := newFurApp(t, EditMode)
	id := spawnCube(app)

	app.RunFrames(1)
	inst, _ := furWorld(t, app).Get(id)
	assert.True(t, inst.Activated())
	// activation plus the forced edit rebuild
	assert.Len(t, be.dispatches, 2)
	assert.Len(t, be.draws, 2)

	app.RunFrames(1)
	assert.Len(t, be.dispatches, 3)
	assert.Len(t, be.draws, 3)
}

func TestFur_PlayModeDrawsWithoutRebuild(t *testing.T) {
	app, be := newFurApp(t, EditMode)
	spawnCube(app)
	app.RunFrames(1)

	app.Commands().ChangeState(PlayMode)
	app.RunFrames(1)
	assert.Equal(t, PlayMode, app.State())
	assert.Len(t, be.dispatches, 3)

	// reactivation after the mode change
	app.RunFrames(1)
	assert.Len(t, be.dispatches, 4)
	assert.Len(t, be.draws, 5)

	app.RunFrames(1)
	assert.Len(t, be.dispatches, 4)
	assert.Len(t, be.draws, 6)
}

func TestFur_SkinnedWaitsOneFrameInPlayMode(t *testing.T) {
	app, be := newFurApp(t, PlayMode)
	skin, err := shell.NewSkinnedMesh(be, core.NewCubeMesh(2), nil)
	require.NoError(t, err)

	id := app.Commands().SpawnFur(FurSpec{Material: shell.NewMaterial("fur"), Skin: skin})
	app.FlushCommands()
	w := furWorld(t, app)

	app.RunFrames(1)
	inst, _ := w.Get(id)
	assert.False(t, inst.Activated())
	assert.Empty(t, be.dispatches)

	app.RunFrames(1)
	assert.True(t, inst.Activated())
	require.Len(t, be.dispatches, 2)
	assert.Equal(t, shell.KernelSkinned16, be.dispatches[1].Variant)
	assert.Len(t, be.draws, 2)
}

func TestFur_HiddenSkinnedIsNotDrawn(t *testing.T) {
	app, be := newFurApp(t, PlayMode)
	skin, err := shell.NewSkinnedMesh(be, core.NewCubeMesh(2), nil)
	require.NoError(t, err)

	app.Commands().SpawnFur(FurSpec{Material: shell.NewMaterial("fur"), Skin: skin, Hidden: true})
	app.FlushCommands()

	app.RunFrames(3)
	// the activation draw only
	assert.Len(t, be.draws, 1)
}

func TestFur_MissingKernelIsRetried(t *testing.T) {
	app, be := newFurApp(t, EditMode)
	be.noKernel = true
	id := spawnCube(app)

	app.RunFrames(2)
	inst, _ := furWorld(t, app).Get(id)
	assert.False(t, inst.Activated())
	assert.False(t, inst.failed)

	be.noKernel = false
	app.RunFrames(1)
	assert.True(t, inst.Activated())
}

func TestFur_InvalidMeshFailsOnce(t *testing.T) {
	app, be := newFurApp(t, EditMode)
	empty := core.NewMesh("empty", nil, nil, nil, nil)
	id := app.Commands().SpawnFur(FurSpec{Material: shell.NewMaterial("fur"), Mesh: empty})
	app.FlushCommands()

	app.RunFrames(3)
	inst, _ := furWorld(t, app).Get(id)
	assert.True(t, inst.failed)
	assert.Empty(t, be.dispatches)
}

func TestFur_DespawnDisposes(t *testing.T) {
	app, be := newFurApp(t, EditMode)
	id := spawnCube(app)
	app.RunFrames(1)
	require.Positive(t, be.live())

	app.Commands().DespawnFur(id)
	app.FlushCommands()
	assert.Equal(t, 0, furWorld(t, app).Len())
	assert.Equal(t, 0, be.live())
}

func TestFur_ExitingDisposesAll(t *testing.T) {
	app, be := newFurApp(t, EditMode)
	spawnCube(app)
	spawnCube(app)
	app.RunFrames(1)

	app.Commands().ChangeState(Exiting)
	assert.False(t, app.RunFrames(1))
	assert.Equal(t, 0, furWorld(t, app).Len())
	assert.Equal(t, 0, be.live())
}

func TestFur_TrackingStepsInPlayMode(t *testing.T) {
	app, be := newFurApp(t, PlayMode)
	id := spawnCube(app, shell.FeatureTracking)
	w := furWorld(t, app)

	app.RunFrames(1)
	setupBlits := be.blits
	require.Equal(t, 1, setupBlits)

	require.True(t, w.RequestTrackingMark(id, mgl32.Vec3{0, 0, 0}, 0.5, 0.25, 0.1, 0))
	app.RunFrames(1)
	assert.Equal(t, setupBlits+1, be.blits)

	app.RunFrames(1)
	assert.Equal(t, setupBlits+1, be.blits)
}

func TestFur_RequestsOnUnknownInstance(t *testing.T) {
	app, _ := newFurApp(t, EditMode)
	w := furWorld(t, app)
	assert.False(t, w.RequestExplosion(uuid.New(), mgl32.Vec3{}, shell.DefaultExplosionOptions()))
	assert.False(t, w.RequestTrackingMark(uuid.New(), mgl32.Vec3{}, 1, 1, 1, 0))
}

func TestFur_MaterialSuppliedLater(t *testing.T) {
	app, be := newFurApp(t, EditMode)
	w := furWorld(t, app)
	id := app.Commands().SpawnFur(FurSpec{Name: "bare", Mesh: core.NewCubeMesh(2)})
	app.FlushCommands()

	app.RunFrames(3)
	inst, ok := w.Get(id)
	require.True(t, ok)
	assert.False(t, inst.Activated())
	assert.False(t, inst.failed)
	assert.Empty(t, be.dispatches)

	require.True(t, w.SetMaterial(id, shell.NewMaterial("fur")))
	app.RunFrames(1)
	assert.True(t, inst.Activated())
	assert.NotEmpty(t, be.dispatches)
	assert.NotEmpty(t, be.draws)

	assert.False(t, w.SetMaterial(uuid.New(), shell.NewMaterial("fur")))
}

func TestFur_MeshSuppliedLater(t *testing.T) {
	app, be := newFurApp(t, EditMode)
	w := furWorld(t, app)
	id := app.Commands().SpawnFur(FurSpec{Material: shell.NewMaterial("fur")})
	app.FlushCommands()

	app.RunFrames(2)
	inst, _ := w.Get(id)
	assert.False(t, inst.Activated())

	require.True(t, w.SetMesh(id, core.NewCubeMesh(1), nil))
	app.RunFrames(1)
	assert.True(t, inst.Activated())
	assert.NotEmpty(t, be.draws)
}

func TestFur_BackendResolvedAtActivation(t *testing.T) {
	app := NewAppBuilder().
		UseStates(EditMode, Exiting).
		UseModule(TimeModule{Now: fixedClock()}, FurModule{}).
		Build()
	w := furWorld(t, app)
	id := spawnCube(app)

	app.RunFrames(2)
	inst, ok := w.Get(id)
	require.True(t, ok)
	assert.False(t, inst.Activated())
	assert.False(t, inst.failed)

	be := &recBackend{}
	app.Commands().AddResources(be)
	app.RunFrames(1)
	assert.True(t, inst.Activated())
	assert.NotEmpty(t, be.draws)
}

func TestFur_TrackingTargetFailureKeepsInstance(t *testing.T) {
	app, be := newFurApp(t, PlayMode)
	be.failRT = errors.New("out of device memory")
	id := spawnCube(app, shell.FeatureTracking)
	w := furWorld(t, app)

	app.RunFrames(2)
	inst, _ := w.Get(id)
	assert.True(t, inst.Activated())
	assert.False(t, inst.failed)
	assert.Zero(t, be.blits)
	assert.False(t, w.RequestTrackingMark(id, mgl32.Vec3{}, 0.5, 0.25, 0.1, 0))
	// activation draw, then one draw per frame
	assert.Len(t, be.draws, 3)
}

func TestFur_EffectsReactivateLostInstance(t *testing.T) {
	app, be := newFurApp(t, PlayMode)
	id := spawnCube(app, shell.FeatureExplosions)
	w := furWorld(t, app)
	app.RunFrames(1)
	inst, _ := w.Get(id)
	require.True(t, inst.Activated())

	inst.Renderer.Dispose()
	tm, _ := findResource[*Time](app)
	mode, _ := findResource[*Mode](app)
	furEffectsSystem(w, tm, mode)
	assert.False(t, inst.Activated())

	dispatches := len(be.dispatches)
	app.RunFrames(1)
	assert.True(t, inst.Activated())
	assert.Greater(t, len(be.dispatches), dispatches)
}
