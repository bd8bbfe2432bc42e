package grassfur

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gekko3d/grassfur/furrt/rt/core"
	"github.com/gekko3d/grassfur/furrt/rt/shell"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// FurSpec describes a fur instance to spawn. Skin selects skinned mode and
// replaces Mesh.
type FurSpec struct {
	Name      string
	Material  *shell.Material
	Mesh      *core.Mesh
	Skin      shell.SkinnedSource
	Transform *core.Transform
	Params    *core.ShellParameters

	MaskTexture  shell.Texture
	ColorTexture shell.Texture
	StyleTexture shell.Texture

	UseDownsample bool
	Hidden        bool
}

// FurInstance is one active shell renderer and its activation bookkeeping.
type FurInstance struct {
	ID       uuid.UUID
	Name     string
	Renderer *shell.Renderer
	// Visible gates the render of skinned instances in play mode.
	Visible bool

	activated bool
	deferred  bool
	failed    bool
	lastErr   string
}

func (i *FurInstance) Activated() bool { return i.activated }

// FurWorld is the registry of fur instances, in spawn order.
type FurWorld struct {
	app        *App
	backend    shell.Backend
	downsample shell.DownsampleTarget
	modifiers  *core.GlobalModifierSettings

	instances map[uuid.UUID]*FurInstance
	order     []uuid.UUID
}

func (w *FurWorld) Len() int { return len(w.order) }

func (w *FurWorld) Get(id uuid.UUID) (*FurInstance, bool) {
	inst, ok := w.instances[id]
	return inst, ok
}

func (w *FurWorld) Instances() []*FurInstance {
	out := make([]*FurInstance, 0, len(w.order))
	for _, id := range w.order {
		out = append(out, w.instances[id])
	}
	return out
}

func (w *FurWorld) Modifiers() *core.GlobalModifierSettings { return w.modifiers }

// RequestExplosion forwards to the instance renderer.
func (w *FurWorld) RequestExplosion(id uuid.UUID, worldPos mgl32.Vec3, opts shell.ExplosionOptions) bool {
	inst, ok := w.instances[id]
	if !ok {
		return false
	}
	return inst.Renderer.RequestExplosion(worldPos, opts)
}

// RequestTrackingMark forwards to the instance renderer.
func (w *FurWorld) RequestTrackingMark(id uuid.UUID, worldPos mgl32.Vec3, radius, cutRadius, smoothness, cutHeight float32) bool {
	inst, ok := w.instances[id]
	if !ok {
		return false
	}
	return inst.Renderer.RequestTrackingMark(worldPos, radius, cutRadius, smoothness, cutHeight)
}

func (w *FurWorld) resolve() error {
	if w.backend == nil {
		b, ok := findResource[shell.Backend](w.app)
		if !ok {
			return fmt.Errorf("%w: no GPU backend resource", shell.ErrMissingResource)
		}
		w.backend = b
	}
	if w.downsample == nil {
		if d, ok := findResource[shell.DownsampleTarget](w.app); ok {
			w.downsample = d
		}
	}
	return nil
}

// spawn registers the instance even when its collaborators are missing.
// The backend is resolved again at activation and a missing material or
// mesh is retried every frame until SetMaterial or SetMesh supplies it.
func (w *FurWorld) spawn(id uuid.UUID, spec FurSpec) {
	if err := w.resolve(); err != nil {
		w.app.Logger().Debugf("fur %s (%s): %v", id, spec.Name, err)
	}
	r := shell.NewRenderer(shell.RendererOptions{
		Backend:       w.backend,
		Material:      spec.Material,
		Mesh:          spec.Mesh,
		Skin:          spec.Skin,
		Transform:     spec.Transform,
		Params:        spec.Params,
		Modifiers:     w.modifiers,
		Downsample:    w.downsample,
		UseDownsample: spec.UseDownsample,
		MaskTexture:   spec.MaskTexture,
		ColorTexture:  spec.ColorTexture,
		StyleTexture:  spec.StyleTexture,
		Logger:        w.app.Logger(),
	})
	w.instances[id] = &FurInstance{ID: id, Name: spec.Name, Renderer: r, Visible: !spec.Hidden}
	w.order = append(w.order, id)
}

// SetMaterial supplies or replaces the material of an instance. It
// activates again on the next frame.
func (w *FurWorld) SetMaterial(id uuid.UUID, m *shell.Material) bool {
	inst, ok := w.instances[id]
	if !ok {
		return false
	}
	inst.Renderer.SetMaterial(m)
	inst.restart()
	return true
}

// SetMesh supplies or replaces the source geometry of an instance. A
// non-nil skin selects skinned mode.
func (w *FurWorld) SetMesh(id uuid.UUID, mesh *core.Mesh, skin shell.SkinnedSource) bool {
	inst, ok := w.instances[id]
	if !ok {
		return false
	}
	inst.Renderer.SetSource(mesh, skin)
	inst.restart()
	return true
}

// attach binds the world's backend and compositor to a renderer spawned
// before they existed.
func (w *FurWorld) attach(inst *FurInstance) error {
	if inst.Renderer.HasBackend() {
		return nil
	}
	if err := w.resolve(); err != nil {
		return err
	}
	inst.Renderer.SetBackend(w.backend)
	inst.Renderer.SetDownsampleTarget(w.downsample)
	return nil
}

func (w *FurWorld) despawn(id uuid.UUID) {
	inst, ok := w.instances[id]
	if !ok {
		return
	}
	inst.Renderer.Dispose()
	delete(w.instances, id)
	w.order = slices.DeleteFunc(w.order, func(x uuid.UUID) bool { return x == id })
}

func (i *FurInstance) restart() {
	i.activated = false
	i.deferred = false
	i.failed = false
}

// reactivate makes every instance initialize again on the next frame.
func (w *FurWorld) reactivate() {
	for _, inst := range w.instances {
		inst.restart()
	}
}

func (w *FurWorld) report(inst *FurInstance, what string, err error) {
	if err == nil {
		inst.lastErr = ""
		return
	}
	msg := err.Error()
	if msg == inst.lastErr {
		return
	}
	inst.lastErr = msg
	w.app.Logger().Warnf("fur %s (%s) %s: %v", inst.ID, inst.Name, what, err)
}

type FurModule struct {
	Modifiers *core.GlobalModifierSettings
}

func (m FurModule) Install(app *App, cmd *Commands) {
	modifiers := m.Modifiers
	if modifiers == nil {
		modifiers = core.NewGlobalModifierSettings()
	}
	cmd.AddResources(&FurWorld{
		app:       app,
		modifiers: modifiers,
		instances: make(map[uuid.UUID]*FurInstance),
	})

	cmd.UseSystem(System(furActivateSystem).InStage(Prelude).RunAlways())
	cmd.UseSystem(System(furLateUpdateSystem).InStage(LateUpdate).RunAlways())
	cmd.UseSystem(System(furVisibilitySystem).InStage(Visibility).RunAlways())
	cmd.UseSystem(System(furEffectsSystem).InStage(PostRender).RunAlways())

	for _, s := range []State{EditMode, PlayMode} {
		if app.hasState(s) {
			cmd.UseSystem(System(furModeChangeSystem).InState(OnEnter(s)).InStage(Prelude))
		}
	}
	if app.hasState(Exiting) {
		cmd.UseSystem(System(furShutdownSystem).InState(OnEnter(Exiting)).InStage(Finale))
	}
}

// furActivateSystem initializes new instances. Static instances and skinned
// ones in edit mode initialize at once; skinned instances in play mode wait
// one frame so the skin has been deformed before the first dispatch.
func furActivateSystem(world *FurWorld, t *Time, mode *Mode) {
	frame := t.FrameContext(mode)
	for _, inst := range world.Instances() {
		if inst.activated || inst.failed {
			continue
		}
		if err := world.attach(inst); err != nil {
			world.report(inst, "initialize", err)
			continue
		}
		if inst.Renderer.IsSkinned() && frame.Playing && !inst.deferred {
			inst.deferred = true
			continue
		}
		err := inst.Renderer.Initialize(frame)
		world.report(inst, "initialize", err)
		switch {
		case err == nil:
			inst.activated = true
		case !shell.IsRetryable(err):
			inst.failed = true
		}
	}
}

// furLateUpdateSystem renders static instances every frame and skinned
// ones in edit mode. Edit mode forces a rebuild so parameter edits show
// immediately.
func furLateUpdateSystem(world *FurWorld, t *Time, mode *Mode) {
	frame := t.FrameContext(mode)
	for _, inst := range world.Instances() {
		if !inst.activated {
			continue
		}
		if inst.Renderer.IsSkinned() && frame.Playing {
			continue
		}
		world.report(inst, "render", inst.Renderer.Render(frame, !frame.Playing))
	}
}

// furVisibilitySystem renders skinned instances in play mode once the skin
// has been deformed for this frame.
func furVisibilitySystem(world *FurWorld, t *Time, mode *Mode) {
	frame := t.FrameContext(mode)
	if !frame.Playing {
		return
	}
	for _, inst := range world.Instances() {
		if !inst.activated || !inst.Visible || !inst.Renderer.IsSkinned() {
			continue
		}
		world.report(inst, "render", inst.Renderer.Render(frame, false))
	}
}

func furEffectsSystem(world *FurWorld, t *Time, mode *Mode) {
	frame := t.FrameContext(mode)
	if !frame.Playing {
		return
	}
	for _, inst := range world.Instances() {
		if !inst.activated {
			continue
		}
		err := inst.Renderer.StepEffects(frame)
		if errors.Is(err, shell.ErrNotInitialized) {
			// activation runs again next frame
			inst.activated = false
			continue
		}
		world.report(inst, "effects", err)
	}
}

func furModeChangeSystem(world *FurWorld) {
	world.reactivate()
}

func furShutdownSystem(world *FurWorld) {
	for _, id := range slices.Clone(world.order) {
		world.despawn(id)
	}
}
