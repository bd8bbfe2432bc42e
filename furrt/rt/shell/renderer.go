package shell

import (
	"errors"
	"fmt"

	"github.com/gekko3d/grassfur/furrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateInitialized
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateInitialized:
		return "initialized"
	case StateDisposed:
		return "disposed"
	}
	return "unknown"
}

// RendererOptions configure a Renderer. Exactly one of Mesh or Skin should
// be set; Skin wins when both are.
type RendererOptions struct {
	Backend   Backend
	Material  *Material
	Mesh      *core.Mesh
	Skin      SkinnedSource
	Transform *core.Transform
	Params    *core.ShellParameters
	Modifiers *core.GlobalModifierSettings

	Downsample    DownsampleTarget
	UseDownsample bool

	MaskTexture  Texture
	ColorTexture Texture
	StyleTexture Texture

	Logger Logger
}

// Renderer expands one mesh into shells and draws them each frame.
type Renderer struct {
	id        uuid.UUID
	backend   Backend
	material  *Material
	source    GeometrySource
	transform *core.Transform
	params    core.ShellParameters
	modifiers *core.GlobalModifierSettings
	log       Logger

	downsample    DownsampleTarget
	useDownsample bool

	maskTex  Texture
	colorTex Texture
	styleTex Texture
	brush    core.BrushState

	// IgnoreTextureDispatch keeps SetData from overwriting the material
	// textures, so a painter can preview its own.
	IgnoreTextureDispatch bool

	state     State
	lastFrame FrameContext
	geometry  *GeometryBinding
	output    Buffer
	args      Buffer
	uniforms  Buffer
	effects   *SurfaceEffects

	bounds          core.AABB
	localBoundsSize mgl32.Vec3
}

func NewRenderer(opts RendererOptions) *Renderer {
	r := &Renderer{
		id:            uuid.New(),
		backend:       opts.Backend,
		material:      opts.Material,
		source:        GeometrySource{Mesh: opts.Mesh, Skin: opts.Skin},
		transform:     opts.Transform,
		modifiers:     opts.Modifiers,
		log:           opts.Logger,
		downsample:    opts.Downsample,
		useDownsample: opts.UseDownsample,
		maskTex:       opts.MaskTexture,
		colorTex:      opts.ColorTexture,
		styleTex:      opts.StyleTexture,
	}
	if opts.Params != nil {
		r.params = *opts.Params
	} else {
		r.params = core.DefaultShellParameters()
	}
	if r.transform == nil {
		r.transform = core.NewTransform()
	}
	if r.modifiers == nil {
		r.modifiers = core.NewGlobalModifierSettings()
	}
	if r.log == nil {
		r.log = nopLogger{}
	}
	r.bindEffects()
	return r
}

func (r *Renderer) bindEffects() {
	r.effects = nil
	if r.material == nil {
		return
	}
	r.effects = newSurfaceEffects(r.backend, r.material, r.modifiers, r.log)
	r.useDownsample = r.useDownsample || r.material.IsFeatureEnabled(FeatureDownsample)
}

// reset releases the GPU state so the next Render initializes against the
// current collaborators.
func (r *Renderer) reset() {
	r.teardown()
	r.state = StateUninitialized
}

// SetMaterial replaces the material. The instance is torn down and
// initializes again on the next Render.
func (r *Renderer) SetMaterial(m *Material) {
	if m == r.material {
		return
	}
	r.reset()
	r.material = m
	r.bindEffects()
}

// SetSource replaces the source geometry. A non-nil skin selects skinned
// mode. The instance initializes again on the next Render.
func (r *Renderer) SetSource(mesh *core.Mesh, skin SkinnedSource) {
	r.reset()
	r.source = GeometrySource{Mesh: mesh, Skin: skin}
}

// SetBackend moves the renderer to another device. Resources of the
// previous backend are released first.
func (r *Renderer) SetBackend(b Backend) {
	if b == r.backend {
		return
	}
	r.reset()
	r.backend = b
	r.bindEffects()
}

func (r *Renderer) HasBackend() bool { return r.backend != nil }

func (r *Renderer) ID() uuid.UUID                           { return r.id }
func (r *Renderer) State() State                            { return r.state }
func (r *Renderer) IsInitialized() bool                     { return r.state == StateInitialized }
func (r *Renderer) IsSkinned() bool                         { return r.source.Skinned() }
func (r *Renderer) Material() *Material                     { return r.material }
func (r *Renderer) Transform() *core.Transform              { return r.transform }
func (r *Renderer) Params() core.ShellParameters            { return r.params }
func (r *Renderer) Modifiers() *core.GlobalModifierSettings { return r.modifiers }
func (r *Renderer) Bounds() core.AABB                       { return r.bounds }
func (r *Renderer) LocalBoundsSize() mgl32.Vec3             { return r.localBoundsSize }
func (r *Renderer) Geometry() *GeometryBinding              { return r.geometry }
func (r *Renderer) Effects() *SurfaceEffects                { return r.effects }
func (r *Renderer) OutputBuffer() Buffer                    { return r.output }

// UsesDownsample reports whether draws currently go through the compositor.
func (r *Renderer) UsesDownsample() bool {
	return r.useDownsample && r.downsample != nil && r.downsample.Active()
}

func (r *Renderer) SetDownsample(target DownsampleTarget, enabled bool) {
	r.downsample = target
	r.useDownsample = enabled
}

// SetDownsampleTarget swaps the compositor and keeps the routing choice.
func (r *Renderer) SetDownsampleTarget(target DownsampleTarget) {
	r.downsample = target
}

// Initialize rebuilds every GPU resource, uploads and dispatches once and,
// in play mode, sets up the surface effects enabled on the material. An
// effect that fails to set up is logged and stays off; the shells still
// render.
func (r *Renderer) Initialize(frame FrameContext) error {
	if r.state == StateInitialized {
		r.state = StateUninitialized
	}
	if err := r.Render(frame, true); err != nil {
		return err
	}
	if !frame.Playing {
		return nil
	}
	if err := r.effects.Setup(); err != nil {
		r.log.Warnf("shell %s: effects disabled: %v", r.id, err)
	}
	return nil
}

// Render draws the instance. It initializes lazily and rebuilds the shells
// when forced or when the source is a skin animating in play mode.
func (r *Renderer) Render(frame FrameContext, forceRebuild bool) error {
	r.lastFrame = frame
	if err := r.checkResources(); err != nil {
		return err
	}

	fresh := false
	if r.state != StateInitialized {
		if err := r.initData(); err != nil {
			return err
		}
		fresh = true
	}

	if fresh || forceRebuild || (r.IsSkinned() && frame.Playing) {
		if err := r.SetData(); err != nil {
			return err
		}
	}

	if r.UsesDownsample() {
		r.downsample.Enqueue(r)
		return nil
	}

	draw, _ := r.IndirectDrawData()
	if err := r.backend.DrawIndirect(draw); err != nil {
		return fmt.Errorf("draw %s: %w", r.id, err)
	}
	return nil
}

func (r *Renderer) checkResources() error {
	switch {
	case r.backend == nil || !r.backend.KernelAvailable():
		return fmt.Errorf("%w: shell builder kernel", ErrMissingResource)
	case r.material == nil:
		return fmt.Errorf("%w: material", ErrMissingResource)
	case r.source.SourceMesh() == nil:
		return fmt.Errorf("%w: %w", ErrMissingResource, ErrNoMesh)
	}
	return nil
}

func (r *Renderer) initData() error {
	r.teardown()
	r.state = StateInitializing

	fail := func(err error) error {
		r.teardown()
		r.state = StateUninitialized
		return fmt.Errorf("init %s: %w", r.id, err)
	}

	g, err := BuildGeometry(r.backend, r.source, &r.params)
	if err != nil {
		return fail(err)
	}
	r.geometry = g

	density := r.params.Density()
	r.output, err = r.backend.CreateBuffer("ShellOutTriangles", g.OutputSize(density), BufferUsageStorage|BufferUsageVertex)
	if err != nil {
		return fail(err)
	}
	r.args, err = r.backend.CreateBuffer("ShellArgs", IndirectArgsSize, BufferUsageIndirect|BufferUsageStorage)
	if err != nil {
		return fail(err)
	}
	if err := r.backend.WriteBuffer(r.args, 0, IndirectArgs(r.VertexCount())); err != nil {
		return fail(err)
	}
	r.uniforms, err = r.backend.CreateBuffer("ShellParams", ShellUniformsSize, BufferUsageUniform)
	if err != nil {
		return fail(err)
	}

	r.state = StateInitialized
	return nil
}

// VertexCount is the number of vertices the indirect draw emits.
func (r *Renderer) VertexCount() uint32 {
	if r.geometry == nil {
		return 0
	}
	return uint32(r.geometry.IndexCount * r.params.Density())
}

// SetData uploads every kernel parameter, rebinds all buffers, refreshes
// the bounds and dispatches the shell builder.
func (r *Renderer) SetData() error {
	if r.state != StateInitialized {
		return ErrNotInitialized
	}
	g := r.geometry
	mesh := r.source.SourceMesh()

	u := ShellUniforms{
		Density:              uint32(r.params.Density()),
		TriangleCount:        uint32(g.TriangleCount),
		Offset:               r.params.Offset(),
		MotionIntensity:      r.params.MotionIntensity(),
		MotionShellInfluence: r.params.MotionShellInfluence(),
		SkinScale:            1,
	}
	d := ShellDispatch{
		Variant:  g.Variant,
		Uniforms: r.uniforms,
		Output:   r.output,
	}

	if g.Skinned {
		if g.Vertices == nil || g.Indices == nil || g.UVs == nil {
			return fmt.Errorf("%w: skin buffers", ErrMissingResource)
		}
		if r.params.SkinMotionVectors() && g.Previous == nil {
			return fmt.Errorf("%w: previous skin positions", ErrMissingResource)
		}
		d.Vertices, d.Indices, d.UVs = g.Vertices, g.Indices, g.UVs
		u.VertexStride = g.Layout.VertexStride
		u.UVStride = g.Layout.UVStride
		u.NormalOffset = g.Layout.NormalOffset
		u.UVOffset = g.Layout.UVOffset
		u.SkinScale = r.params.SkinScale()
		if r.params.SkinMotionVectors() {
			d.Previous = g.Previous
			d.VertexCount = uint32(g.VertexCount)
			u.Flags |= FlagLocalMotionVectors
			u.VertexCount = uint32(g.VertexCount)
		}
		u.Model = mgl32.Ident4()
		if bone := r.source.Skin.RootBone(); bone != nil {
			u.Model = bone.ObjectToWorld()
		}
	} else {
		d.Input = g.Input
		u.Model = r.transform.ObjectToWorld()
	}

	if err := r.backend.WriteBuffer(r.uniforms, 0, u.Marshal()); err != nil {
		return fmt.Errorf("uniforms: %w", err)
	}
	r.material.SetOutputBuffer(r.output)

	if !r.IgnoreTextureDispatch {
		r.SetMaskTexture(nil)
		r.SetColorTexture(nil)
		r.SetStyleTexture(nil)
	}

	meshSize := mesh.Bounds().Size()
	if g.Skinned {
		r.bounds = r.source.Skin.Bounds()
	} else {
		grow := float32(r.params.Density())
		r.bounds = core.NewAABBFromCenterSize(r.transform.Position, meshSize.Add(mgl32.Vec3{grow, grow, grow}))
	}
	scale := r.transform.LossyScale()
	r.localBoundsSize = mgl32.Vec3{scale[0] * meshSize[0] * 2, scale[1] * meshSize[1] * 2, scale[2] * meshSize[2] * 2}

	d.Workgroups = Workgroups(g.TriangleCount, r.backend.ThreadGroupSize(g.Variant))
	if err := r.backend.Dispatch(d); err != nil {
		return fmt.Errorf("dispatch %s: %w", g.Variant, err)
	}
	return nil
}

// Dispose releases every owned GPU resource and stops the effects. It is
// safe to call repeatedly. A later Render or Initialize starts over.
func (r *Renderer) Dispose() {
	if r.state == StateDisposed {
		return
	}
	r.teardown()
	r.state = StateDisposed
}

func (r *Renderer) teardown() {
	r.geometry.Release()
	r.geometry = nil
	for _, b := range []*Buffer{&r.output, &r.args, &r.uniforms} {
		if *b != nil {
			(*b).Release()
			*b = nil
		}
	}
	if r.effects != nil {
		r.effects.Stop()
	}
	if r.material != nil && r.material.OutTriangles != nil {
		r.material.SetOutputBuffer(nil)
	}
}

// SetDensity changes the shell count and rebuilds the instance.
func (r *Renderer) SetDensity(d int) (int, bool) {
	v, clamped := r.params.SetDensity(d)
	if r.state == StateInitialized {
		r.reinitialize()
	}
	return v, clamped
}

func (r *Renderer) SetOffset(o float32) (float32, bool) {
	v, clamped := r.params.SetOffset(o)
	r.refresh()
	return v, clamped
}

func (r *Renderer) SetMotionShellInfluence(s float32) (float32, bool) {
	v, clamped := r.params.SetMotionShellInfluence(s)
	r.refresh()
	return v, clamped
}

func (r *Renderer) SetMotionIntensity(i float32) (float32, bool) {
	v, clamped := r.params.SetMotionIntensity(i)
	r.refresh()
	return v, clamped
}

func (r *Renderer) SetSkinScale(s float32) (float32, bool) {
	v, clamped := r.params.SetSkinScale(s)
	r.refresh()
	return v, clamped
}

// SetSkinMotionVectors toggles the previous-position input of skinned
// kernels. The buffer is allocated at init, so an initialized skin is
// rebuilt.
func (r *Renderer) SetSkinMotionVectors(enabled bool) {
	if r.params.SkinMotionVectors() == enabled {
		return
	}
	r.params.SetSkinMotionVectors(enabled)
	if r.IsSkinned() && r.state == StateInitialized {
		r.reinitialize()
	}
}

func (r *Renderer) refresh() {
	if r.state != StateInitialized {
		return
	}
	if err := r.SetData(); err != nil {
		r.log.Warnf("shell %s: set data: %v", r.id, err)
	}
}

func (r *Renderer) reinitialize() {
	if err := r.Initialize(r.lastFrame); err != nil {
		r.log.Warnf("shell %s: reinitialize: %v", r.id, err)
	}
}

// SetMaskTexture pushes tex to the material and caches it. A nil tex
// re-pushes the cached texture.
func (r *Renderer) SetMaskTexture(tex Texture) {
	r.maskTex = r.pushTexture(TextureMask, tex, r.maskTex)
}

func (r *Renderer) SetColorTexture(tex Texture) {
	r.colorTex = r.pushTexture(TextureAddColor, tex, r.colorTex)
}

func (r *Renderer) SetStyleTexture(tex Texture) {
	r.styleTex = r.pushTexture(TextureStyle, tex, r.styleTex)
}

func (r *Renderer) pushTexture(slot TextureSlot, tex, cached Texture) Texture {
	if tex == nil {
		tex = cached
	}
	if r.material != nil && tex != nil {
		r.material.SetTexture(slot, tex)
	}
	return tex
}

func (r *Renderer) CachedTextures() (mask, color, style Texture) {
	return r.maskTex, r.colorTex, r.styleTex
}

// SetBrush forwards the painter's brush to the material.
func (r *Renderer) SetBrush(b core.BrushState) {
	r.brush = b
	if r.material != nil {
		r.material.SetBrush(b)
	}
}

func (r *Renderer) Brush() core.BrushState { return r.brush }

// UVSpace is the conversion space of the current source mesh.
func (r *Renderer) UVSpace() UVSpace {
	s := UVSpace{
		Transform:       r.transform,
		LocalBoundsSize: r.localBoundsSize,
		Invert:          r.modifiers.InvertUV,
	}
	if m := r.source.SourceMesh(); m != nil {
		s.HalfExtents = m.Bounds().Max
	}
	return s
}

// RequestTrackingMark stamps a planar mark at worldPos on the next effects
// step. It returns false when tracking is off, the instance is not
// initialized or all slots are taken.
func (r *Renderer) RequestTrackingMark(worldPos mgl32.Vec3, radius, cutRadius, smoothness, cutHeight float32) bool {
	if r.state != StateInitialized || r.effects == nil {
		return false
	}
	return r.effects.RequestMark(r.UVSpace(), worldPos, radius, cutRadius, smoothness, cutHeight)
}

// RequestExplosion starts a planar explosion at worldPos.
func (r *Renderer) RequestExplosion(worldPos mgl32.Vec3, opts ExplosionOptions) bool {
	if r.state != StateInitialized || r.effects == nil {
		return false
	}
	return r.effects.RequestExplosion(r.UVSpace(), worldPos, opts, r.lastFrame.Time)
}

// StepEffects runs one frame of the tracking blit and the explosion update.
// It returns ErrNotInitialized when the instance lost its GPU state.
func (r *Renderer) StepEffects(frame FrameContext) error {
	if r.state != StateInitialized {
		return ErrNotInitialized
	}
	if r.effects == nil {
		return nil
	}
	r.lastFrame.Time = frame.Time
	r.effects.StepExplosions(frame)
	return r.effects.StepTracking()
}

// IndirectDrawData returns the draw triple used by compositors. ok is false
// until the instance is initialized.
func (r *Renderer) IndirectDrawData() (IndirectDraw, bool) {
	if r.state != StateInitialized || r.args == nil || r.material == nil {
		return IndirectDraw{}, false
	}
	return IndirectDraw{
		World:       r.transform.ObjectToWorld(),
		Bounds:      r.bounds,
		Output:      r.output,
		Args:        r.args,
		VertexCount: r.VertexCount(),
		Material:    r.material,
	}, true
}

// IsRetryable reports whether err only means a collaborator is not ready.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrMissingResource) || errors.Is(err, ErrNotInitialized)
}
