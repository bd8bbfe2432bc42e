package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/grassfur/furrt/rt/shell"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

const DepthFormat = wgpu.TextureFormatDepth32Float

// FrameTarget is the surface a frame is drawn into.
type FrameTarget struct {
	View     *wgpu.TextureView
	Format   wgpu.TextureFormat
	Width    int
	Height   int
	ViewProj mgl32.Mat4
	Time     float32
	Clear    wgpu.Color
}

type frameState struct {
	target  FrameTarget
	encoder *wgpu.CommandEncoder
	pass    *wgpu.RenderPassEncoder
	cleared bool
}

func (f *frameState) release() {
	if f.pass != nil {
		f.pass.End()
		f.pass = nil
	}
	if f.encoder != nil {
		f.encoder.Release()
		f.encoder = nil
	}
}

// frameHook runs after the main pass closes and before the frame is
// submitted. Compositors use it to draw their own passes.
type frameHook interface {
	flush(b *Backend, f *frameState) error
}

type materialKey struct {
	id     uuid.UUID
	format wgpu.TextureFormat
}

type materialBinding struct {
	version  uint64
	output   *wgpu.Buffer
	textures [4]*gpuTexture
	uniform  *wgpu.Buffer
	group    *wgpu.BindGroup
}

func (m *materialBinding) release() {
	if m.group != nil {
		m.group.Release()
	}
	if m.uniform != nil {
		m.uniform.Release()
	}
}

func (b *Backend) AddFrameHook(h frameHook) { b.hooks = append(b.hooks, h) }

// BeginFrame starts recording a frame into t. The depth target follows the
// frame size.
func (b *Backend) BeginFrame(t FrameTarget) error {
	if b.frame != nil {
		return fmt.Errorf("gpu: frame already in progress")
	}
	if t.View == nil {
		return fmt.Errorf("gpu: frame without a target view")
	}
	if err := b.ensureDepth(t.Width, t.Height); err != nil {
		return err
	}
	encoder, err := b.Device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("frame encoder: %w", err)
	}
	if err := b.Queue.WriteBuffer(b.frameBuf, 0, packFrame(t.ViewProj, t.Time)); err != nil {
		encoder.Release()
		return fmt.Errorf("frame uniforms: %w", err)
	}
	b.frame = &frameState{target: t, encoder: encoder}
	return nil
}

func (b *Backend) ensureDepth(w, h int) error {
	if b.depth != nil && b.depth.width == w && b.depth.height == h {
		return nil
	}
	if b.depth != nil {
		b.depth.Release()
		b.depth = nil
	}
	d, err := b.createTexture("ShellDepth", w, h, DepthFormat, wgpu.TextureUsageRenderAttachment)
	if err != nil {
		return err
	}
	b.depth = d
	return nil
}

func (b *Backend) mainPass() *wgpu.RenderPassEncoder {
	f := b.frame
	if f.pass != nil {
		return f.pass
	}
	load := wgpu.LoadOpLoad
	if !f.cleared {
		load = wgpu.LoadOpClear
		f.cleared = true
	}
	f.pass = f.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       f.target.View,
			LoadOp:     load,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: f.target.Clear,
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.depth.view,
			DepthLoadOp:     load,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})
	return f.pass
}

func (b *Backend) endMainPass() error {
	f := b.frame
	if f.pass == nil {
		return nil
	}
	err := f.pass.End()
	f.pass = nil
	if err != nil {
		return fmt.Errorf("main pass: %w", err)
	}
	return nil
}

// DrawIndirect records d into the main pass of the current frame.
func (b *Backend) DrawIndirect(d shell.IndirectDraw) error {
	if b.frame == nil {
		return ErrNoFrame
	}
	return b.recordDraw(b.mainPass(), b.frame.target.Format, d)
}

// EndFrame closes the main pass, runs the frame hooks and submits.
func (b *Backend) EndFrame() error {
	f := b.frame
	if f == nil {
		return ErrNoFrame
	}
	defer func() {
		f.release()
		b.frame = nil
	}()

	b.mainPass()
	if err := b.endMainPass(); err != nil {
		return err
	}
	for _, h := range b.hooks {
		if err := h.flush(b, f); err != nil {
			return err
		}
	}
	cmd, err := f.encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("frame finish: %w", err)
	}
	b.Queue.Submit(cmd)
	return nil
}

func (b *Backend) recordDraw(pass *wgpu.RenderPassEncoder, format wgpu.TextureFormat, d shell.IndirectDraw) error {
	if d.Material == nil {
		return fmt.Errorf("%w: material", shell.ErrMissingResource)
	}
	args, err := asBuffer(d.Args)
	if err != nil {
		return fmt.Errorf("draw args: %w", err)
	}
	out, err := asBuffer(d.Output)
	if err != nil {
		return fmt.Errorf("draw shells: %w", err)
	}
	pipeline, err := b.drawPipeline(format)
	if err != nil {
		return err
	}
	frameGroup, err := b.frameGroup(format, pipeline)
	if err != nil {
		return err
	}
	mat, err := b.materialGroup(format, pipeline, d.Material, out)
	if err != nil {
		return err
	}
	if err := b.Queue.WriteBuffer(mat.uniform, 0, packMaterial(d.Material)); err != nil {
		return fmt.Errorf("material uniforms: %w", err)
	}

	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, frameGroup, nil)
	pass.SetBindGroup(1, mat.group, nil)
	pass.DrawIndirect(args.buf, 0)
	return nil
}

func (b *Backend) drawPipeline(format wgpu.TextureFormat) (*wgpu.RenderPipeline, error) {
	if p := b.drawPipelines[format]; p != nil {
		return p, nil
	}
	p, err := b.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "ShellDraw",
		Vertex: wgpu.VertexState{
			Module:     b.drawModule,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     b.drawModule,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format: format,
				Blend: &wgpu.BlendState{
					Color: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorSrcAlpha,
						DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						Operation: wgpu.BlendOperationAdd,
					},
					Alpha: wgpu.BlendComponent{
						SrcFactor: wgpu.BlendFactorOne,
						DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						Operation: wgpu.BlendOperationAdd,
					},
				},
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            DepthFormat,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront: wgpu.StencilFaceState{
				Compare:     wgpu.CompareFunctionAlways,
				FailOp:      wgpu.StencilOperationKeep,
				DepthFailOp: wgpu.StencilOperationKeep,
				PassOp:      wgpu.StencilOperationKeep,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare:     wgpu.CompareFunctionAlways,
				FailOp:      wgpu.StencilOperationKeep,
				DepthFailOp: wgpu.StencilOperationKeep,
				PassOp:      wgpu.StencilOperationKeep,
			},
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("shell draw pipeline %v: %w", format, err)
	}
	b.drawPipelines[format] = p
	return p, nil
}

func (b *Backend) frameGroup(format wgpu.TextureFormat, pipeline *wgpu.RenderPipeline) (*wgpu.BindGroup, error) {
	if g := b.frameBGs[format]; g != nil {
		return g, nil
	}
	g, err := b.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "ShellFrame",
		Layout: pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: b.frameBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("frame bind group: %w", err)
	}
	b.frameBGs[format] = g
	return g, nil
}

var materialSlots = [4]shell.TextureSlot{shell.TextureMask, shell.TextureAddColor, shell.TextureStyle, shell.TextureTracking}

// boundTextures resolves the material textures, substituting the fallbacks
// for unset or released ones. Mask and style default to white.
func (b *Backend) boundTextures(m *shell.Material) [4]*gpuTexture {
	var out [4]*gpuTexture
	for i, slot := range materialSlots {
		if t, err := asTexture(m.Texture(slot)); err == nil {
			out[i] = t
			continue
		}
		switch slot {
		case shell.TextureMask, shell.TextureStyle:
			out[i] = b.white
		default:
			out[i] = b.clear
		}
	}
	return out
}

func (b *Backend) materialGroup(format wgpu.TextureFormat, pipeline *wgpu.RenderPipeline, m *shell.Material, out *gpuBuffer) (*materialBinding, error) {
	key := materialKey{id: m.ID, format: format}
	textures := b.boundTextures(m)
	cached := b.materials[key]
	if cached != nil && cached.version == m.Version() && cached.output == out.buf && cached.textures == textures {
		return cached, nil
	}

	var uniform *wgpu.Buffer
	if cached != nil {
		uniform = cached.uniform
		cached.group.Release()
	} else {
		var err error
		uniform, err = b.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "ShellMaterial " + m.Name,
			Size:  MaterialUniformsSize,
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, fmt.Errorf("material uniforms %q: %w", m.Name, err)
		}
	}

	group, err := b.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "ShellMaterial",
		Layout: pipeline.GetBindGroupLayout(1),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: out.buf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: uniform, Size: wgpu.WholeSize},
			{Binding: 2, TextureView: textures[0].view},
			{Binding: 3, TextureView: textures[1].view},
			{Binding: 4, TextureView: textures[2].view},
			{Binding: 5, TextureView: textures[3].view},
			{Binding: 6, Sampler: b.sampler},
		},
	})
	if err != nil {
		uniform.Release()
		delete(b.materials, key)
		return nil, fmt.Errorf("material bind group %q: %w", m.Name, err)
	}

	binding := &materialBinding{
		version:  m.Version(),
		output:   out.buf,
		textures: textures,
		uniform:  uniform,
		group:    group,
	}
	b.materials[key] = binding
	return binding, nil
}

// ForgetMaterial drops the cached bindings of a material that will not be
// drawn again.
func (b *Backend) ForgetMaterial(id uuid.UUID) {
	for k, m := range b.materials {
		if k.id == id {
			m.release()
			delete(b.materials, k)
		}
	}
}
