package gpu

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/grassfur/furrt/rt/shaders"
	"github.com/gekko3d/grassfur/furrt/rt/shell"
)

// KernelGroupSize matches @workgroup_size in shell_builder.wgsl.
const KernelGroupSize = 64

var ErrNoFrame = errors.New("gpu: no frame in progress")

// Backend implements shell.Backend on a wgpu device. All methods must be
// called from the render thread.
type Backend struct {
	Device *wgpu.Device
	Queue  *wgpu.Queue

	log shell.Logger

	kernels     map[shell.KernelVariant]*wgpu.ComputePipeline
	store       *wgpu.ComputePipeline
	kernelErr   error
	noPrevious  *wgpu.Buffer
	dispatchBGs map[*gpuBuffer]*dispatchBinding

	blitPipelines map[shell.BlitPass]*wgpu.RenderPipeline

	drawModule    *wgpu.ShaderModule
	drawPipelines map[wgpu.TextureFormat]*wgpu.RenderPipeline
	frameBGs      map[wgpu.TextureFormat]*wgpu.BindGroup
	frameBuf      *wgpu.Buffer
	materials     map[materialKey]*materialBinding

	sampler *wgpu.Sampler
	white   *gpuTexture
	clear   *gpuTexture
	depth   *gpuTexture

	frame *frameState
	hooks []frameHook
}

// NewBackend compiles every pipeline up front. A shell builder kernel that
// fails to compile is logged and reported through KernelAvailable so
// renderers can refuse to initialize instead of failing the whole device.
func NewBackend(device *wgpu.Device, queue *wgpu.Queue, log shell.Logger) (*Backend, error) {
	if log == nil {
		return nil, errors.New("gpu: nil logger")
	}
	b := &Backend{
		Device:        device,
		Queue:         queue,
		log:           log,
		kernels:       make(map[shell.KernelVariant]*wgpu.ComputePipeline),
		dispatchBGs:   make(map[*gpuBuffer]*dispatchBinding),
		blitPipelines: make(map[shell.BlitPass]*wgpu.RenderPipeline),
		drawPipelines: make(map[wgpu.TextureFormat]*wgpu.RenderPipeline),
		frameBGs:      make(map[wgpu.TextureFormat]*wgpu.BindGroup),
		materials:     make(map[materialKey]*materialBinding),
	}

	if err := b.createKernels(); err != nil {
		b.kernelErr = err
		log.Errorf("shell builder kernel unavailable: %v", err)
	}
	if err := b.createBlitPipelines(); err != nil {
		return nil, err
	}

	var err error
	b.drawModule, err = device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "ShellDraw",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.ShellDrawWGSL},
	})
	if err != nil {
		return nil, fmt.Errorf("shell draw module: %w", err)
	}
	b.frameBuf, err = device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "ShellFrame",
		Size:  FrameUniformsSize,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("frame uniforms: %w", err)
	}
	b.sampler, err = device.CreateSampler(&wgpu.SamplerDescriptor{
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MinFilter:     wgpu.FilterModeLinear,
		MagFilter:     wgpu.FilterModeLinear,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("sampler: %w", err)
	}
	if b.white, err = b.solidTexture("FallbackWhite", [4]byte{255, 255, 255, 255}); err != nil {
		return nil, err
	}
	if b.clear, err = b.solidTexture("FallbackClear", [4]byte{0, 0, 0, 0}); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Backend) createKernels() error {
	module, err := b.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "ShellBuilder",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.ShellBuilderWGSL},
	})
	if err != nil {
		return fmt.Errorf("shell builder module: %w", err)
	}
	defer module.Release()

	for _, v := range []shell.KernelVariant{shell.KernelDefault, shell.KernelSkinned16, shell.KernelSkinned32} {
		p, err := b.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
			Label: "ShellBuilder " + v.String(),
			Compute: wgpu.ProgrammableStageDescriptor{
				Module:     module,
				EntryPoint: v.String(),
			},
		})
		if err != nil {
			return fmt.Errorf("kernel %s: %w", v, err)
		}
		b.kernels[v] = p
	}
	b.store, err = b.Device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label: "ShellBuilder store_previous",
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: "store_previous",
		},
	})
	if err != nil {
		return fmt.Errorf("kernel store_previous: %w", err)
	}

	b.noPrevious, err = b.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "ShellNoPrevious",
		Size:  minBufferSize,
		Usage: wgpu.BufferUsageStorage,
	})
	if err != nil {
		return fmt.Errorf("previous placeholder: %w", err)
	}
	return nil
}

func (b *Backend) KernelAvailable() bool {
	return b.kernelErr == nil && len(b.kernels) == 3 && b.store != nil
}

func (b *Backend) ThreadGroupSize(shell.KernelVariant) uint32 { return KernelGroupSize }

type dispatchBinding struct {
	variant shell.KernelVariant
	inputs  [6]*wgpu.Buffer
	groups  [2]*wgpu.BindGroup
	// store binds the previous-position pass; nil without motion vectors.
	store [3]*wgpu.BindGroup
}

func (d *dispatchBinding) release() {
	for _, g := range append(d.groups[:], d.store[:]...) {
		if g != nil {
			g.Release()
		}
	}
}

func (b *Backend) forgetBuffer(g *gpuBuffer) {
	if d, ok := b.dispatchBGs[g]; ok {
		d.release()
		delete(b.dispatchBGs, g)
	}
}

func optional(buf shell.Buffer) (*wgpu.Buffer, error) {
	if buf == nil {
		return nil, nil
	}
	g, err := asBuffer(buf)
	if err != nil {
		return nil, err
	}
	return g.buf, nil
}

// Dispatch runs the shell builder and submits immediately, so the output is
// ready before any draw recorded later in the frame.
func (b *Backend) Dispatch(d shell.ShellDispatch) error {
	if !b.KernelAvailable() {
		return fmt.Errorf("%w: shell builder kernel", shell.ErrMissingResource)
	}
	if d.Workgroups == 0 {
		return nil
	}
	pipeline := b.kernels[d.Variant]
	if pipeline == nil {
		return fmt.Errorf("gpu: unknown kernel variant %d", d.Variant)
	}
	out, err := asBuffer(d.Output)
	if err != nil {
		return fmt.Errorf("dispatch output: %w", err)
	}

	var inputs [6]*wgpu.Buffer
	for i, buf := range []shell.Buffer{d.Uniforms, d.Input, d.Vertices, d.Indices, d.UVs, d.Previous} {
		if inputs[i], err = optional(buf); err != nil {
			return fmt.Errorf("dispatch input %d: %w", i, err)
		}
	}
	if d.Variant != shell.KernelDefault && inputs[5] == nil {
		inputs[5] = b.noPrevious
	}

	binding := b.dispatchBGs[out]
	if binding == nil || binding.variant != d.Variant || binding.inputs != inputs {
		if binding != nil {
			binding.release()
		}
		binding, err = b.createDispatchBinding(pipeline, d.Variant, out.buf, inputs)
		if err != nil {
			return err
		}
		b.dispatchBGs[out] = binding
	}

	encoder, err := b.Device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("dispatch encoder: %w", err)
	}
	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, binding.groups[0], nil)
	pass.SetBindGroup(1, binding.groups[1], nil)
	pass.DispatchWorkgroups(d.Workgroups, 1, 1)
	if err := pass.End(); err != nil {
		return fmt.Errorf("dispatch pass: %w", err)
	}
	if binding.store[0] != nil && d.VertexCount > 0 {
		store := encoder.BeginComputePass(nil)
		store.SetPipeline(b.store)
		for i, g := range binding.store {
			store.SetBindGroup(uint32(i), g, nil)
		}
		store.DispatchWorkgroups(shell.Workgroups(int(d.VertexCount), KernelGroupSize), 1, 1)
		if err := store.End(); err != nil {
			return fmt.Errorf("store previous pass: %w", err)
		}
	}
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("dispatch finish: %w", err)
	}
	b.Queue.Submit(cmd)
	return nil
}

func (b *Backend) createDispatchBinding(pipeline *wgpu.ComputePipeline, variant shell.KernelVariant, out *wgpu.Buffer, in [6]*wgpu.Buffer) (*dispatchBinding, error) {
	uniforms, input, vertices, indices, uvs, previous := in[0], in[1], in[2], in[3], in[4], in[5]
	if uniforms == nil {
		return nil, fmt.Errorf("%w: shell uniforms", shell.ErrMissingResource)
	}

	var entries []wgpu.BindGroupEntry
	if variant == shell.KernelDefault {
		if input == nil {
			return nil, fmt.Errorf("%w: input triangles", shell.ErrMissingResource)
		}
		entries = []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: input, Size: wgpu.WholeSize},
		}
	} else {
		if vertices == nil || indices == nil || uvs == nil {
			return nil, fmt.Errorf("%w: skin buffers", shell.ErrMissingResource)
		}
		entries = []wgpu.BindGroupEntry{
			{Binding: 1, Buffer: vertices, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: indices, Size: wgpu.WholeSize},
			{Binding: 3, Buffer: uvs, Size: wgpu.WholeSize},
			{Binding: 4, Buffer: previous, Size: wgpu.WholeSize},
		}
	}

	g0, err := b.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "ShellBuilder0",
		Layout: pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: uniforms, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: out, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("kernel bind group 0: %w", err)
	}
	g1, err := b.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "ShellBuilder1",
		Layout:  pipeline.GetBindGroupLayout(1),
		Entries: entries,
	})
	if err != nil {
		g0.Release()
		return nil, fmt.Errorf("kernel bind group 1: %w", err)
	}
	binding := &dispatchBinding{variant: variant, inputs: in, groups: [2]*wgpu.BindGroup{g0, g1}}
	if variant != shell.KernelDefault && previous != b.noPrevious {
		if binding.store, err = b.createStoreBinding(uniforms, vertices, previous); err != nil {
			binding.release()
			return nil, err
		}
	}
	return binding, nil
}

func (b *Backend) createStoreBinding(uniforms, vertices, previous *wgpu.Buffer) ([3]*wgpu.BindGroup, error) {
	var groups [3]*wgpu.BindGroup
	for i, buf := range []struct {
		binding uint32
		buf     *wgpu.Buffer
	}{{0, uniforms}, {1, vertices}, {0, previous}} {
		g, err := b.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:   fmt.Sprintf("ShellStorePrevious%d", i),
			Layout:  b.store.GetBindGroupLayout(uint32(i)),
			Entries: []wgpu.BindGroupEntry{{Binding: buf.binding, Buffer: buf.buf, Size: wgpu.WholeSize}},
		})
		if err != nil {
			for _, made := range groups {
				if made != nil {
					made.Release()
				}
			}
			return groups, fmt.Errorf("store previous bind group %d: %w", i, err)
		}
		groups[i] = g
	}
	return groups, nil
}

// Release frees every pipeline and cached binding. Buffers and textures
// handed out earlier stay owned by their callers.
func (b *Backend) Release() {
	for k, d := range b.dispatchBGs {
		d.release()
		delete(b.dispatchBGs, k)
	}
	for k, m := range b.materials {
		m.release()
		delete(b.materials, k)
	}
	for k, g := range b.frameBGs {
		g.Release()
		delete(b.frameBGs, k)
	}
	for k, p := range b.drawPipelines {
		p.Release()
		delete(b.drawPipelines, k)
	}
	for k, p := range b.blitPipelines {
		p.Release()
		delete(b.blitPipelines, k)
	}
	for k, p := range b.kernels {
		p.Release()
		delete(b.kernels, k)
	}
	if b.store != nil {
		b.store.Release()
		b.store = nil
	}
	if b.frame != nil {
		b.frame.release()
		b.frame = nil
	}
	for _, t := range []*gpuTexture{b.white, b.clear, b.depth} {
		if t != nil {
			t.Release()
		}
	}
	if b.noPrevious != nil {
		b.noPrevious.Release()
	}
	if b.frameBuf != nil {
		b.frameBuf.Release()
	}
	if b.sampler != nil {
		b.sampler.Release()
	}
	if b.drawModule != nil {
		b.drawModule.Release()
	}
}
