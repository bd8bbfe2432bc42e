package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/grassfur/furrt/rt/shaders"
	"github.com/gekko3d/grassfur/furrt/rt/shell"
)

// DownsampleFormat keeps HDR shell colors in the reduced target.
const DownsampleFormat = wgpu.TextureFormatRGBA16Float

// Downsampler draws queued shell instances into a reduced resolution target
// at the end of the frame and composites it over the frame with a
// fullscreen blit.
type Downsampler struct {
	backend *Backend
	queue   *shell.DownsampleQueue
	factor  int
	enabled bool

	target *gpuTexture
	depth  *gpuTexture

	module     *wgpu.ShaderModule
	composites map[wgpu.TextureFormat]*wgpu.RenderPipeline
	groups     map[wgpu.TextureFormat]*wgpu.BindGroup
}

func NewDownsampler(b *Backend, factor int) (*Downsampler, error) {
	module, err := b.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "DownsampleBlit",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.DownsampleBlitWGSL},
	})
	if err != nil {
		return nil, fmt.Errorf("downsample module: %w", err)
	}
	d := &Downsampler{
		backend:    b,
		queue:      shell.NewDownsampleQueue(),
		factor:     shell.ClampDownsampleFactor(factor),
		enabled:    true,
		module:     module,
		composites: make(map[wgpu.TextureFormat]*wgpu.RenderPipeline),
		groups:     make(map[wgpu.TextureFormat]*wgpu.BindGroup),
	}
	b.AddFrameHook(d)
	return d, nil
}

func (d *Downsampler) Active() bool { return d.enabled }
func (d *Downsampler) Factor() int  { return d.factor }

func (d *Downsampler) SetEnabled(enabled bool) {
	d.enabled = enabled
	if !enabled {
		d.queue.Reset()
	}
}

// SetFactor clamps f into the supported range. The target is rebuilt on
// the next frame.
func (d *Downsampler) SetFactor(f int) {
	d.factor = shell.ClampDownsampleFactor(f)
}

func (d *Downsampler) SetQuality(q shell.DownsampleQuality) { d.SetFactor(q.Factor()) }

func (d *Downsampler) Enqueue(src shell.IndirectSource) {
	if !d.enabled {
		return
	}
	d.queue.Enqueue(src)
}

func (d *Downsampler) Pending() int { return d.queue.Len() }

func (d *Downsampler) ensureTarget(w, h int) error {
	tw, th := shell.DownsampleTargetSize(w, h, d.factor)
	if d.target != nil && d.target.width == tw && d.target.height == th {
		return nil
	}
	d.releaseTarget()

	target, err := d.backend.createTexture("DownsampleTarget", tw, th, DownsampleFormat,
		wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageTextureBinding)
	if err != nil {
		return err
	}
	depth, err := d.backend.createTexture("DownsampleDepth", tw, th, DepthFormat, wgpu.TextureUsageRenderAttachment)
	if err != nil {
		target.Release()
		return err
	}
	d.target, d.depth = target, depth
	return nil
}

func (d *Downsampler) releaseTarget() {
	for k, g := range d.groups {
		g.Release()
		delete(d.groups, k)
	}
	if d.target != nil {
		d.target.Release()
		d.target = nil
	}
	if d.depth != nil {
		d.depth.Release()
		d.depth = nil
	}
}

func (d *Downsampler) flush(b *Backend, f *frameState) error {
	if d.module == nil {
		return nil
	}
	draws := d.queue.Drain(nil)
	if !d.enabled || len(draws) == 0 {
		return nil
	}
	if err := d.ensureTarget(f.target.Width, f.target.Height); err != nil {
		return fmt.Errorf("downsample target: %w", err)
	}

	low := f.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       d.target.view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{},
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            d.depth.view,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})
	for _, draw := range draws {
		if err := b.recordDraw(low, DownsampleFormat, draw); err != nil {
			b.log.Warnf("downsample draw skipped: %v", err)
		}
	}
	if err := low.End(); err != nil {
		return fmt.Errorf("downsample pass: %w", err)
	}

	pipeline, err := d.compositePipeline(f.target.Format)
	if err != nil {
		return err
	}
	group, err := d.compositeGroup(f.target.Format, pipeline)
	if err != nil {
		return err
	}
	pass := f.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:    f.target.View,
			LoadOp:  wgpu.LoadOpLoad,
			StoreOp: wgpu.StoreOpStore,
		}},
	})
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, group, nil)
	pass.Draw(3, 1, 0, 0)
	if err := pass.End(); err != nil {
		return fmt.Errorf("downsample composite: %w", err)
	}
	return nil
}

func (d *Downsampler) compositePipeline(format wgpu.TextureFormat) (*wgpu.RenderPipeline, error) {
	if p := d.composites[format]; p != nil {
		return p, nil
	}
	p, err := d.backend.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "DownsampleComposite",
		Vertex: wgpu.VertexState{
			Module:     d.module,
			EntryPoint: "vs_fullscreen",
		},
		Fragment: &wgpu.FragmentState{
			Module:     d.module,
			EntryPoint: "fs_composite",
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
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("downsample composite pipeline: %w", err)
	}
	d.composites[format] = p
	return p, nil
}

func (d *Downsampler) compositeGroup(format wgpu.TextureFormat, pipeline *wgpu.RenderPipeline) (*wgpu.BindGroup, error) {
	if g := d.groups[format]; g != nil {
		return g, nil
	}
	g, err := d.backend.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "DownsampleComposite",
		Layout: pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: d.target.view},
			{Binding: 1, Sampler: d.backend.sampler},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("downsample composite bind group: %w", err)
	}
	d.groups[format] = g
	return g, nil
}

func (d *Downsampler) Release() {
	d.releaseTarget()
	for k, p := range d.composites {
		p.Release()
		delete(d.composites, k)
	}
	if d.module != nil {
		d.module.Release()
		d.module = nil
	}
	d.queue.Reset()
}
