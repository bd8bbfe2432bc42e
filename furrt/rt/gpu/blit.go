package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/grassfur/furrt/rt/shaders"
	"github.com/gekko3d/grassfur/furrt/rt/shell"
)

func (b *Backend) createBlitPipelines() error {
	module, err := b.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "MaskBlit",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.MaskBlitWGSL},
	})
	if err != nil {
		return fmt.Errorf("mask blit module: %w", err)
	}
	defer module.Release()

	for _, pass := range []shell.BlitPass{shell.PassMotionClear, shell.PassTrackingDirectSet} {
		p, err := b.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
			Label: "MaskBlit " + string(pass),
			Vertex: wgpu.VertexState{
				Module:     module,
				EntryPoint: "vs_fullscreen",
			},
			Fragment: &wgpu.FragmentState{
				Module:     module,
				EntryPoint: string(pass),
				Targets: []wgpu.ColorTargetState{{
					Format:    RenderTextureFormat,
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
			return fmt.Errorf("mask blit %s: %w", pass, err)
		}
		b.blitPipelines[pass] = p
	}
	return nil
}

// Blit renders a fullscreen mask pass from req.Source into req.Dest and
// submits it. Source and Dest must be different textures.
func (b *Backend) Blit(req shell.BlitRequest) error {
	pipeline := b.blitPipelines[req.Pass]
	if pipeline == nil {
		return fmt.Errorf("gpu: unknown blit pass %q", req.Pass)
	}
	dst, err := asTexture(req.Dest)
	if err != nil {
		return fmt.Errorf("blit dest: %w", err)
	}

	var group *wgpu.BindGroup
	if req.Pass == shell.PassTrackingDirectSet {
		src, err := asTexture(req.Source)
		if err != nil {
			return fmt.Errorf("blit source: %w", err)
		}
		if src == dst {
			return fmt.Errorf("gpu: blit %s reads and writes %q", req.Pass, src.label)
		}
		marks, err := asBuffer(req.Marks)
		if err != nil {
			return fmt.Errorf("blit marks: %w", err)
		}
		group, err = b.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  "MaskBlit",
			Layout: pipeline.GetBindGroupLayout(0),
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, TextureView: src.view},
				{Binding: 1, Sampler: b.sampler},
				{Binding: 2, Buffer: marks.buf, Size: wgpu.WholeSize},
			},
		})
		if err != nil {
			return fmt.Errorf("blit bind group: %w", err)
		}
		defer group.Release()
	}

	encoder, err := b.Device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("blit encoder: %w", err)
	}
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       dst.view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{},
		}},
	})
	pass.SetPipeline(pipeline)
	if group != nil {
		pass.SetBindGroup(0, group, nil)
	}
	pass.Draw(3, 1, 0, 0)
	if err := pass.End(); err != nil {
		return fmt.Errorf("blit pass: %w", err)
	}
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("blit finish: %w", err)
	}
	b.Queue.Submit(cmd)
	return nil
}

func (b *Backend) CopyTexture(src, dst shell.Texture) error {
	s, err := asTexture(src)
	if err != nil {
		return fmt.Errorf("copy source: %w", err)
	}
	d, err := asTexture(dst)
	if err != nil {
		return fmt.Errorf("copy dest: %w", err)
	}
	if s.width != d.width || s.height != d.height || s.format != d.format {
		return fmt.Errorf("gpu: copy %q -> %q: mismatched textures", s.label, d.label)
	}

	encoder, err := b.Device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("copy encoder: %w", err)
	}
	encoder.CopyTextureToTexture(
		&wgpu.ImageCopyTexture{Texture: s.tex, MipLevel: 0, Origin: wgpu.Origin3D{}, Aspect: wgpu.TextureAspectAll},
		&wgpu.ImageCopyTexture{Texture: d.tex, MipLevel: 0, Origin: wgpu.Origin3D{}, Aspect: wgpu.TextureAspectAll},
		&wgpu.Extent3D{Width: uint32(s.width), Height: uint32(s.height), DepthOrArrayLayers: 1},
	)
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("copy finish: %w", err)
	}
	b.Queue.Submit(cmd)
	return nil
}
