package gpu

import (
	"fmt"
	"image"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/grassfur/furrt/rt/shell"
	"github.com/google/uuid"
)

// RenderTextureFormat is the format of every texture created through
// CreateRenderTexture and UploadTexture.
const RenderTextureFormat = wgpu.TextureFormatRGBA8Unorm

const minBufferSize = 16

type gpuBuffer struct {
	backend  *Backend
	label    string
	buf      *wgpu.Buffer
	released bool
}

func (g *gpuBuffer) Size() uint64 {
	if g.buf == nil {
		return 0
	}
	return g.buf.GetSize()
}

func (g *gpuBuffer) Release() {
	if g.released {
		return
	}
	g.released = true
	g.backend.forgetBuffer(g)
	g.buf.Release()
}

type gpuTexture struct {
	id       uuid.UUID
	label    string
	tex      *wgpu.Texture
	view     *wgpu.TextureView
	format   wgpu.TextureFormat
	width    int
	height   int
	released bool
}

func (t *gpuTexture) ID() uuid.UUID { return t.id }
func (t *gpuTexture) Width() int    { return t.width }
func (t *gpuTexture) Height() int   { return t.height }

func (t *gpuTexture) Release() {
	if t.released {
		return
	}
	t.released = true
	t.view.Release()
	t.tex.Release()
}

func asBuffer(b shell.Buffer) (*gpuBuffer, error) {
	g, ok := b.(*gpuBuffer)
	if !ok || g == nil {
		return nil, fmt.Errorf("gpu: foreign buffer %T", b)
	}
	if g.released {
		return nil, fmt.Errorf("gpu: buffer %q used after release", g.label)
	}
	return g, nil
}

func asTexture(t shell.Texture) (*gpuTexture, error) {
	g, ok := t.(*gpuTexture)
	if !ok || g == nil {
		return nil, fmt.Errorf("gpu: foreign texture %T", t)
	}
	if g.released {
		return nil, fmt.Errorf("gpu: texture %q used after release", g.label)
	}
	return g, nil
}

func bufferUsage(u shell.BufferUsage) wgpu.BufferUsage {
	usage := wgpu.BufferUsageCopyDst
	if u&shell.BufferUsageStorage != 0 {
		usage |= wgpu.BufferUsageStorage
	}
	if u&shell.BufferUsageUniform != 0 {
		usage |= wgpu.BufferUsageUniform
	}
	if u&shell.BufferUsageIndirect != 0 {
		usage |= wgpu.BufferUsageIndirect
	}
	if u&shell.BufferUsageVertex != 0 {
		usage |= wgpu.BufferUsageVertex
	}
	if u&shell.BufferUsageIndex != 0 {
		usage |= wgpu.BufferUsageIndex
	}
	return usage
}

func alignedSize(size uint64) uint64 {
	if size < minBufferSize {
		return minBufferSize
	}
	if size%4 != 0 {
		size += 4 - size%4
	}
	return size
}

func (b *Backend) CreateBuffer(label string, size uint64, usage shell.BufferUsage) (shell.Buffer, error) {
	buf, err := b.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: label,
		Size:  alignedSize(size),
		Usage: bufferUsage(usage),
	})
	if err != nil {
		return nil, fmt.Errorf("create buffer %q: %w", label, err)
	}
	return &gpuBuffer{backend: b, label: label, buf: buf}, nil
}

func (b *Backend) WriteBuffer(buf shell.Buffer, offset uint64, data []byte) error {
	g, err := asBuffer(buf)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	if offset+uint64(len(data)) > g.Size() {
		return fmt.Errorf("write buffer %q: %d bytes at %d overflow %d", g.label, len(data), offset, g.Size())
	}
	return b.Queue.WriteBuffer(g.buf, offset, data)
}

func (b *Backend) createTexture(label string, width, height int, format wgpu.TextureFormat, usage wgpu.TextureUsage) (*gpuTexture, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("create texture %q: invalid size %dx%d", label, width, height)
	}
	tex, err := b.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          wgpu.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture %q: %w", label, err)
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("create texture view %q: %w", label, err)
	}
	return &gpuTexture{
		id:     uuid.New(),
		label:  label,
		tex:    tex,
		view:   view,
		format: format,
		width:  width,
		height: height,
	}, nil
}

func (b *Backend) CreateRenderTexture(label string, width, height int) (shell.Texture, error) {
	return b.createTexture(label, width, height, RenderTextureFormat,
		wgpu.TextureUsageTextureBinding|wgpu.TextureUsageRenderAttachment|wgpu.TextureUsageCopySrc|wgpu.TextureUsageCopyDst)
}

// UploadTexture creates a sampled texture holding img.
func (b *Backend) UploadTexture(label string, img *image.RGBA) (shell.Texture, error) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	t, err := b.createTexture(label, w, h, RenderTextureFormat,
		wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopyDst)
	if err != nil {
		return nil, err
	}
	if err := b.writeTexture(t, img.Pix, img.Stride); err != nil {
		t.Release()
		return nil, err
	}
	return t, nil
}

func (b *Backend) writeTexture(t *gpuTexture, pix []byte, stride int) error {
	extent := wgpu.Extent3D{Width: uint32(t.width), Height: uint32(t.height), DepthOrArrayLayers: 1}
	err := b.Queue.WriteTexture(t.tex.AsImageCopy(), pix, &wgpu.TextureDataLayout{
		Offset:       0,
		BytesPerRow:  uint32(stride),
		RowsPerImage: uint32(t.height),
	}, &extent)
	if err != nil {
		return fmt.Errorf("write texture %q: %w", t.label, err)
	}
	return nil
}

func (b *Backend) solidTexture(label string, c [4]byte) (*gpuTexture, error) {
	t, err := b.createTexture(label, 1, 1, RenderTextureFormat,
		wgpu.TextureUsageTextureBinding|wgpu.TextureUsageCopyDst)
	if err != nil {
		return nil, err
	}
	if err := b.writeTexture(t, c[:], 4); err != nil {
		t.Release()
		return nil, err
	}
	return t, nil
}
