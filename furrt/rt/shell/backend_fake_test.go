package shell

import (
	"errors"
	"fmt"

	"github.com/gekko3d/grassfur/furrt/rt/core"
	"github.com/google/uuid"
)

type fakeBuffer struct {
	label    string
	size     uint64
	usage    BufferUsage
	data     []byte
	released int
}

func (b *fakeBuffer) Size() uint64 { return b.size }
func (b *fakeBuffer) Release()     { b.released++ }

type fakeTexture struct {
	id       uuid.UUID
	label    string
	w, h     int
	released int
}

func newFakeTexture(label string, w, h int) *fakeTexture {
	return &fakeTexture{id: uuid.New(), label: label, w: w, h: h}
}

func (t *fakeTexture) ID() uuid.UUID { return t.id }
func (t *fakeTexture) Width() int    { return t.w }
func (t *fakeTexture) Height() int   { return t.h }
func (t *fakeTexture) Release()      { t.released++ }

// fakeBackend records every call so tests can assert on the GPU traffic.
type fakeBackend struct {
	noKernel  bool
	groupSize uint32
	failDraw  error
	failRT    error

	buffers    []*fakeBuffer
	textures   []*fakeTexture
	dispatches []ShellDispatch
	blits      []BlitRequest
	copies     int
	draws      []IndirectDraw
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{groupSize: 64}
}

func (f *fakeBackend) KernelAvailable() bool                { return !f.noKernel }
func (f *fakeBackend) ThreadGroupSize(KernelVariant) uint32 { return f.groupSize }

func (f *fakeBackend) CreateBuffer(label string, size uint64, usage BufferUsage) (Buffer, error) {
	if size == 0 {
		return nil, fmt.Errorf("buffer %s: zero size", label)
	}
	b := &fakeBuffer{label: label, size: size, usage: usage, data: make([]byte, size)}
	f.buffers = append(f.buffers, b)
	return b, nil
}

func (f *fakeBackend) WriteBuffer(buf Buffer, offset uint64, data []byte) error {
	b, ok := buf.(*fakeBuffer)
	if !ok {
		return errors.New("foreign buffer")
	}
	if offset+uint64(len(data)) > b.size {
		return fmt.Errorf("write %s out of range", b.label)
	}
	copy(b.data[offset:], data)
	return nil
}

func (f *fakeBackend) CreateRenderTexture(label string, w, h int) (Texture, error) {
	if f.failRT != nil {
		return nil, f.failRT
	}
	t := newFakeTexture(label, w, h)
	f.textures = append(f.textures, t)
	return t, nil
}

func (f *fakeBackend) Dispatch(d ShellDispatch) error {
	f.dispatches = append(f.dispatches, d)
	return nil
}

func (f *fakeBackend) Blit(req BlitRequest) error {
	f.blits = append(f.blits, req)
	return nil
}

func (f *fakeBackend) CopyTexture(src, dst Texture) error {
	f.copies++
	return nil
}

func (f *fakeBackend) DrawIndirect(draw IndirectDraw) error {
	if f.failDraw != nil {
		return f.failDraw
	}
	f.draws = append(f.draws, draw)
	return nil
}

func (f *fakeBackend) buffer(label string) *fakeBuffer {
	for i := len(f.buffers) - 1; i >= 0; i-- {
		if f.buffers[i].label == label {
			return f.buffers[i]
		}
	}
	return nil
}

// live counts buffers not yet released.
func (f *fakeBackend) live() int {
	n := 0
	for _, b := range f.buffers {
		if b.released == 0 {
			n++
		}
	}
	return n
}

type fakeSkin struct {
	mesh              *core.Mesh
	vertices, indices Buffer
	uvs               Buffer
	bone              *core.Transform
	bounds            core.AABB
}

func newFakeSkin(m *core.Mesh) *fakeSkin {
	return &fakeSkin{
		mesh:     m,
		vertices: &fakeBuffer{label: "skin.vertices", size: uint64(m.VertexCount() * 40)},
		indices:  &fakeBuffer{label: "skin.indices", size: uint64(m.IndexCount() * 2)},
		uvs:      &fakeBuffer{label: "skin.uvs", size: uint64(m.VertexCount() * 8)},
		bone:     core.NewTransform(),
		bounds:   m.Bounds(),
	}
}

func (s *fakeSkin) SharedMesh() *core.Mesh    { return s.mesh }
func (s *fakeSkin) VertexBuffer() Buffer      { return s.vertices }
func (s *fakeSkin) IndexBuffer() Buffer       { return s.indices }
func (s *fakeSkin) UVBuffer() Buffer          { return s.uvs }
func (s *fakeSkin) RootBone() *core.Transform { return s.bone }
func (s *fakeSkin) Bounds() core.AABB         { return s.bounds }

type fakeDownsample struct {
	active bool
	queue  []IndirectSource
}

func (d *fakeDownsample) Active() bool { return d.active }
func (d *fakeDownsample) Enqueue(src IndirectSource) {
	d.queue = append(d.queue, src)
}

type recLogger struct {
	nopLogger
	warnings []string
}

func (l *recLogger) Warnf(format string, args ...any) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}
