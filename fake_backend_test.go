package grassfur

import (
	"github.com/gekko3d/grassfur/furrt/rt/shell"
	"github.com/google/uuid"
)

type recBuffer struct {
	size     uint64
	released bool
}

func (b *recBuffer) Size() uint64 { return b.size }
func (b *recBuffer) Release()     { b.released = true }

type recTexture struct {
	id   uuid.UUID
	w, h int
}

func (t *recTexture) ID() uuid.UUID { return t.id }
func (t *recTexture) Width() int    { return t.w }
func (t *recTexture) Height() int   { return t.h }
func (t *recTexture) Release()      {}

// recBackend counts the GPU work fur instances submit.
type recBackend struct {
	noKernel   bool
	failRT     error
	buffers    []*recBuffer
	dispatches []shell.ShellDispatch
	draws      []shell.IndirectDraw
	blits      int
}

func (f *recBackend) KernelAvailable() bool                      { return !f.noKernel }
func (f *recBackend) ThreadGroupSize(shell.KernelVariant) uint32 { return 64 }

func (f *recBackend) CreateBuffer(label string, size uint64, usage shell.BufferUsage) (shell.Buffer, error) {
	b := &recBuffer{size: size}
	f.buffers = append(f.buffers, b)
	return b, nil
}

func (f *recBackend) WriteBuffer(buf shell.Buffer, offset uint64, data []byte) error { return nil }

func (f *recBackend) CreateRenderTexture(label string, w, h int) (shell.Texture, error) {
	if f.failRT != nil {
		return nil, f.failRT
	}
	return &recTexture{id: uuid.New(), w: w, h: h}, nil
}

func (f *recBackend) Dispatch(d shell.ShellDispatch) error {
	f.dispatches = append(f.dispatches, d)
	return nil
}

func (f *recBackend) Blit(shell.BlitRequest) error {
	f.blits++
	return nil
}

func (f *recBackend) CopyTexture(src, dst shell.Texture) error { return nil }

func (f *recBackend) DrawIndirect(draw shell.IndirectDraw) error {
	f.draws = append(f.draws, draw)
	return nil
}

func (f *recBackend) live() int {
	n := 0
	for _, b := range f.buffers {
		if !b.released {
			n++
		}
	}
	return n
}

// backendModule installs a recording backend as the GPU resource.
type backendModule struct {
	backend *recBackend
}

func (m backendModule) Install(app *App, cmd *Commands) {
	ensureSingleBackend(app, "recording")
	cmd.AddResources(m.backend)
}
