package shell

import (
	"github.com/gekko3d/grassfur/furrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

type BufferUsage uint32

const (
	BufferUsageStorage BufferUsage = 1 << iota
	BufferUsageUniform
	BufferUsageIndirect
	BufferUsageVertex
	BufferUsageIndex
)

// Buffer is a GPU buffer owned by whoever created it.
type Buffer interface {
	Size() uint64
	Release()
}

// Texture is a sampled 2D texture or render target.
type Texture interface {
	ID() uuid.UUID
	Width() int
	Height() int
	Release()
}

// KernelVariant selects the entry point of the shell builder kernel.
type KernelVariant int

const (
	KernelDefault KernelVariant = iota
	KernelSkinned16
	KernelSkinned32
)

func (k KernelVariant) String() string {
	switch k {
	case KernelDefault:
		return "build_default"
	case KernelSkinned16:
		return "build_skinned16"
	case KernelSkinned32:
		return "build_skinned32"
	}
	return "unknown"
}

// ShellDispatch is one run of the shell builder kernel. Static dispatches
// read Input; skinned dispatches read Vertices, Indices and UVs, plus
// Previous when local motion vectors are on. Previous is read by the
// builder and then overwritten with the current positions of VertexCount
// vertices, after every triangle has been built.
type ShellDispatch struct {
	Variant    KernelVariant
	Uniforms   Buffer
	Input      Buffer
	Vertices   Buffer
	Indices    Buffer
	UVs        Buffer
	Previous   Buffer
	Output     Buffer
	Workgroups uint32

	VertexCount uint32
}

// IndirectDraw is everything needed to draw an instance's generated shells.
type IndirectDraw struct {
	World       mgl32.Mat4
	Bounds      core.AABB
	Output      Buffer
	Args        Buffer
	VertexCount uint32
	Material    *Material
}

type BlitPass string

const (
	PassMotionClear       BlitPass = "motion_clear"
	PassTrackingDirectSet BlitPass = "tracking_direct_set"
)

// BlitRequest renders Source into Dest with a mask-blit pass. Marks holds
// the packed tracking table for PassTrackingDirectSet.
type BlitRequest struct {
	Pass   BlitPass
	Source Texture
	Dest   Texture
	Marks  Buffer
}

// Backend is the GPU device as seen by the shell renderer.
type Backend interface {
	// KernelAvailable reports whether the shell builder kernel compiled.
	KernelAvailable() bool
	ThreadGroupSize(variant KernelVariant) uint32

	CreateBuffer(label string, size uint64, usage BufferUsage) (Buffer, error)
	WriteBuffer(buf Buffer, offset uint64, data []byte) error
	CreateRenderTexture(label string, width, height int) (Texture, error)

	Dispatch(d ShellDispatch) error
	Blit(req BlitRequest) error
	CopyTexture(src, dst Texture) error
	DrawIndirect(draw IndirectDraw) error
}

// IndirectSource is anything a compositor can pull draw data from.
type IndirectSource interface {
	ID() uuid.UUID
	IndirectDrawData() (IndirectDraw, bool)
}

// DownsampleTarget collects instances drawn into a reduced resolution
// target instead of directly.
type DownsampleTarget interface {
	Active() bool
	Enqueue(src IndirectSource)
}

// FrameContext is the per-frame input from the frame driver.
type FrameContext struct {
	Time    float32
	Dt      float32
	Playing bool
}
