package shell

import (
	"fmt"

	"github.com/gekko3d/grassfur/furrt/rt/core"
)

// SkinnedSource is a deforming mesh whose vertex buffer is rewritten by the
// skinning pass every frame. The shell renderer only borrows its buffers.
type SkinnedSource interface {
	SharedMesh() *core.Mesh
	VertexBuffer() Buffer
	IndexBuffer() Buffer
	UVBuffer() Buffer
	RootBone() *core.Transform
	Bounds() core.AABB
}

// SkinAttributeLayout describes where the kernel finds each attribute in
// the raw skinned buffers. Offsets and strides are in bytes.
type SkinAttributeLayout struct {
	VertexStride uint32
	NormalOffset uint32
	UVStream     int
	UVStride     uint32
	UVOffset     uint32
	IndexFormat  core.IndexFormat
}

// ResolveSkinLayout reads the attribute layout of m once. Position and
// normal must share the deformed stream 0.
func ResolveSkinLayout(m *core.Mesh) (SkinAttributeLayout, error) {
	pos, ok := m.Layout.Attribute(core.AttributePosition)
	if !ok || pos.Stream != 0 {
		return SkinAttributeLayout{}, fmt.Errorf("%w: %q has no position in stream 0", ErrInvalidMesh, m.Name)
	}
	nrm, ok := m.Layout.Attribute(core.AttributeNormal)
	if !ok || nrm.Stream != 0 {
		return SkinAttributeLayout{}, fmt.Errorf("%w: %q has no normal in stream 0", ErrInvalidMesh, m.Name)
	}
	uv, ok := m.Layout.Attribute(core.AttributeTexCoord0)
	if !ok {
		return SkinAttributeLayout{}, fmt.Errorf("%w: %q has no uv0", ErrInvalidMesh, m.Name)
	}

	l := SkinAttributeLayout{
		VertexStride: m.Layout.Stride(0),
		NormalOffset: nrm.Offset,
		UVStream:     uv.Stream,
		UVStride:     m.Layout.Stride(uv.Stream),
		UVOffset:     uv.Offset,
		IndexFormat:  m.IndexFormat,
	}
	if l.VertexStride == 0 || l.UVStride == 0 {
		return SkinAttributeLayout{}, fmt.Errorf("%w: %q has an empty vertex stream", ErrInvalidMesh, m.Name)
	}
	return l, nil
}

func (l SkinAttributeLayout) Variant() KernelVariant {
	if l.IndexFormat == core.IndexFormatUint32 {
		return KernelSkinned32
	}
	return KernelSkinned16
}
