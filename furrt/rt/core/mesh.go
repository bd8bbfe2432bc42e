package core

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

var ErrInvalidMesh = errors.New("invalid mesh")

type IndexFormat uint8

const (
	IndexFormatUint16 IndexFormat = iota
	IndexFormatUint32
)

func (f IndexFormat) String() string {
	if f == IndexFormatUint16 {
		return "uint16"
	}
	return "uint32"
}

// AABB is an axis aligned bounding box.
type AABB struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

func NewAABBFromCenterSize(center, size mgl32.Vec3) AABB {
	half := size.Mul(0.5)
	return AABB{Min: center.Sub(half), Max: center.Add(half)}
}

func (b AABB) Center() mgl32.Vec3 { return b.Min.Add(b.Max).Mul(0.5) }
func (b AABB) Size() mgl32.Vec3   { return b.Max.Sub(b.Min) }

// Extents is half the size.
func (b AABB) Extents() mgl32.Vec3 { return b.Size().Mul(0.5) }

// Grow returns the box enlarged by amount on every side.
func (b AABB) Grow(amount mgl32.Vec3) AABB {
	return AABB{Min: b.Min.Sub(amount), Max: b.Max.Add(amount)}
}

func (b AABB) Encapsulate(p mgl32.Vec3) AABB {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
	return b
}

type VertexAttribute int

const (
	AttributePosition VertexAttribute = iota
	AttributeNormal
	AttributeTangent
	AttributeTexCoord0
)

// AttributeDescriptor locates one vertex attribute inside a raw vertex stream.
type AttributeDescriptor struct {
	Stream int
	Offset uint32
}

// VertexLayout describes how a mesh is laid out in raw GPU vertex streams.
type VertexLayout struct {
	Strides    []uint32
	Attributes map[VertexAttribute]AttributeDescriptor
}

// DefaultVertexLayout is the interleaved layout used when meshes are
// uploaded for skinning: stream 0 carries position, normal and tangent
// (40 bytes), stream 1 carries UV0 (8 bytes).
func DefaultVertexLayout() VertexLayout {
	return VertexLayout{
		Strides: []uint32{40, 8},
		Attributes: map[VertexAttribute]AttributeDescriptor{
			AttributePosition:  {Stream: 0, Offset: 0},
			AttributeNormal:    {Stream: 0, Offset: 12},
			AttributeTangent:   {Stream: 0, Offset: 24},
			AttributeTexCoord0: {Stream: 1, Offset: 0},
		},
	}
}

func (l VertexLayout) Attribute(attr VertexAttribute) (AttributeDescriptor, bool) {
	if l.Attributes == nil {
		return AttributeDescriptor{}, false
	}
	d, ok := l.Attributes[attr]
	return d, ok
}

func (l VertexLayout) Stride(stream int) uint32 {
	if stream < 0 || stream >= len(l.Strides) {
		return 0
	}
	return l.Strides[stream]
}

// Mesh is CPU-side source geometry for the shell generator.
type Mesh struct {
	Name        string
	Vertices    []mgl32.Vec3
	Normals     []mgl32.Vec3
	UVs         []mgl32.Vec2
	Indices     []uint32
	IndexFormat IndexFormat
	// Readable marks meshes whose data stays accessible after upload.
	// Skinned sources require it.
	Readable bool
	Layout   VertexLayout

	bounds AABB
}

// NewMesh builds a readable mesh, picks the narrowest index format and
// computes its bounds.
func NewMesh(name string, vertices, normals []mgl32.Vec3, uvs []mgl32.Vec2, indices []uint32) *Mesh {
	m := &Mesh{
		Name:     name,
		Vertices: vertices,
		Normals:  normals,
		UVs:      uvs,
		Indices:  indices,
		Readable: true,
		Layout:   DefaultVertexLayout(),
	}
	if len(vertices) > 0xFFFF {
		m.IndexFormat = IndexFormatUint32
	}
	m.RecalculateBounds()
	return m
}

func (m *Mesh) VertexCount() int   { return len(m.Vertices) }
func (m *Mesh) IndexCount() int    { return len(m.Indices) }
func (m *Mesh) TriangleCount() int { return len(m.Indices) / 3 }
func (m *Mesh) Bounds() AABB       { return m.bounds }

func (m *Mesh) RecalculateBounds() {
	if len(m.Vertices) == 0 {
		m.bounds = AABB{}
		return
	}
	b := AABB{Min: m.Vertices[0], Max: m.Vertices[0]}
	for _, v := range m.Vertices[1:] {
		b = b.Encapsulate(v)
	}
	m.bounds = b
}

// Validate checks that the mesh can be expanded into triangles.
func (m *Mesh) Validate() error {
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("%w: %q has %d indices, not a multiple of 3", ErrInvalidMesh, m.Name, len(m.Indices))
	}
	if len(m.Normals) < len(m.Vertices) || len(m.UVs) < len(m.Vertices) {
		return fmt.Errorf("%w: %q has %d vertices but %d normals and %d uvs",
			ErrInvalidMesh, m.Name, len(m.Vertices), len(m.Normals), len(m.UVs))
	}
	n := uint32(len(m.Vertices))
	for i, idx := range m.Indices {
		if idx >= n {
			return fmt.Errorf("%w: %q index %d at %d out of range", ErrInvalidMesh, m.Name, idx, i)
		}
	}
	if m.IndexFormat == IndexFormatUint16 && n > 0x10000 {
		return fmt.Errorf("%w: %q has %d vertices for 16-bit indices", ErrInvalidMesh, m.Name, n)
	}
	return nil
}
