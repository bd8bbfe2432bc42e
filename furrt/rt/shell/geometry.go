package shell

import (
	"fmt"

	"github.com/gekko3d/grassfur/furrt/rt/core"
)

// GeometrySource is the base mesh of an instance. A non-nil Skin selects
// skinned mode and its shared mesh replaces Mesh.
type GeometrySource struct {
	Mesh *core.Mesh
	Skin SkinnedSource
}

func (s GeometrySource) Skinned() bool { return s.Skin != nil }

func (s GeometrySource) SourceMesh() *core.Mesh {
	if s.Skin != nil {
		return s.Skin.SharedMesh()
	}
	return s.Mesh
}

// GeometryBinding holds the kernel inputs for one instance. Input and
// Previous are owned; the skin buffers are borrowed from the SkinnedSource.
type GeometryBinding struct {
	Variant       KernelVariant
	Skinned       bool
	TriangleCount int
	IndexCount    int
	VertexCount   int
	Layout        SkinAttributeLayout

	Input    Buffer
	Previous Buffer

	Vertices Buffer
	Indices  Buffer
	UVs      Buffer
}

// BuildGeometry prepares the kernel inputs of src. In static mode the mesh
// is expanded into triangle samples and uploaded; in skinned mode the live
// skin buffers are bound and the attribute layout resolved.
func BuildGeometry(backend Backend, src GeometrySource, params *core.ShellParameters) (*GeometryBinding, error) {
	m := src.SourceMesh()
	if m == nil {
		return nil, ErrNoMesh
	}
	if src.Skinned() && !m.Readable {
		return nil, fmt.Errorf("%w: %q", ErrMeshNotReadable, m.Name)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if m.TriangleCount() == 0 {
		return nil, fmt.Errorf("%w: %q has no triangles", ErrInvalidMesh, m.Name)
	}

	g := &GeometryBinding{
		Skinned:       src.Skinned(),
		TriangleCount: m.TriangleCount(),
		IndexCount:    m.IndexCount(),
		VertexCount:   m.VertexCount(),
	}

	if !g.Skinned {
		tris, err := core.BuildTriangles(m)
		if err != nil {
			return nil, err
		}
		data := core.MarshalTriangles(tris)
		g.Variant = KernelDefault
		g.Input, err = backend.CreateBuffer("ShellInputTriangles", uint64(len(data)), BufferUsageStorage)
		if err != nil {
			return nil, fmt.Errorf("input triangles: %w", err)
		}
		if err := backend.WriteBuffer(g.Input, 0, data); err != nil {
			g.Release()
			return nil, fmt.Errorf("input triangles: %w", err)
		}
		return g, nil
	}

	layout, err := ResolveSkinLayout(m)
	if err != nil {
		return nil, err
	}
	g.Layout = layout
	g.Variant = layout.Variant()
	g.Vertices = src.Skin.VertexBuffer()
	g.Indices = src.Skin.IndexBuffer()
	g.UVs = src.Skin.UVBuffer()
	if g.Vertices == nil || g.Indices == nil || g.UVs == nil {
		return nil, fmt.Errorf("%w: skin buffers for %q", ErrMissingResource, m.Name)
	}

	if params != nil && params.SkinMotionVectors() {
		g.Previous, err = backend.CreateBuffer("ShellSkinPrevious", uint64(g.VertexCount*12), BufferUsageStorage)
		if err != nil {
			return nil, fmt.Errorf("previous positions: %w", err)
		}
	}
	return g, nil
}

// OutputSize is the byte size of the generated shell triangle buffer.
func (g *GeometryBinding) OutputSize(density int) uint64 {
	return uint64(g.TriangleCount) * uint64(density) * core.TriangleStride
}

// Release frees owned buffers only.
func (g *GeometryBinding) Release() {
	if g == nil {
		return
	}
	if g.Input != nil {
		g.Input.Release()
		g.Input = nil
	}
	if g.Previous != nil {
		g.Previous.Release()
		g.Previous = nil
	}
	g.Vertices, g.Indices, g.UVs = nil, nil, nil
}
