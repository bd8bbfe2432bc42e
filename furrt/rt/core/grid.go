package core

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	MinGridHalfCount = 1
	MaxGridHalfCount = 64
)

// Grid is a flat quad grid with one height per quad. Each quad owns its four
// vertices so heights can differ between neighbours.
type Grid struct {
	halfCount int
	size      float32
	heights   []float32
	mesh      *Mesh
}

// NewGrid builds a halfCount×halfCount grid of quads, each 2*size wide.
func NewGrid(halfCount int, size float32) *Grid {
	g := &Grid{}
	g.halfCount = clampInt(halfCount, MinGridHalfCount, MaxGridHalfCount)
	g.size = math32.Max(size, 0)
	g.regenerate()
	return g
}

// NewGridMesh is a convenience for callers that only need the mesh.
func NewGridMesh(halfCount int, size float32) *Mesh {
	return NewGrid(halfCount, size).Mesh()
}

func (g *Grid) Mesh() *Mesh        { return g.mesh }
func (g *Grid) HalfCount() int     { return g.halfCount }
func (g *Grid) Size() float32      { return g.size }
func (g *Grid) QuadCount() int     { return g.halfCount * g.halfCount }
func (g *Grid) Heights() []float32 { return g.heights }

// SetHalfCount rebuilds the grid; heights are reset.
func (g *Grid) SetHalfCount(n int) {
	n = clampInt(n, MinGridHalfCount, MaxGridHalfCount)
	if n == g.halfCount {
		return
	}
	g.halfCount = n
	g.regenerate()
}

func (g *Grid) SetSize(size float32) {
	size = math32.Max(size, 0)
	if size == g.size {
		return
	}
	g.size = size
	g.regenerate()
}

// SetHeight moves every vertex of quad index to height h. Out of range
// indices are ignored.
func (g *Grid) SetHeight(index int, h float32) bool {
	if index < 0 || index >= len(g.heights) {
		return false
	}
	g.heights[index] = h
	v := index * 4
	for i := v; i < v+4; i++ {
		g.mesh.Vertices[i][1] = h
	}
	g.mesh.RecalculateBounds()
	return true
}

func (g *Grid) regenerate() {
	n := g.halfCount
	quads := n * n
	g.heights = make([]float32, quads)

	vertices := make([]mgl32.Vec3, quads*4)
	normals := make([]mgl32.Vec3, quads*4)
	uvs := make([]mgl32.Vec2, quads*4)
	indices := make([]uint32, quads*6)

	offset := -g.size * float32(n-1)
	size2 := g.size * 2
	uvScale := 1 / float32(n)
	up := mgl32.Vec3{0, 1, 0}

	for i := 0; i < quads; i++ {
		col, row := i%n, i/n
		cx := offset + float32(col)*size2
		cz := offset + float32(row)*size2

		v := i * 4
		vertices[v+0] = mgl32.Vec3{cx - g.size, 0, cz - g.size}
		vertices[v+1] = mgl32.Vec3{cx + g.size, 0, cz - g.size}
		vertices[v+2] = mgl32.Vec3{cx + g.size, 0, cz + g.size}
		vertices[v+3] = mgl32.Vec3{cx - g.size, 0, cz + g.size}
		for k := 0; k < 4; k++ {
			normals[v+k] = up
		}

		u0, v0 := float32(col)*uvScale, float32(row)*uvScale
		uvs[v+0] = mgl32.Vec2{u0, v0}
		uvs[v+1] = mgl32.Vec2{u0 + uvScale, v0}
		uvs[v+2] = mgl32.Vec2{u0 + uvScale, v0 + uvScale}
		uvs[v+3] = mgl32.Vec2{u0, v0 + uvScale}

		t := i * 6
		vi := uint32(v)
		indices[t+0] = vi + 2
		indices[t+1] = vi + 1
		indices[t+2] = vi + 0
		indices[t+3] = vi + 0
		indices[t+4] = vi + 3
		indices[t+5] = vi + 2
	}

	g.mesh = NewMesh("grid", vertices, normals, uvs, indices)
}

// NewCubeMesh returns a unit cube centered on the origin: 24 vertices with
// per-face normals and 12 triangles.
func NewCubeMesh(size float32) *Mesh {
	h := size * 0.5
	faces := [6]struct {
		n, u, v mgl32.Vec3
	}{
		{mgl32.Vec3{0, 0, 1}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 0, -1}, mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 1, 0}},
		{mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, -1}},
		{mgl32.Vec3{0, -1, 0}, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 0, 1}},
	}

	var (
		vertices []mgl32.Vec3
		normals  []mgl32.Vec3
		uvs      []mgl32.Vec2
		indices  []uint32
	)
	corners := [4][2]float32{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}
	for _, f := range faces {
		base := uint32(len(vertices))
		for _, c := range corners {
			p := f.n.Add(f.u.Mul(c[0])).Add(f.v.Mul(c[1])).Mul(h)
			vertices = append(vertices, p)
			normals = append(normals, f.n)
			uvs = append(uvs, mgl32.Vec2{(c[0] + 1) * 0.5, (c[1] + 1) * 0.5})
		}
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	return NewMesh("cube", vertices, normals, uvs, indices)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
