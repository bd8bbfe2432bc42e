package core

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// VertexFloats is position(3) + normal(3) + uv(2) + shell offset(1).
	VertexFloats = 9
	// TriangleStride is the byte size of one TriangleSample on the GPU.
	TriangleStride = VertexFloats * 3 * 4
)

// VertexSample matches the WGSL VertexData struct:
//
//	struct VertexData {
//	    pos: vec3<f32>,    // 0
//	    normal: vec3<f32>, // 12
//	    uv: vec2<f32>,     // 24
//	    offset: f32,       // 32
//	}                      // 36 bytes, tightly packed as an array<f32, 9>
type VertexSample struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	UV       mgl32.Vec2
	Offset   float32
}

type TriangleSample struct {
	V0, V1, V2 VertexSample
}

// BuildTriangles groups the mesh indices in triples and samples the
// referenced vertex attributes.
func BuildTriangles(m *Mesh) ([]TriangleSample, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	sample := func(i uint32) VertexSample {
		return VertexSample{Position: m.Vertices[i], Normal: m.Normals[i], UV: m.UVs[i]}
	}

	tris := make([]TriangleSample, 0, m.TriangleCount())
	for i := 0; i+2 < len(m.Indices); i += 3 {
		tris = append(tris, TriangleSample{
			V0: sample(m.Indices[i]),
			V1: sample(m.Indices[i+1]),
			V2: sample(m.Indices[i+2]),
		})
	}
	return tris, nil
}

// MarshalTriangles packs triangles for the structured input buffer.
func MarshalTriangles(tris []TriangleSample) []byte {
	buf := make([]byte, len(tris)*TriangleStride)
	for i, t := range tris {
		base := i * TriangleStride
		base = putVertex(buf, base, t.V0)
		base = putVertex(buf, base, t.V1)
		putVertex(buf, base, t.V2)
	}
	return buf
}

// UnmarshalTriangles is the inverse of MarshalTriangles. Trailing bytes that
// do not form a whole triangle are ignored.
func UnmarshalTriangles(data []byte) []TriangleSample {
	n := len(data) / TriangleStride
	tris := make([]TriangleSample, n)
	for i := range tris {
		base := i * TriangleStride
		var v0, v1, v2 VertexSample
		v0, base = readVertex(data, base)
		v1, base = readVertex(data, base)
		v2, _ = readVertex(data, base)
		tris[i] = TriangleSample{V0: v0, V1: v1, V2: v2}
	}
	return tris
}

func putVertex(buf []byte, off int, v VertexSample) int {
	vals := [VertexFloats]float32{
		v.Position[0], v.Position[1], v.Position[2],
		v.Normal[0], v.Normal[1], v.Normal[2],
		v.UV[0], v.UV[1],
		v.Offset,
	}
	for _, f := range vals {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(f))
		off += 4
	}
	return off
}

func readVertex(buf []byte, off int) (VertexSample, int) {
	var vals [VertexFloats]float32
	for i := range vals {
		vals[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
		off += 4
	}
	return VertexSample{
		Position: mgl32.Vec3{vals[0], vals[1], vals[2]},
		Normal:   mgl32.Vec3{vals[3], vals[4], vals[5]},
		UV:       mgl32.Vec2{vals[6], vals[7]},
		Offset:   vals[8],
	}, off
}
