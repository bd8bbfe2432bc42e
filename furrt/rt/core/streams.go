package core

import (
	"encoding/binary"
	"math"
)

// MarshalVertexStreams packs m into its raw GPU vertex streams following
// m.Layout. Attributes the mesh does not carry (tangents) are left zero.
func MarshalVertexStreams(m *Mesh) ([][]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	streams := make([][]byte, len(m.Layout.Strides))
	for s, stride := range m.Layout.Strides {
		streams[s] = make([]byte, int(stride)*m.VertexCount())
	}

	put := func(attr VertexAttribute, i int, vals ...float32) {
		d, ok := m.Layout.Attribute(attr)
		if !ok || d.Stream >= len(streams) {
			return
		}
		base := i*int(m.Layout.Stride(d.Stream)) + int(d.Offset)
		for k, v := range vals {
			binary.LittleEndian.PutUint32(streams[d.Stream][base+k*4:], math.Float32bits(v))
		}
	}

	for i := range m.Vertices {
		p, n, uv := m.Vertices[i], m.Normals[i], m.UVs[i]
		put(AttributePosition, i, p[0], p[1], p[2])
		put(AttributeNormal, i, n[0], n[1], n[2])
		put(AttributeTexCoord0, i, uv[0], uv[1])
	}
	return streams, nil
}

// MarshalIndices packs the index buffer in m.IndexFormat. 16-bit buffers
// are padded to a multiple of four bytes so they can be bound as storage.
func MarshalIndices(m *Mesh) []byte {
	if m.IndexFormat == IndexFormatUint32 {
		buf := make([]byte, len(m.Indices)*4)
		for i, idx := range m.Indices {
			binary.LittleEndian.PutUint32(buf[i*4:], idx)
		}
		return buf
	}
	size := len(m.Indices) * 2
	size = (size + 3) &^ 3
	buf := make([]byte, size)
	for i, idx := range m.Indices {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(idx))
	}
	return buf
}
