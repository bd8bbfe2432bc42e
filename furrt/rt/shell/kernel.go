package shell

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	ShellUniformsSize = 112
	IndirectArgsSize  = 16

	FlagLocalMotionVectors uint32 = 1 << 0
)

// ShellUniforms mirrors the kernel uniform block:
//
//	struct ShellParams {
//	    model: mat4x4<f32>,            // 0
//	    density: u32,                  // 64
//	    triangle_count: u32,           // 68
//	    offset: f32,                   // 72
//	    motion_intensity: f32,         // 76
//	    motion_shell_influence: f32,   // 80
//	    skin_scale: f32,               // 84
//	    vertex_stride: u32,            // 88
//	    normal_offset: u32,            // 92
//	    uv_stride: u32,                // 96
//	    uv_offset: u32,                // 100
//	    flags: u32,                    // 104
//	    vertex_count: u32,             // 108
//	}                                  // 112
type ShellUniforms struct {
	Model                mgl32.Mat4
	Density              uint32
	TriangleCount        uint32
	Offset               float32
	MotionIntensity      float32
	MotionShellInfluence float32
	SkinScale            float32
	VertexStride         uint32
	NormalOffset         uint32
	UVStride             uint32
	UVOffset             uint32
	Flags                uint32
	VertexCount          uint32
}

func (u ShellUniforms) Marshal() []byte {
	buf := make([]byte, ShellUniformsSize)
	for i, v := range u.Model {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	binary.LittleEndian.PutUint32(buf[64:], u.Density)
	binary.LittleEndian.PutUint32(buf[68:], u.TriangleCount)
	binary.LittleEndian.PutUint32(buf[72:], math.Float32bits(u.Offset))
	binary.LittleEndian.PutUint32(buf[76:], math.Float32bits(u.MotionIntensity))
	binary.LittleEndian.PutUint32(buf[80:], math.Float32bits(u.MotionShellInfluence))
	binary.LittleEndian.PutUint32(buf[84:], math.Float32bits(u.SkinScale))
	binary.LittleEndian.PutUint32(buf[88:], u.VertexStride)
	binary.LittleEndian.PutUint32(buf[92:], u.NormalOffset)
	binary.LittleEndian.PutUint32(buf[96:], u.UVStride)
	binary.LittleEndian.PutUint32(buf[100:], u.UVOffset)
	binary.LittleEndian.PutUint32(buf[104:], u.Flags)
	binary.LittleEndian.PutUint32(buf[108:], u.VertexCount)
	return buf
}

// Workgroups is the number of groups needed to cover every source triangle.
func Workgroups(triangleCount int, groupSize uint32) uint32 {
	if triangleCount <= 0 {
		return 0
	}
	if groupSize == 0 {
		groupSize = 1
	}
	return (uint32(triangleCount) + groupSize - 1) / groupSize
}

// IndirectArgs encodes a non-indexed indirect draw: vertex count, one
// instance, first vertex 0, first instance 0.
func IndirectArgs(vertexCount uint32) []byte {
	buf := make([]byte, IndirectArgsSize)
	binary.LittleEndian.PutUint32(buf[0:], vertexCount)
	binary.LittleEndian.PutUint32(buf[4:], 1)
	return buf
}
