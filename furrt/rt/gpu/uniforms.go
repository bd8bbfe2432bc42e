package gpu

import (
	"encoding/binary"
	"math"

	"github.com/gekko3d/grassfur/furrt/rt/core"
	"github.com/gekko3d/grassfur/furrt/rt/shell"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	// FrameUniformsSize: view_proj(64) + time(4) + pad(12).
	FrameUniformsSize = 80
	// MaterialUniformsSize: explosions0/1 (2 * 8 * 16) + brush0/1 (32).
	MaterialUniformsSize = 2*core.MaxExplosions*16 + 32
)

func putVec4(buf []byte, off int, v mgl32.Vec4) {
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[off+i*4:], math.Float32bits(f))
	}
}

func packFrame(viewProj mgl32.Mat4, time float32) []byte {
	buf := make([]byte, FrameUniformsSize)
	for i, v := range viewProj {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	binary.LittleEndian.PutUint32(buf[64:], math.Float32bits(time))
	return buf
}

// packMaterial lays out the per-material uniform block:
//
//	struct MaterialUniforms {
//	    explosions0: array<vec4<f32>, 8>, // 0
//	    explosions1: array<vec4<f32>, 8>, // 128
//	    brush0: vec4<f32>,                // 256
//	    brush1: vec4<f32>,                // 272
//	}                                     // 288
func packMaterial(m *shell.Material) []byte {
	buf := make([]byte, MaterialUniformsSize)
	for i, v := range m.Explosions0 {
		putVec4(buf, i*16, v)
	}
	for i, v := range m.Explosions1 {
		putVec4(buf, 128+i*16, v)
	}
	putVec4(buf, 256, m.BrushData0)
	putVec4(buf, 272, m.BrushData1)
	return buf
}
