package gpu

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gekko3d/grassfur/furrt/rt/core"
	"github.com/gekko3d/grassfur/furrt/rt/shell"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f32At(b []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
}

func TestPackFrame(t *testing.T) {
	vp := mgl32.Translate3D(1, 2, 3)
	buf := packFrame(vp, 4.5)
	require.Len(t, buf, FrameUniformsSize)
	assert.Equal(t, float32(1), f32At(buf, 48))
	assert.Equal(t, float32(3), f32At(buf, 56))
	assert.Equal(t, float32(4.5), f32At(buf, 64))
}

func TestPackMaterial(t *testing.T) {
	m := shell.NewMaterial("grass")
	var d0, d1 [core.MaxExplosions]mgl32.Vec4
	d0[2] = mgl32.Vec4{0.5, 0.25, 0.1, 0.2}
	d1[7] = mgl32.Vec4{3, 2, 0.1, 5}
	m.SetExplosionData(d0, d1)
	m.SetBrush(core.BrushState{Radius: 1, Intensity: 2, Smoothness: 3, Height: 4, Color: [4]float32{0.1, 0.2, 0.3, 1}})

	buf := packMaterial(m)
	require.Len(t, buf, 288)
	assert.Equal(t, float32(0.25), f32At(buf, 2*16+4))
	assert.Equal(t, float32(5), f32At(buf, 128+7*16+12))
	assert.Equal(t, float32(4), f32At(buf, 256+12))
	assert.Equal(t, float32(0.3), f32At(buf, 272+8))
}

func TestBufferUsageAndSize(t *testing.T) {
	u := bufferUsage(shell.BufferUsageIndirect | shell.BufferUsageStorage)
	assert.NotZero(t, u&wgpu.BufferUsageIndirect)
	assert.NotZero(t, u&wgpu.BufferUsageStorage)
	assert.NotZero(t, u&wgpu.BufferUsageCopyDst)
	assert.Zero(t, u&wgpu.BufferUsageUniform)

	assert.Equal(t, uint64(16), alignedSize(0))
	assert.Equal(t, uint64(16), alignedSize(16))
	assert.Equal(t, uint64(20), alignedSize(18))
}
