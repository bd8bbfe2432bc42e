package shell

import (
	"testing"

	"github.com/gekko3d/grassfur/furrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSkinnedMesh_Upload(t *testing.T) {
	be := newFakeBackend()
	m := core.NewCubeMesh(2)
	s, err := NewSkinnedMesh(be, m, nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(40*m.VertexCount()), s.VertexBuffer().Size())
	assert.Equal(t, uint64(8*m.VertexCount()), s.UVBuffer().Size())
	assert.Equal(t, uint64(m.IndexCount()*2), s.IndexBuffer().Size())

	idx := be.buffer("cube.indices")
	require.NotNil(t, idx)
	assert.Equal(t, m.Indices[1], uint32(idx.data[2])|uint32(idx.data[3])<<8)

	s.Release()
	assert.Equal(t, 0, be.live())
}

func TestSkinnedMesh_Deform(t *testing.T) {
	be := newFakeBackend()
	m := core.NewCubeMesh(2)
	root := core.NewTransform()
	root.Position = mgl32.Vec3{10, 0, 0}
	s, err := NewSkinnedMesh(be, m, root)
	require.NoError(t, err)

	pos := make([]mgl32.Vec3, m.VertexCount())
	for i, v := range m.Vertices {
		pos[i] = v.Mul(2)
	}
	require.NoError(t, s.Deform(pos, m.Normals))

	b := s.Bounds()
	assert.InDelta(t, 8, b.Min[0], 1e-5)
	assert.InDelta(t, 12, b.Max[0], 1e-5)

	vb := be.buffer("cube.vertices")
	assert.Equal(t, pos[3][1], f32At(vb.data, 3*40+4))

	assert.ErrorIs(t, s.Deform(pos[:2], m.Normals), ErrInvalidMesh)
}

func TestSkinnedMesh_DrivesRenderer(t *testing.T) {
	be := newFakeBackend()
	m := core.NewCubeMesh(2)
	s, err := NewSkinnedMesh(be, m, nil)
	require.NoError(t, err)

	r := NewRenderer(RendererOptions{Backend: be, Material: NewMaterial("fur"), Skin: s})
	require.NoError(t, r.Render(FrameContext{Playing: true, Dt: 0.016}, false))
	require.NotEmpty(t, be.dispatches)

	d := be.dispatches[len(be.dispatches)-1]
	assert.Equal(t, KernelSkinned16, d.Variant)
	assert.Same(t, s.VertexBuffer(), d.Vertices)
	assert.Same(t, s.UVBuffer(), d.UVs)

	r.Dispose()
	assert.Equal(t, 0, s.VertexBuffer().(*fakeBuffer).released, "renderer must not release borrowed skin buffers")
}
