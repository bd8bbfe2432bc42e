package shell

import (
	"fmt"

	"github.com/gekko3d/grassfur/furrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

// SkinnedMesh owns the raw vertex streams of a deforming mesh. The
// animation system writes the deformed positions and normals with Deform;
// shell renderers borrow the buffers through SkinnedSource.
type SkinnedMesh struct {
	backend Backend
	mesh    *core.Mesh
	root    *core.Transform

	vertices Buffer
	indices  Buffer
	uvs      Buffer

	local core.AABB
}

func NewSkinnedMesh(backend Backend, m *core.Mesh, root *core.Transform) (*SkinnedMesh, error) {
	if m == nil {
		return nil, ErrNoMesh
	}
	streams, err := core.MarshalVertexStreams(m)
	if err != nil {
		return nil, err
	}
	if root == nil {
		root = core.NewTransform()
	}
	s := &SkinnedMesh{backend: backend, mesh: m, root: root, local: m.Bounds()}

	upload := func(label string, data []byte, usage BufferUsage) (Buffer, error) {
		buf, err := backend.CreateBuffer(label, uint64(len(data)), usage)
		if err != nil {
			return nil, err
		}
		if err := backend.WriteBuffer(buf, 0, data); err != nil {
			buf.Release()
			return nil, err
		}
		return buf, nil
	}

	if s.vertices, err = upload(m.Name+".vertices", streams[0], BufferUsageStorage|BufferUsageVertex); err != nil {
		return nil, fmt.Errorf("skinned vertices: %w", err)
	}
	if s.indices, err = upload(m.Name+".indices", core.MarshalIndices(m), BufferUsageStorage|BufferUsageIndex); err != nil {
		s.Release()
		return nil, fmt.Errorf("skinned indices: %w", err)
	}

	uv, _ := m.Layout.Attribute(core.AttributeTexCoord0)
	if uv.Stream == 0 {
		s.uvs = s.vertices
	} else if s.uvs, err = upload(m.Name+".uvs", streams[uv.Stream], BufferUsageStorage|BufferUsageVertex); err != nil {
		s.Release()
		return nil, fmt.Errorf("skinned uvs: %w", err)
	}
	return s, nil
}

func (s *SkinnedMesh) SharedMesh() *core.Mesh    { return s.mesh }
func (s *SkinnedMesh) VertexBuffer() Buffer      { return s.vertices }
func (s *SkinnedMesh) IndexBuffer() Buffer       { return s.indices }
func (s *SkinnedMesh) UVBuffer() Buffer          { return s.uvs }
func (s *SkinnedMesh) RootBone() *core.Transform { return s.root }

// Bounds is the world space box of the last deformed pose.
func (s *SkinnedMesh) Bounds() core.AABB {
	m := s.root.ObjectToWorld()
	lo, hi := s.local.Min, s.local.Max
	var out core.AABB
	for i := 0; i < 8; i++ {
		c := mgl32.Vec3{lo[0], lo[1], lo[2]}
		if i&1 != 0 {
			c[0] = hi[0]
		}
		if i&2 != 0 {
			c[1] = hi[1]
		}
		if i&4 != 0 {
			c[2] = hi[2]
		}
		w := mgl32.TransformCoordinate(c, m)
		if i == 0 {
			out = core.AABB{Min: w, Max: w}
			continue
		}
		out = out.Encapsulate(w)
	}
	return out
}

// Deform rewrites the deformed stream with one position and normal per
// mesh vertex.
func (s *SkinnedMesh) Deform(positions, normals []mgl32.Vec3) error {
	n := s.mesh.VertexCount()
	if len(positions) != n || len(normals) != n {
		return fmt.Errorf("%w: deform %q with %d positions and %d normals, want %d",
			ErrInvalidMesh, s.mesh.Name, len(positions), len(normals), n)
	}
	if s.vertices == nil {
		return fmt.Errorf("%w: %q released", ErrMissingResource, s.mesh.Name)
	}
	pose := *s.mesh
	pose.Vertices = positions
	pose.Normals = normals
	pose.RecalculateBounds()
	streams, err := core.MarshalVertexStreams(&pose)
	if err != nil {
		return err
	}
	if err := s.backend.WriteBuffer(s.vertices, 0, streams[0]); err != nil {
		return fmt.Errorf("deform %q: %w", s.mesh.Name, err)
	}
	s.local = pose.Bounds()
	return nil
}

func (s *SkinnedMesh) Release() {
	if s.uvs != nil && s.uvs != s.vertices {
		s.uvs.Release()
	}
	for _, b := range []Buffer{s.vertices, s.indices} {
		if b != nil {
			b.Release()
		}
	}
	s.vertices, s.indices, s.uvs = nil, nil, nil
}
