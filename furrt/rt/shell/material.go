package shell

import (
	"github.com/gekko3d/grassfur/furrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

type TextureSlot int

const (
	TextureMask TextureSlot = iota
	TextureAddColor
	TextureStyle
	TextureTracking
)

func (s TextureSlot) String() string {
	switch s {
	case TextureMask:
		return "_MainTex"
	case TextureAddColor:
		return "_AddColorTex"
	case TextureStyle:
		return "_StyleTex"
	case TextureTracking:
		return "_TrackingTex"
	}
	return "unknown"
}

// Feature is a material keyword that enables a runtime effect.
type Feature string

const (
	FeatureTracking   Feature = "GNF_TRACKING"
	FeatureExplosions Feature = "GNF_EXPLOSIONS"
	FeatureDownsample Feature = "GNF_DOWNSAMPLE"
)

// Material is the property sheet read by the shell draw pass.
type Material struct {
	ID   uuid.UUID
	Name string

	OutTriangles Buffer

	Explosions0 [core.MaxExplosions]mgl32.Vec4
	Explosions1 [core.MaxExplosions]mgl32.Vec4

	BrushData0 mgl32.Vec4
	BrushData1 mgl32.Vec4

	textures map[TextureSlot]Texture
	features map[Feature]bool
	version  uint64
}

func NewMaterial(name string, features ...Feature) *Material {
	m := &Material{
		ID:       uuid.New(),
		Name:     name,
		textures: make(map[TextureSlot]Texture),
		features: make(map[Feature]bool),
	}
	for _, f := range features {
		m.features[f] = true
	}
	return m
}

func (m *Material) SetTexture(slot TextureSlot, tex Texture) {
	if m.textures[slot] == tex {
		return
	}
	m.textures[slot] = tex
	m.version++
}

func (m *Material) Texture(slot TextureSlot) Texture {
	return m.textures[slot]
}

func (m *Material) EnableFeature(f Feature)  { m.features[f] = true }
func (m *Material) DisableFeature(f Feature) { delete(m.features, f) }

func (m *Material) IsFeatureEnabled(f Feature) bool {
	return m.features[f]
}

func (m *Material) SetOutputBuffer(buf Buffer) {
	if m.OutTriangles == buf {
		return
	}
	m.OutTriangles = buf
	m.version++
}

func (m *Material) SetExplosionData(d0, d1 [core.MaxExplosions]mgl32.Vec4) {
	m.Explosions0 = d0
	m.Explosions1 = d1
}

func (m *Material) SetBrush(b core.BrushState) {
	m.BrushData0, m.BrushData1 = b.Pack()
}

// Version changes whenever a bound resource changes, so backends can
// rebuild bind groups lazily.
func (m *Material) Version() uint64 { return m.version }
