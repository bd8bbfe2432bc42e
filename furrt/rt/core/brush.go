package core

import "github.com/go-gl/mathgl/mgl32"

// BrushState is the painter's current brush, forwarded to the mask blitter.
type BrushState struct {
	Radius     float32
	Intensity  float32
	Smoothness float32
	Height     float32
	Color      [4]float32
}

// Pack returns the two vec4 the blitter reads: shape parameters and color.
func (b BrushState) Pack() (mgl32.Vec4, mgl32.Vec4) {
	return mgl32.Vec4{b.Radius, b.Intensity, b.Smoothness, b.Height},
		mgl32.Vec4(b.Color)
}
