package core

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// WorldToUV maps a world-space point into the normalized planar (X,Z) UV
// space of a mesh whose pivot sits at the center of its bounds. halfExtents
// is the maximum corner of the local bounds. Degenerate axes map to 0.5.
func WorldToUV(worldPos mgl32.Vec3, relativeTo *Transform, halfExtents mgl32.Vec3, invert bool) mgl32.Vec2 {
	local := worldPos
	if relativeTo != nil {
		local = relativeTo.InverseTransformPoint(worldPos)
	}

	uv := mgl32.Vec2{
		normalizeAxis(local.X(), halfExtents.X()),
		normalizeAxis(local.Z(), halfExtents.Z()),
	}
	if invert {
		uv = mgl32.Vec2{1, 1}.Sub(uv)
	}
	return uv
}

// WorldPlanarToUV is WorldToUV for a planar (x, z) world position at height 0.
func WorldPlanarToUV(planar mgl32.Vec2, relativeTo *Transform, halfExtents mgl32.Vec3, invert bool) mgl32.Vec2 {
	return WorldToUV(mgl32.Vec3{planar.X(), 0, planar.Y()}, relativeTo, halfExtents, invert)
}

// WorldScalarToUV converts a world-space length (radius, smoothness) into
// UV units using the larger planar side of the local bounds.
func WorldScalarToUV(value float32, localBoundsSize mgl32.Vec3) float32 {
	side := math32.Max(localBoundsSize.X(), localBoundsSize.Z())
	if side == 0 {
		return 0
	}
	return value / side
}

func normalizeAxis(v, half float32) float32 {
	if half == 0 {
		return 0.5
	}
	return (v + half) / (half * 2)
}
