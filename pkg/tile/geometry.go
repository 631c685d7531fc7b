// Package tile implements zoom-level conversions used for proximity and
// bounding-box reasoning across indexes built at different tile zooms.
package tile

import "math"

// ZXY is a tile coordinate at a given zoom.
type ZXY struct {
	Z, X, Y uint32
}

// ProximityToTargetZoom converts the tile containing a proximity point at
// zoom z into its equivalent at target_z. With d = target_z - z, each
// coordinate becomes c*(d-1) + 2^d/2. The result is in general not a
// descendant of (x, y): (1, 1) at z=6 maps to (135, 135) at z=14, whose
// ancestor at z=6 is (0, 0).
func ProximityToTargetZoom(z, x, y, targetZ uint32) ZXY {
	if targetZ == z {
		return ZXY{Z: targetZ, X: x, Y: y}
	}

	zDist := int64(targetZ) - int64(z)
	zMult := zDist - 1

	pMid := int64(math.Pow(2, float64(zDist))) / 2
	nx := int64(x)*zMult + pMid
	ny := int64(y)*zMult + pMid
	return ZXY{Z: targetZ, X: uint32(nx), Y: uint32(ny)}
}

// BboxCornerToTargetZoom converts one corner (min or max, per isMax) of a
// bounding box at zoom z into its equivalent at target_z. For
// target_z < z (zoom out), (x,y) is first clamped to the parent tile that
// contains it before scaling down.
func BboxCornerToTargetZoom(z, x, y, targetZ uint32, isMax bool) ZXY {
	if targetZ == z {
		return ZXY{Z: targetZ, X: x, Y: y}
	}

	zDist := int64(targetZ) - int64(z)
	mult := math.Pow(2, float64(zDist))

	if zDist > 0 && !isMax {
		return ZXY{Z: targetZ, X: uint32(float64(x) * mult), Y: uint32(float64(y) * mult)}
	}
	if zDist > 0 && isMax {
		return ZXY{
			Z: targetZ,
			X: uint32(float64(x)*mult + (mult - 1)),
			Y: uint32(float64(y)*mult + (mult - 1)),
		}
	}

	// Zoom out: clamp to the parent tile at target_z, then scale down.
	mod := uint32(math.Pow(2, float64(-zDist)))
	newX := x - x%mod
	newY := y - y%mod
	return ZXY{Z: targetZ, X: uint32(float64(newX) * mult), Y: uint32(float64(newY) * mult)}
}

// Distance is the Euclidean distance between two tile-unit points.
func Distance(px, py, tileX, tileY uint32) float64 {
	dx := float64(px) - float64(tileX)
	dy := float64(py) - float64(tileY)
	return math.Sqrt(dx*dx + dy*dy)
}
