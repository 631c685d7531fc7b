package tile

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProximityToTargetZoomIdentity(t *testing.T) {
	z := ProximityToTargetZoom(10, 5, 6, 10)
	assert.Equal(t, ZXY{Z: 10, X: 5, Y: 6}, z)
}

func TestProximityToTargetZoomZoomIn(t *testing.T) {
	// z=6 -> target_z=14: Δ=8, zMult=7, pMid=2^8/2=128.
	z := ProximityToTargetZoom(6, 1, 1, 14)
	assert.Equal(t, uint32(14), z.Z)
	assert.Equal(t, uint32(1*7+128), z.X)
	assert.Equal(t, uint32(1*7+128), z.Y)
}

func TestBboxCornerToTargetZoomIdentity(t *testing.T) {
	z := BboxCornerToTargetZoom(8, 3, 4, 8, true)
	assert.Equal(t, ZXY{Z: 8, X: 3, Y: 4}, z)
}

func TestBboxCornerToTargetZoomZoomInMin(t *testing.T) {
	z := BboxCornerToTargetZoom(6, 1, 1, 8, false)
	assert.Equal(t, uint32(4), z.X) // mult=4, 1*4
	assert.Equal(t, uint32(4), z.Y)
}

func TestBboxCornerToTargetZoomZoomInMax(t *testing.T) {
	z := BboxCornerToTargetZoom(6, 1, 1, 8, true)
	assert.Equal(t, uint32(1*4+3), z.X) // mult-1 = 3
	assert.Equal(t, uint32(1*4+3), z.Y)
}

func TestBboxCornerToTargetZoomZoomOut(t *testing.T) {
	// z=8 -> target_z=6: mod = 2^(8-6) = 4, x=65 -> xDiff=1, newX=64; mult=2^-2=0.25
	z := BboxCornerToTargetZoom(8, 65, 70, 6, false)
	assert.Equal(t, uint32(6), z.Z)
	assert.Equal(t, uint32(16), z.X) // 64*0.25
}

func TestDistance(t *testing.T) {
	assert.Equal(t, 5.0, Distance(3, 0, 0, 4))
	assert.Equal(t, 0.0, Distance(2, 2, 2, 2))
}
