package scoredist

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreDistMonotoneAndBeyondRadiusFloor(t *testing.T) {
	near := ScoreDist(14, 1, 3, 40)
	mid := ScoreDist(14, 10, 3, 40)
	far := ScoreDist(14, 100, 3, 40)

	assert.Greater(t, near, mid)
	assert.GreaterOrEqual(t, mid, far)
	assert.Equal(t, mid, far)
}

func TestScoreDistClampsScore(t *testing.T) {
	assert.Equal(t, ScoreDist(14, 5, 7, 40), ScoreDist(14, 5, 200, 40))
}

func TestScoreDistClampsLowZoom(t *testing.T) {
	assert.Equal(t, ScoreDist(6, 5, 3, 40), ScoreDist(2, 5, 3, 40))
}

func TestProximityRadiusTableCoversZ6To14(t *testing.T) {
	prev := ProximityRadius(14, 40)
	for z := uint32(13); z >= 6; z-- {
		r := ProximityRadius(z, 40)
		assert.Less(t, r, prev, "radius in tiles should shrink at lower zoom")
		prev = r
	}
}
