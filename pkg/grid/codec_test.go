package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := Cover{
		Relev:           0.8,
		Score:           3,
		X:               100,
		Y:               200,
		FeatureID:       42,
		MatchesLanguage: true,
	}

	raw := Encode(c)
	want := uint64(2)<<51 | uint64(3)<<48 | uint64(200)<<34 | uint64(100)<<20 | 42 | uint64(1)<<63
	assert.Equal(t, want, raw)

	decoded := Decode(raw)
	assert.Equal(t, c.Relev, decoded.Relev)
	assert.Equal(t, c.Score, decoded.Score)
	assert.Equal(t, c.X, decoded.X)
	assert.Equal(t, c.Y, decoded.Y)
	assert.Equal(t, c.FeatureID, decoded.FeatureID)
	assert.Equal(t, c.MatchesLanguage, decoded.MatchesLanguage)

	// Derived-only fields reset to zero after decode.
	assert.Zero(t, decoded.Idx)
	assert.Zero(t, decoded.Mask)
	assert.Zero(t, decoded.TmpID)
	assert.Zero(t, decoded.Distance)
	assert.Zero(t, decoded.ScoreDist)
}

func TestEncodeDecodeAllRelevBuckets(t *testing.T) {
	for bucket, relev := range map[int]float64{0: 0.4, 1: 0.6, 2: 0.8, 3: 1.0} {
		c := Cover{Relev: relev, Score: 5, X: 1, Y: 1, FeatureID: uint32(bucket)}
		decoded := Decode(Encode(c))
		require.Equal(t, relev, decoded.Relev)
	}
}

func TestDecodeWithoutLanguageMatch(t *testing.T) {
	c := Cover{Relev: 0.4, Score: 0, X: 0, Y: 0, FeatureID: 7, MatchesLanguage: false}
	decoded := Decode(Encode(c))
	assert.False(t, decoded.MatchesLanguage)
}
