package grid

import "math"

// Bit layout, LSB to MSB:
//
//	bits 0-19  (20 bits): feature_id
//	bits 20-33 (14 bits): x tile column
//	bits 34-47 (14 bits): y tile row
//	bits 48-50 ( 3 bits): score (0..7)
//	bits 51-52 ( 2 bits): relev_bucket -> relev = 0.4 + 0.2*bucket
//	bit  63            : language_match_boost
//
// Reserved bits (53-62) are kept zero. Ordering by raw value descending
// places higher-relev, higher-score, language-matched postings first.
const (
	featureIDBits = 20
	xBits         = 14
	yBits         = 14
	scoreBits     = 3
	relevBits     = 2

	xShift     = featureIDBits
	yShift     = xShift + xBits
	scoreShift = yShift + yBits
	relevShift = scoreShift + scoreBits

	featureIDMask = uint64(1)<<featureIDBits - 1
	xMask         = uint64(1)<<xBits - 1
	yMask         = uint64(1)<<yBits - 1
	scoreMask     = uint64(1)<<scoreBits - 1
	relevMask     = uint64(1)<<relevBits - 1

	// LanguageMatchBoost is bit 63, set post-decode when a posting's
	// stored langfield intersects the query's langfield.
	LanguageMatchBoost = uint64(1) << 63
)

// Encode packs a Cover into its raw 64-bit posting representation.
// relev_bucket is recovered from Cover.Relev via the inverse of
// relev = 0.4 + 0.2*bucket; callers are expected to pass one of the four
// valid relev values (0.4, 0.6, 0.8, 1.0).
func Encode(c Cover) uint64 {
	bucket := uint64(math.Round((c.Relev - 0.4) / 0.2))
	var n uint64
	n |= uint64(c.FeatureID) & featureIDMask
	n |= (uint64(c.X) & xMask) << xShift
	n |= (uint64(c.Y) & yMask) << yShift
	n |= (uint64(c.Score) & scoreMask) << scoreShift
	n |= (bucket & relevMask) << relevShift
	if c.MatchesLanguage {
		n |= LanguageMatchBoost
	}
	return n
}

// Decode unpacks a raw 64-bit posting into a Cover. Idx, Mask, TmpID,
// Distance, and ScoreDist are left at their zero value; callers fill
// them in once the posting is bound to a subquery.
func Decode(n uint64) Cover {
	y := uint16((n >> yShift) & yMask)
	x := uint16((n >> xShift) & xMask)
	score := uint16((n >> scoreShift) & scoreMask)
	featureID := uint32(n & featureIDMask)
	bucket := (n >> relevShift) & relevMask
	matchesLanguage := n&LanguageMatchBoost != 0

	return Cover{
		Relev:           [4]float64{0.4, 0.6, 0.8, 1.0}[bucket],
		Score:           score,
		X:               x,
		Y:               y,
		FeatureID:       featureID,
		MatchesLanguage: matchesLanguage,
	}
}
