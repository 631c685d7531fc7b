// Package grid implements the 64-bit posting codec: the packed integer
// representation of a single grid entry (relevance bucket, score, tile
// x/y, feature id, language-match boost) and the delta-coded varint
// stream used to store many postings compactly in a posting-store value.
package grid

// Cover is a decoded posting, enriched with fields that only make sense
// once it has been bound to a subquery and scored.
type Cover struct {
	Relev           float64
	Score           uint16
	X               uint16
	Y               uint16
	FeatureID       uint32
	MatchesLanguage bool

	// Set after binding to a PhrasematchSubq.
	Idx   uint16
	Mask  uint32
	TmpID uint32

	// Set after proximity scoring.
	Distance  float64
	ScoreDist float64
}
