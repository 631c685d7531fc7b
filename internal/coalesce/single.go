package coalesce

import (
	"math"

	"github.com/mapknit/geocache/pkg/grid"
	"github.com/mapknit/geocache/pkg/scoredist"
	"github.com/mapknit/geocache/pkg/store"
	"github.com/mapknit/geocache/pkg/tile"
)

// Proximity is an optional center point to rank candidates against.
type Proximity struct {
	Z, X, Y uint32
}

// BBox is an optional bounding box, at zoom Z, to restrict candidates to.
type BBox struct {
	Z, MinX, MinY, MaxX, MaxY uint32
}

const maxContexts = 40

// coalesceSingle handles the case of a single subquery that consumes
// the entire query: every cover comes from one index, so there is no
// cross-index stacking, only ranking and a feature-id cap.
func coalesceSingle(subq Subquery, prox *Proximity, bbox *BBox, radius float64) ([]Context, error) {
	maxResults := store.PrefixMaxGridLength
	if subq.ExtendedScan {
		maxResults = 0
	}

	raw, err := subq.Cache.GetMatching(subq.Phrase, subq.Prefix, subq.Langfield, maxResults)
	if err != nil {
		return nil, err
	}

	var (
		relevMax      float64
		covers        []grid.Cover
		length        uint32
		lastID        uint32
		lastRelev     float64
		lastScoreDist float64
		minScoreDist  = math.MaxFloat64
	)

	for _, n := range raw {
		cover := grid.Decode(n)

		if bbox != nil {
			if uint32(cover.X) < bbox.MinX || uint32(cover.Y) < bbox.MinY ||
				uint32(cover.X) > bbox.MaxX || uint32(cover.Y) > bbox.MaxY {
				continue
			}
		}

		cover = bindCover(cover, subq)

		if prox != nil {
			var last *grid.Cover
			if len(covers) > 0 {
				last = &covers[len(covers)-1]
			}
			if last != nil && last.X == cover.X && last.Y == cover.Y && last.Score == cover.Score {
				cover.Distance = last.Distance
				cover.ScoreDist = last.ScoreDist
			} else {
				cover.Distance = tile.Distance(prox.X, prox.Y, uint32(cover.X), uint32(cover.Y))
				cover.ScoreDist = scoredist.ScoreDist(prox.Z, cover.Distance, cover.Score, radius)
			}
			if !cover.MatchesLanguage && cover.Distance > scoredist.ProximityRadius(prox.Z, radius) {
				cover.Relev *= 0.96
			}
		} else {
			cover.Distance = 0
			cover.ScoreDist = float64(cover.Score)
			if !cover.MatchesLanguage {
				cover.Relev *= 0.96
			}
		}

		// Only keep a cover for an id already seen if it scores higher.
		if lastID == cover.FeatureID && cover.ScoreDist <= lastScoreDist {
			continue
		}

		if length > maxContexts {
			if cover.ScoreDist < minScoreDist {
				continue
			}
			if cover.Relev < lastRelev {
				break
			}
		}
		if relevMax-cover.Relev >= 0.25 {
			break
		}
		if cover.Relev > relevMax {
			relevMax = cover.Relev
		}

		covers = append(covers, cover)
		if lastID != cover.FeatureID {
			length++
		}
		if prox == nil && length > maxContexts {
			break
		}
		if cover.ScoreDist < minScoreDist {
			minScoreDist = cover.ScoreDist
		}
		lastID = cover.FeatureID
		lastRelev = cover.Relev
		lastScoreDist = cover.ScoreDist
	}

	coverSortByRelev(covers)

	var contexts []Context
	var lastFeatureID uint32
	var addedAny bool
	for _, cover := range covers {
		if len(contexts) == maxContexts {
			break
		}
		if addedAny && lastFeatureID == cover.FeatureID {
			continue
		}
		lastFeatureID = cover.FeatureID
		addedAny = true

		contexts = append(contexts, Context{
			CoverList: []grid.Cover{cover},
			Mask:      0,
			Relev:     cover.Relev,
		})
	}
	return contexts, nil
}
