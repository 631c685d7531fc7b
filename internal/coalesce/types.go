// Package coalesce implements the spatial-text coalesce engine: binding
// decoded grid postings to their subquery, stacking them across
// tile-zoom ancestry when more than one subquery is in play, and
// ranking the resulting contexts by relevance, score, and proximity.
package coalesce

import (
	"sort"

	"github.com/mapknit/geocache/pkg/grid"
	"github.com/mapknit/geocache/pkg/store"
)

// pow2_25 is the multiplier binding a subquery's source index into a
// cover's tmpid, matching the packed-integer layout used throughout
// the original grid/coalesce arithmetic.
const pow2_25 = 1 << 25

// Context is one candidate result: a primary cover plus any stacked
// ancestor covers from lower-zoom subqueries, together with the
// combined relevance and the union of every cover's query-token mask.
type Context struct {
	CoverList []grid.Cover
	Mask      uint32
	Relev     float64
}

// Subquery is one matched phrase bound to a posting store, the input
// unit coalesce operates over.
type Subquery struct {
	Cache       store.Store
	Weight      float64
	Phrase      string
	Prefix      store.PrefixMode
	Idx         uint16
	Zoom        uint16
	Mask        uint32
	Langfield   store.Langfield
	// ExtendedScan lifts the PrefixMaxGridLength cap on GetMatching for
	// this subquery, used by coalesceSingle when there is no stacking
	// to bound fan-out with.
	ExtendedScan bool
}

// ZXY is a proximity or bounding-box corner at a given zoom. Coalesce
// itself takes its proximity point and bounding box as *Proximity and
// *BBox, not as ZXY values.
type ZXY struct {
	Z, X, Y uint32
}

// bindCover applies the per-subquery fields that every coalesce path
// sets identically: idx, tmpid, and the weight-scaled relevance.
func bindCover(c grid.Cover, subq Subquery) grid.Cover {
	c.Idx = subq.Idx
	c.TmpID = uint32(c.Idx)*pow2_25 + c.FeatureID
	c.Relev = c.Relev * subq.Weight
	return c
}

// coverSortByRelev orders covers descending by relev, then scoredist,
// then ascending by idx, feature id, x, and finally y — a fully
// deterministic tiebreak chain.
func coverSortByRelev(covers []grid.Cover) {
	sort.SliceStable(covers, func(i, j int) bool {
		a, b := covers[i], covers[j]
		if a.Relev != b.Relev {
			return a.Relev > b.Relev
		}
		if a.ScoreDist != b.ScoreDist {
			return a.ScoreDist > b.ScoreDist
		}
		if a.Idx != b.Idx {
			return a.Idx < b.Idx
		}
		if a.FeatureID != b.FeatureID {
			return a.FeatureID < b.FeatureID
		}
		if a.X != b.X {
			return a.X < b.X
		}
		return a.Y < b.Y
	})
}

// subqSortByZoom orders subqueries ascending by zoom, then by idx;
// coalesceMulti relies on this to stack higher-zoom covers onto their
// lower-zoom ancestors in a single forward pass.
func subqSortByZoom(subqs []Subquery) {
	sort.SliceStable(subqs, func(i, j int) bool {
		if subqs[i].Zoom != subqs[j].Zoom {
			return subqs[i].Zoom < subqs[j].Zoom
		}
		return subqs[i].Idx < subqs[j].Idx
	})
}

// contextSortByRelev orders contexts descending by relev, then by the
// head cover's scoredist, idx, and feature id.
func contextSortByRelev(contexts []Context) {
	sort.SliceStable(contexts, func(i, j int) bool {
		a, b := contexts[i].CoverList[0], contexts[j].CoverList[0]
		if contexts[i].Relev != contexts[j].Relev {
			return contexts[i].Relev > contexts[j].Relev
		}
		if a.ScoreDist != b.ScoreDist {
			return a.ScoreDist > b.ScoreDist
		}
		if a.Idx != b.Idx {
			return a.Idx < b.Idx
		}
		return a.FeatureID < b.FeatureID
	})
}
