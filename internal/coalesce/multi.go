package coalesce

import (
	"math"
	"sort"

	"github.com/mapknit/geocache/pkg/grid"
	"github.com/mapknit/geocache/pkg/scoredist"
	"github.com/mapknit/geocache/pkg/store"
	"github.com/mapknit/geocache/pkg/tile"
)

const (
	pow2_28 = 1 << 28
	pow2_14 = 1 << 14
)

// coalesceMulti handles the case where more than one subquery must be
// stacked: covers at a lower zoom are remembered in coalesced, keyed by
// tile, so a higher-zoom subquery can find and append its ancestors.
func coalesceMulti(stack []Subquery, prox *Proximity, bbox *BBox, radius float64) ([]Context, error) {
	subqSortByZoom(stack)

	zoomCache := make([][]uint16, len(stack))
	for i, subq := range stack {
		var zoomUniq [22]bool
		for _, other := range stack {
			if subq.Idx == other.Idx {
				continue
			}
			if zoomUniq[other.Zoom] {
				continue
			}
			if subq.Zoom < other.Zoom {
				continue
			}
			zoomUniq[other.Zoom] = true
			zoomCache[i] = append(zoomCache[i], other.Zoom)
		}
	}

	coalesced := make(map[uint64][]Context)
	var maxrelev float64
	var contexts []Context

	for i, subq := range stack {
		raw, err := subq.Cache.GetMatching(subq.Phrase, subq.Prefix, subq.Langfield, store.PrefixMaxGridLength)
		if err != nil {
			return nil, err
		}

		first := i == 0
		last := i == len(stack)-1
		z := subq.Zoom
		zCache := zoomCache[i]

		for _, n := range raw {
			cover := grid.Decode(n)
			cover.Idx = subq.Idx
			cover.Mask = subq.Mask
			cover.TmpID = uint32(cover.Idx)*pow2_25 + cover.FeatureID
			cover.Relev = cover.Relev * subq.Weight

			if prox != nil {
				dxy := tile.ProximityToTargetZoom(uint32(z), uint32(cover.X), uint32(cover.Y), prox.Z)
				cover.Distance = tile.Distance(prox.X, prox.Y, dxy.X, dxy.Y)
				cover.ScoreDist = scoredist.ScoreDist(prox.Z, cover.Distance, cover.Score, radius)
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

			if bbox != nil {
				min := tile.BboxCornerToTargetZoom(bbox.Z, bbox.MinX, bbox.MinY, uint32(z), false)
				max := tile.BboxCornerToTargetZoom(bbox.Z, bbox.MaxX, bbox.MaxY, uint32(z), true)
				if uint32(cover.X) < min.X || uint32(cover.Y) < min.Y || uint32(cover.X) > max.X || uint32(cover.Y) > max.Y {
					continue
				}
			}

			zxy := uint64(z)*pow2_28 + uint64(cover.X)*pow2_14 + uint64(cover.Y)

			covers := []grid.Cover{cover}
			contextMask := cover.Mask
			contextRelev := cover.Relev

			for _, p := range zCache {
				s := math.Pow(2, float64(z-p))
				pxy := uint64(p)*pow2_28 + uint64(math.Floor(float64(cover.X)/s))*pow2_14 + uint64(math.Floor(float64(cover.Y)/s))

				parents, ok := coalesced[pxy]
				if !ok {
					continue
				}
				var lastMask uint32
				var lastRelev float64
				for _, parentContext := range parents {
					for _, parent := range parentContext.CoverList {
						switch {
						case parent.Mask == lastMask && parent.Relev > lastRelev:
							covers = covers[:len(covers)-1]
							covers = append(covers, parent)
							contextRelev -= lastRelev
							contextRelev += parent.Relev
							lastMask = parent.Mask
							lastRelev = parent.Relev
						case contextMask&parent.Mask == 0:
							covers = append(covers, parent)
							contextRelev += parent.Relev
							contextMask |= parent.Mask
							lastMask = parent.Mask
							lastRelev = parent.Relev
						}
					}
				}
			}

			if contextRelev > maxrelev {
				maxrelev = contextRelev
			}

			if last {
				if len(covers) == 1 {
					contextRelev -= 0.01
				} else if covers[0].Mask > covers[1].Mask {
					contextRelev -= 0.01
				}
				if maxrelev-contextRelev < 0.25 {
					contexts = append(contexts, Context{CoverList: covers, Mask: contextMask, Relev: contextRelev})
				}
			} else if first || len(covers) > 1 {
				coalesced[zxy] = append(coalesced[zxy], Context{CoverList: covers, Mask: contextMask, Relev: contextRelev})
			}
		}
	}

	zxys := make([]uint64, 0, len(coalesced))
	for zxy := range coalesced {
		zxys = append(zxys, zxy)
	}
	sort.Slice(zxys, func(i, j int) bool { return zxys[i] < zxys[j] })

	for _, zxy := range zxys {
		for _, context := range coalesced[zxy] {
			if maxrelev-context.Relev < 0.25 {
				contexts = append(contexts, context)
			}
		}
	}

	contextSortByRelev(contexts)
	return contexts, nil
}
