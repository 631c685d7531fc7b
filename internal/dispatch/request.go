// Package dispatch schedules coalesce invocations onto a bounded worker
// pool, validating their inputs, pinning the caches they reference for
// the duration of the call, and delivering results through a
// completion callback.
package dispatch

import (
	"fmt"

	"github.com/mapknit/geocache/internal/coalesce"
	"github.com/mapknit/geocache/internal/geoerr"
	"github.com/mapknit/geocache/pkg/store"
)

// SubqueryInput is the wire-level shape of one dispatcher subquery.
// Prefix maps 0=Disabled, 1=Enabled, 2=WordBoundary.
type SubqueryInput struct {
	Phrase       string
	Weight       float64
	Prefix       int
	Idx          uint16
	Zoom         uint16
	Mask         uint32
	Languages    []uint8
	Cache        store.Store
	ExtendedScan bool
}

func (s SubqueryInput) validate() error {
	if s.Phrase == "" {
		return geoerr.InvalidInput(geoerr.CodeInvalidPhrase, "phrase must not be empty", nil)
	}
	if s.Weight < 0 || s.Weight > 1 {
		return geoerr.InvalidInput(geoerr.CodeInvalidSubquery, fmt.Sprintf("weight %v out of range [0,1]", s.Weight), nil)
	}
	if s.Prefix < int(store.Disabled) || s.Prefix > int(store.WordBoundary) {
		return geoerr.InvalidInput(geoerr.CodeInvalidSubquery, fmt.Sprintf("prefix mode %d out of range [0,2]", s.Prefix), nil)
	}
	if s.Cache == nil {
		return geoerr.InvalidInput(geoerr.CodeInvalidSubquery, "cache handle must not be nil", nil)
	}
	return nil
}

// langfieldFromLanguages builds a Langfield from a list of language
// indexes. Indexes outside [0,127] are silently ignored.
func langfieldFromLanguages(indexes []uint8) store.Langfield {
	if len(indexes) == 0 {
		return store.AllLanguages
	}
	var lf store.Langfield
	for _, idx := range indexes {
		switch {
		case idx < 64:
			lf.Lo |= uint64(1) << idx
		case idx < 128:
			lf.Hi |= uint64(1) << (idx - 64)
		}
	}
	return lf
}

func (s SubqueryInput) toSubquery() (coalesce.Subquery, error) {
	if err := s.validate(); err != nil {
		return coalesce.Subquery{}, err
	}
	return coalesce.Subquery{
		Cache:        s.Cache,
		Weight:       s.Weight,
		Phrase:       s.Phrase,
		Prefix:       store.PrefixMode(s.Prefix),
		Idx:          s.Idx,
		Zoom:         s.Zoom,
		Mask:         s.Mask,
		Langfield:    langfieldFromLanguages(s.Languages),
		ExtendedScan: s.ExtendedScan,
	}, nil
}

// Request is one coalesce invocation: a subquery stack plus optional
// proximity/bbox/radius options, and the release functions for any
// caches the caller pinned before building it (see
// StoreManager.Acquire). Dispatch holds these until callback returns.
type Request struct {
	Subqueries []SubqueryInput
	Radius     float64
	Proximity  *coalesce.Proximity
	BBox       *coalesce.BBox
	Pins       []func()
}

func (r Request) toSubqueries() ([]coalesce.Subquery, error) {
	if len(r.Subqueries) == 0 {
		return nil, geoerr.InvalidInput(geoerr.CodeInvalidSubquery, "at least one subquery is required", nil)
	}
	out := make([]coalesce.Subquery, len(r.Subqueries))
	for i, s := range r.Subqueries {
		subq, err := s.toSubquery()
		if err != nil {
			return nil, fmt.Errorf("subquery %d: %w", i, err)
		}
		out[i] = subq
	}
	return out, nil
}
