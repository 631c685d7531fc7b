// Package store implements the posting-list store that backs coalesce
// lookups: an in-memory back-end used while building an index, and an
// on-disk back-end (bbolt) used to serve queries. Both back-ends share
// the key/value format and prefix-memoization scheme documented below.
package store

import (
	"bytes"
	"fmt"

	"github.com/mapknit/geocache/pkg/grid"
)

// PrefixMode selects how GetMatching interprets phrase as a prefix.
type PrefixMode int

const (
	// Disabled requires an exact phrase match (plus separator).
	Disabled PrefixMode = iota
	// Enabled matches any key whose phrase component starts with phrase.
	Enabled
	// WordBoundary is like Enabled but requires the byte following the
	// matched prefix to be the separator or a space.
	WordBoundary
)

// Langfield is a 128-bit language-set mask, stored as two 64-bit limbs
// in little-endian limb order: Lo holds bits 0-63, Hi holds bits 64-127.
type Langfield struct {
	Lo, Hi uint64
}

// AllLanguages is the all-ones sentinel meaning "every language matches".
var AllLanguages = Langfield{Lo: ^uint64(0), Hi: ^uint64(0)}

// Intersects reports whether a and b share any set bit.
func (a Langfield) Intersects(b Langfield) bool {
	return a.Lo&b.Lo != 0 || a.Hi&b.Hi != 0
}

const (
	langfieldSeparator byte = '|'

	// MemoPrefixLengthT1 and MemoPrefixLengthT2 are the two prefix-memo
	// bucket lengths, in bytes, maintained during Pack.
	MemoPrefixLengthT1 = 3
	MemoPrefixLengthT2 = 6

	// PrefixMaxGridLength bounds the size of any single prefix-memo
	// posting list; longer lists are truncated (descending) at pack time.
	PrefixMaxGridLength = 500_000

	memoTagT1 = "=1"
	memoTagT2 = "=2"
)

// KeyEntry is one (phrase, langfield) pair as returned by List.
type KeyEntry struct {
	Phrase    string
	Langfield Langfield
}

// Store is the shared contract both back-ends satisfy.
type Store interface {
	// Get returns postings whose key exactly matches phrase+langfield,
	// sorted descending by raw value. A missing key yields an empty,
	// non-nil slice and no error.
	Get(phrase string, langfield Langfield) ([]uint64, error)

	// GetMatching returns up to maxResults postings whose key's phrase
	// component starts with phrase (per mode), sorted descending by the
	// language-boosted raw value, with exact duplicates removed.
	GetMatching(phrase string, mode PrefixMode, langfield Langfield, maxResults int) ([]uint64, error)

	// List enumerates every non-memo key.
	List() ([]KeyEntry, error)

	// Pack writes the store to path as an on-disk store. Only the
	// in-memory back-end supports this; the on-disk back-end returns
	// an error.
	Pack(path string) error

	// Close releases any resources (file handles, watchers) held by
	// the store.
	Close() error
}

// langfieldBytes returns the little-endian byte prefix of lf truncated
// to the highest non-zero byte, matching add_langfield's "highest"
// scan over the two 64-bit limbs in little-endian limb order.
func langfieldBytes(lf Langfield) []byte {
	var buf [16]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(lf.Lo >> (8 * i))
	}
	for i := 0; i < 8; i++ {
		buf[8+i] = byte(lf.Hi >> (8 * i))
	}
	highest := -1
	for i, b := range buf {
		if b != 0 {
			highest = i
		}
	}
	if highest < 0 {
		return nil
	}
	return buf[:highest+1]
}

// langfieldFromBytes is the inverse of langfieldBytes: it expands a
// little-endian byte prefix back into a full 128-bit Langfield.
func langfieldFromBytes(b []byte) Langfield {
	var buf [16]byte
	copy(buf[:], b)
	var lf Langfield
	for i := 0; i < 8; i++ {
		lf.Lo |= uint64(buf[i]) << (8 * i)
	}
	for i := 0; i < 8; i++ {
		lf.Hi |= uint64(buf[8+i]) << (8 * i)
	}
	return lf
}

// EncodeKey builds the posting-store key for phrase+langfield, honoring
// the all-languages abbreviation: phrase + SEP, with no trailing bytes
// when langfield is AllLanguages.
func EncodeKey(phrase string, langfield Langfield) []byte {
	key := make([]byte, 0, len(phrase)+1+16)
	key = append(key, phrase...)
	key = append(key, langfieldSeparator)
	if langfield != AllLanguages {
		key = append(key, langfieldBytes(langfield)...)
	}
	return key
}

// DecodeKey splits a posting-store key back into its phrase and
// langfield components.
func DecodeKey(key []byte) (phrase string, langfield Langfield) {
	i := bytes.IndexByte(key, langfieldSeparator)
	if i < 0 {
		return string(key), AllLanguages
	}
	phrase = string(key[:i])
	tail := key[i+1:]
	if len(tail) == 0 {
		return phrase, AllLanguages
	}
	return phrase, langfieldFromBytes(tail)
}

// memoKey builds the "=1"/"=2" memo key for a phrase/langfield pair
// truncated to the given tag length.
func memoKey(tag string, tagLen int, phrase string, langfield Langfield) []byte {
	prefix := phrase
	if len(prefix) > tagLen {
		prefix = prefix[:tagLen]
	}
	key := make([]byte, 0, len(tag)+len(prefix)+1+16)
	key = append(key, tag...)
	key = append(key, prefix...)
	key = append(key, langfieldSeparator)
	if langfield != AllLanguages {
		key = append(key, langfieldBytes(langfield)...)
	}
	return key
}

// memoKeyShort builds a memo key for a phrase already at or below the
// tag length: the memo key is just "=1"/"=2" glued directly to the
// full exact key (tag + phrase + SEP + langfield-bytes), matching
// "=1"+entry.key for phrases shorter than the tag length.
func memoKeyShort(tag string, exactKey []byte) []byte {
	key := make([]byte, 0, len(tag)+len(exactKey))
	key = append(key, tag...)
	key = append(key, exactKey...)
	return key
}

// lookupPrefixLength computes the effective prefix length used to pick
// between T1 and T2 memo redirection: WordBoundary adds one to guard
// against a memo masking a required terminator.
func lookupPrefixLength(phrase string, mode PrefixMode) int {
	n := len(phrase)
	if mode == WordBoundary {
		n++
	}
	return n
}

// isMemoKey reports whether key is a prefix-memo key (as opposed to an
// exact phrase key), i.e. it starts with "=".
func isMemoKey(key []byte) bool {
	return len(key) > 0 && key[0] == '='
}

// dedupeDescending removes consecutive duplicate values from a
// descending-sorted slice, in place.
func dedupeDescending(values []uint64) []uint64 {
	if len(values) == 0 {
		return values
	}
	out := values[:1]
	for _, v := range values[1:] {
		if v != out[len(out)-1] {
			out = append(out, v)
		}
	}
	return out
}

// truncateAndEncode sorts values descending, truncates to max (if
// max > 0), and delta-encodes the result.
func truncateAndEncode(values []uint64, max int) []byte {
	sorted := sortDescendingCopy(values)
	if max > 0 && len(sorted) > max {
		sorted = sorted[:max]
	}
	return grid.DeltaEncode(sorted)
}

// ErrCannotPackSelf is returned when Pack is called on a store that is
// already the on-disk form (packing into itself is not supported).
var ErrCannotPackSelf = fmt.Errorf("store: on-disk store cannot be packed into itself")

var (
	_ Store = (*MemStore)(nil)
	_ Store = (*DiskStore)(nil)
)
