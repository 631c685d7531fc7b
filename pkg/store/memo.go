package store

import (
	"sort"

	"github.com/mapknit/geocache/pkg/grid"
)

// sortDescendingCopy returns a new descending-sorted copy of values.
func sortDescendingCopy(values []uint64) []uint64 {
	out := make([]uint64, len(values))
	copy(out, values)
	sort.Slice(out, func(i, j int) bool { return out[i] > out[j] })
	return out
}

// memoBuckets accumulates the T1/T2 prefix-memo posting lists built
// during Pack, keyed by the final memo key bytes.
type memoBuckets struct {
	buckets map[string][]uint64
}

func newMemoBuckets() *memoBuckets {
	return &memoBuckets{buckets: make(map[string][]uint64)}
}

// add folds one exact entry's postings into its T1 and (if distinct)
// T2 memo buckets during packing: a phrase shorter than a bucket's tag
// length contributes its full exact key, rather than a truncated
// phrase+langfield key, as that bucket's memo key.
func (m *memoBuckets) add(phrase string, langfield Langfield, exactKey []byte, values []uint64) {
	t1 := m.bucketKey(memoTagT1, MemoPrefixLengthT1, phrase, langfield, exactKey)
	m.buckets[string(t1)] = append(m.buckets[string(t1)], values...)

	t2 := m.bucketKey(memoTagT2, MemoPrefixLengthT2, phrase, langfield, exactKey)
	m.buckets[string(t2)] = append(m.buckets[string(t2)], values...)
}

func (m *memoBuckets) bucketKey(tag string, tagLen int, phrase string, langfield Langfield, exactKey []byte) []byte {
	if len(phrase) < tagLen {
		return memoKeyShort(tag, exactKey)
	}
	return memoKey(tag, tagLen, phrase, langfield)
}

// encode truncates, sorts, and delta-encodes every accumulated bucket,
// returning a map from memo key to value blob ready to write.
func (m *memoBuckets) encode() map[string][]byte {
	out := make(map[string][]byte, len(m.buckets))
	for key, values := range m.buckets {
		out[key] = truncateAndEncode(values, PrefixMaxGridLength)
	}
	return out
}

// postingHeapItem is one entry in the multi-way merge's max-heap: the
// current language-boosted head value of one message's posting
// iterator, plus the iterator itself so the merge can advance it.
type postingHeapItem struct {
	boostedValue uint64
	matchesLang  bool
	iter         *grid.DeltaIterator
}

// postingHeap is a max-heap over postingHeapItem.boostedValue,
// implementing container/heap.Interface.
type postingHeap []postingHeapItem

func (h postingHeap) Len() int            { return len(h) }
func (h postingHeap) Less(i, j int) bool  { return h[i].boostedValue > h[j].boostedValue }
func (h postingHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *postingHeap) Push(x interface{}) { *h = append(*h, x.(postingHeapItem)) }
func (h *postingHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// languageMatchBoost is bit 63, applied to a posting's raw value when
// its source message's langfield intersects the query langfield.
const languageMatchBoost = grid.LanguageMatchBoost
