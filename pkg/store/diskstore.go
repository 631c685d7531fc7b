package store

import (
	"bytes"
	"container/heap"
	"fmt"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.etcd.io/bbolt"

	"github.com/mapknit/geocache/pkg/grid"
)

var postingsBucket = []byte("postings")

// DiskStore is the on-disk, read-mostly back-end used to serve
// queries, backed by bbolt as the ordered key/value engine.
type DiskStore struct {
	db        *bbolt.DB
	path      string
	readOnly  bool
	memoCache *lru.Cache[string, []uint64]
}

// OpenDiskStore opens path read-only. A missing path is an error.
func OpenDiskStore(path string, memoCacheSize int) (*DiskStore, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("store: open-read-only %s: %w", path, err)
	}
	db, err := bbolt.Open(path, 0o444, &bbolt.Options{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("store: open-read-only %s: %w", path, err)
	}
	if memoCacheSize <= 0 {
		memoCacheSize = 4096
	}
	cache, err := lru.New[string, []uint64](memoCacheSize)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &DiskStore{db: db, path: path, readOnly: true, memoCache: cache}, nil
}

// newDiskStoreForWrite opens (creating if needed) a writable store at
// path, for use by MemStore.Pack.
func newDiskStoreForWrite(path string) (*DiskStore, error) {
	db, err := bbolt.Open(path, 0o644, nil)
	if err != nil {
		return nil, fmt.Errorf("store: unable to open %s for packing: %w", path, err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(postingsBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &DiskStore{db: db, path: path}, nil
}

// putRaw writes a single key/value pair in its own transaction. Pack and
// CopyInto use PutBatch for an atomic whole-store write instead.
func (d *DiskStore) putRaw(key, value []byte) error {
	return d.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(postingsBucket).Put(key, value)
	})
}

// PutBatch writes every entry in one atomic transaction.
func (d *DiskStore) PutBatch(entries map[string][]byte) error {
	return d.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(postingsBucket)
		for k, v := range entries {
			if err := b.Put([]byte(k), v); err != nil {
				return err
			}
		}
		return nil
	})
}

// Close releases the underlying bbolt handle.
func (d *DiskStore) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// Get performs a single point-get on the exact key.
func (d *DiskStore) Get(phrase string, langfield Langfield) ([]uint64, error) {
	key := EncodeKey(phrase, langfield)
	var blob []byte
	err := d.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(postingsBucket).Get(key)
		if v != nil {
			blob = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if blob == nil {
		return []uint64{}, nil
	}
	return grid.DeltaDecode(blob, 0)
}

// message is one fetched key/value pair relevant to a GetMatching scan.
type message struct {
	value       []byte
	matchesLang bool
}

// fetchMessages seeks to the rewritten scan prefix (honoring T1/T2
// memo redirection) and collects every matching key's value blob plus
// its language-match flag.
func (d *DiskStore) fetchMessages(phraseRef string, mode PrefixMode, langfield Langfield) ([]message, error) {
	scanPrefix := computeScanPrefix(phraseRef, mode)

	var out []message
	err := d.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(postingsBucket).Cursor()
		for k, v := c.Seek(scanPrefix); k != nil && bytes.HasPrefix(k, scanPrefix); k, v = c.Next() {
			if mode == WordBoundary {
				if len(k) <= len(scanPrefix) {
					continue
				}
				endChar := k[len(scanPrefix)]
				if endChar != langfieldSeparator && endChar != ' ' {
					continue
				}
			}
			_, keyLangfield := DecodeKey(k)
			out = append(out, message{
				value:       append([]byte(nil), v...),
				matchesLang: keyLangfield.Intersects(langfield),
			})
		}
		return nil
	})
	return out, err
}

// computeScanPrefix rewrites phraseRef into the byte prefix used to
// seek the cursor, applying T1/T2 memo redirection for Enabled and
// WordBoundary modes.
func computeScanPrefix(phraseRef string, mode PrefixMode) []byte {
	if mode == Disabled {
		return append([]byte(phraseRef), langfieldSeparator)
	}

	n := lookupPrefixLength(phraseRef, mode)
	switch {
	case n <= MemoPrefixLengthT1:
		end := min(len(phraseRef), MemoPrefixLengthT1)
		return append([]byte(memoTagT1), phraseRef[:end]...)
	case n <= MemoPrefixLengthT2:
		end := min(len(phraseRef), MemoPrefixLengthT2)
		return append([]byte(memoTagT2), phraseRef[:end]...)
	default:
		return []byte(phraseRef)
	}
}

// GetMatching implements the shared contract's prefix/autocomplete
// lookup: a fast path when only one key matches, else a multi-way
// merge across every matching key's lazily-decoded posting stream.
//
// When the lookup redirects to a T1/T2 prefix memo, the fully-merged
// result is cached by memo key: autocomplete traffic repeatedly hits
// the same few popular prefixes, and a memo blob can hold up to
// PrefixMaxGridLength postings, making re-merging it on every keystroke
// wasteful.
func (d *DiskStore) GetMatching(phrase string, mode PrefixMode, langfield Langfield, maxResults int) ([]uint64, error) {
	scanPrefix := computeScanPrefix(phrase, mode)

	if isMemoKey(scanPrefix) && d.memoCache != nil {
		if cached, ok := d.memoCache.Get(memoCacheKey(scanPrefix, langfield)); ok {
			return capResults(cached, maxResults), nil
		}
	}

	merged, err := d.fetchAndMerge(phrase, mode, langfield)
	if err != nil {
		return nil, err
	}

	if isMemoKey(scanPrefix) && d.memoCache != nil {
		d.memoCache.Add(memoCacheKey(scanPrefix, langfield), merged)
	}
	return capResults(merged, maxResults), nil
}

// fetchAndMerge fetches every matching message and merges them,
// uncapped (beyond the memo truncation already baked in at pack time).
func (d *DiskStore) fetchAndMerge(phrase string, mode PrefixMode, langfield Langfield) ([]uint64, error) {
	messages, err := d.fetchMessages(phrase, mode, langfield)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, nil
	}
	if len(messages) == 1 {
		values, err := grid.DeltaDecode(messages[0].value, 0)
		if err != nil {
			return nil, err
		}
		if messages[0].matchesLang {
			for i := range values {
				values[i] |= grid.LanguageMatchBoost
			}
		}
		return values, nil
	}
	return mergeMessages(messages, 0)
}

func memoCacheKey(scanPrefix []byte, langfield Langfield) string {
	return string(scanPrefix) + "\x00" + string(langfieldBytes(langfield))
}

func capResults(values []uint64, maxResults int) []uint64 {
	if maxResults > 0 && len(values) > maxResults {
		return values[:maxResults]
	}
	if values == nil {
		return []uint64{}
	}
	return values
}

// mergeMessages runs the multi-way max-heap merge across every
// message's lazily-decoded posting stream.
func mergeMessages(messages []message, maxResults int) ([]uint64, error) {
	h := make(postingHeap, 0, len(messages))
	for _, m := range messages {
		iter, err := grid.NewDeltaIterator(m.value)
		if err != nil {
			return nil, err
		}
		v, ok, err := iter.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		h = append(h, newHeapItem(v, m.matchesLang, iter))
	}
	heap.Init(&h)

	var out []uint64
	for h.Len() > 0 && (maxResults <= 0 || len(out) < maxResults) {
		top := heap.Pop(&h).(postingHeapItem)
		if len(out) == 0 || out[len(out)-1] != top.boostedValue {
			out = append(out, top.boostedValue)
		}

		v, ok, err := top.iter.Next()
		if err != nil {
			return nil, err
		}
		if ok {
			heap.Push(&h, newHeapItem(v, top.matchesLang, top.iter))
		}
	}
	return out, nil
}

func newHeapItem(value uint64, matchesLang bool, iter *grid.DeltaIterator) postingHeapItem {
	boosted := value
	if matchesLang {
		boosted |= grid.LanguageMatchBoost
	}
	return postingHeapItem{boostedValue: boosted, matchesLang: matchesLang, iter: iter}
}

// GetMatchingBboxFiltered is the address/partial-number variant: it
// decodes every matching message eagerly, filters by a tile-space
// bounding box before sorting, then sorts, dedupes, and truncates.
// box is {minX, minY, maxX, maxY} in plain tile coordinates, compared
// inclusively against each decoded posting's X and Y.
func (d *DiskStore) GetMatchingBboxFiltered(phrase string, mode PrefixMode, langfield Langfield, maxResults int, box [4]uint64) ([]uint64, error) {
	messages, err := d.fetchMessages(phrase, mode, langfield)
	if err != nil {
		return nil, err
	}

	var out []uint64
	for _, m := range messages {
		boost := uint64(0)
		if m.matchesLang {
			boost = grid.LanguageMatchBoost
		}
		values, err := grid.DeltaDecode(m.value, 0)
		if err != nil {
			return nil, err
		}
		for _, v := range values {
			c := grid.Decode(v)
			if uint64(c.X) < box[0] || uint64(c.X) > box[2] || uint64(c.Y) < box[1] || uint64(c.Y) > box[3] {
				continue
			}
			out = append(out, v|boost)
		}
	}

	out = sortDescendingCopy(out)
	out = dedupeDescending(out)
	if maxResults > 0 && len(out) > maxResults {
		out = out[:maxResults]
	}
	return out, nil
}

// List enumerates every non-memo key.
func (d *DiskStore) List() ([]KeyEntry, error) {
	var out []KeyEntry
	err := d.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(postingsBucket).Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if isMemoKey(k) {
				continue
			}
			phrase, langfield := DecodeKey(k)
			out = append(out, KeyEntry{Phrase: phrase, Langfield: langfield})
		}
		return nil
	})
	return out, err
}

// Pack is not supported on an already-on-disk store.
func (d *DiskStore) Pack(path string) error {
	return ErrCannotPackSelf
}

// CopyInto copies every key/value pair from d into dst, used to merge
// two on-disk stores (e.g. combining indexes built in separate passes).
func (d *DiskStore) CopyInto(dst *DiskStore) error {
	return d.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(postingsBucket).Cursor()
		entries := make(map[string][]byte)
		for k, v := c.First(); k != nil; k, v = c.Next() {
			entries[string(k)] = append([]byte(nil), v...)
		}
		return dst.PutBatch(entries)
	})
}
