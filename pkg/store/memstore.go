package store

import (
	"bytes"
	"sync"

	"github.com/gofrs/flock"
)

// entry is one in-memory store record: the raw, not-yet-sorted postings
// accumulated for a single (phrase, langfield) key.
type entry struct {
	phrase    string
	langfield Langfield
	values    []uint64
}

// MemStore is the in-memory back-end used while building an index. It
// is mutated only during construction; Pack consumes it into an
// on-disk store.
type MemStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{entries: make(map[string]*entry)}
}

// Set appends values to, or replaces, the posting list for
// (phrase, langfield), per append.
func (m *MemStore) Set(phrase string, langfield Langfield, values []uint64, append_ bool) {
	key := string(EncodeKey(phrase, langfield))

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		m.entries[key] = &entry{phrase: phrase, langfield: langfield, values: append([]uint64(nil), values...)}
		return
	}
	if append_ {
		e.values = append(e.values, values...)
	} else {
		e.values = append([]uint64(nil), values...)
	}
}

// Get returns the postings for the exact (phrase, langfield) key,
// sorted descending, or an empty slice if the key is absent.
func (m *MemStore) Get(phrase string, langfield Langfield) ([]uint64, error) {
	key := string(EncodeKey(phrase, langfield))

	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return []uint64{}, nil
	}
	return sortDescendingCopy(e.values), nil
}

// GetMatching performs a byte-compare prefix scan across every key,
// since the in-memory map carries no ordering guarantee; this is
// acceptable because MemStore is only used during index construction.
func (m *MemStore) GetMatching(phrase string, mode PrefixMode, langfield Langfield, maxResults int) ([]uint64, error) {
	prefix := []byte(phrase)
	if mode == Disabled {
		prefix = append([]byte(phrase), langfieldSeparator)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var merged []uint64
	for key, e := range m.entries {
		kb := []byte(key)
		if !bytes.HasPrefix(kb, prefix) {
			continue
		}
		if mode == WordBoundary {
			if len(kb) <= len(prefix) {
				continue
			}
			endChar := kb[len(prefix)]
			if endChar != langfieldSeparator && endChar != ' ' {
				continue
			}
		}

		matches := e.langfield.Intersects(langfield)
		for _, v := range e.values {
			if matches {
				merged = append(merged, v|languageMatchBoost)
			} else {
				merged = append(merged, v)
			}
		}
	}

	sorted := sortDescendingCopy(merged)
	sorted = dedupeDescending(sorted)
	if maxResults > 0 && len(sorted) > maxResults {
		sorted = sorted[:maxResults]
	}
	return sorted, nil
}

// List enumerates every (phrase, langfield) pair held by the store.
func (m *MemStore) List() ([]KeyEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]KeyEntry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, KeyEntry{Phrase: e.phrase, Langfield: e.langfield})
	}
	return out, nil
}

// Pack writes every entry's delta-encoded postings, plus their T1/T2
// prefix memos, to a fresh on-disk store at path. An exclusive file
// lock guards the write against a concurrent Pack targeting the same
// path.
func (m *MemStore) Pack(path string) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return err
	}
	defer lock.Unlock()

	m.mu.RLock()
	defer m.mu.RUnlock()

	disk, err := newDiskStoreForWrite(path)
	if err != nil {
		return err
	}
	defer disk.Close()

	batch := make(map[string][]byte, len(m.entries))
	memos := newMemoBuckets()
	for key, e := range m.entries {
		batch[key] = truncateAndEncode(e.values, 0)
		memos.add(e.phrase, e.langfield, []byte(key), e.values)
	}
	for key, blob := range memos.encode() {
		batch[key] = blob
	}

	return disk.PutBatch(batch)
}

// Close is a no-op for MemStore; it holds no external resources.
func (m *MemStore) Close() error { return nil }
