package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapknit/geocache/pkg/grid"
)

func openTestDisk(t *testing.T, entries map[string][]uint64) *DiskStore {
	t.Helper()
	dir := t.TempDir()
	path := dir + "/store.db"

	disk, err := newDiskStoreForWrite(path)
	require.NoError(t, err)
	t.Cleanup(func() { disk.Close() })

	batch := make(map[string][]byte, len(entries))
	for key, values := range entries {
		batch[key] = truncateAndEncode(values, 0)
	}
	require.NoError(t, disk.PutBatch(batch))
	return disk
}

func TestDiskStoreGetMissingKeyIsEmpty(t *testing.T) {
	disk := openTestDisk(t, nil)
	got, err := disk.Get("nope", AllLanguages)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDiskStoreGetExact(t *testing.T) {
	key := string(EncodeKey("abc", AllLanguages))
	disk := openTestDisk(t, map[string][]uint64{key: {5, 1, 9}})

	got, err := disk.Get("abc", AllLanguages)
	require.NoError(t, err)
	assert.Equal(t, []uint64{9, 5, 1}, got)
}

func TestDiskStoreGetMatchingMultiMessageMerge(t *testing.T) {
	enLang := Langfield{Lo: 1}
	frLang := Langfield{Lo: 2}

	keyEn := string(EncodeKey("paris", enLang))
	keyFr := string(EncodeKey("paris", frLang))

	disk := openTestDisk(t, map[string][]uint64{
		keyEn: {50, 10},
		keyFr: {60, 20},
	})

	got, err := disk.GetMatching("paris", Disabled, enLang, 100)
	require.NoError(t, err)
	require.Len(t, got, 4)

	// Boosted (English) postings sort ahead of unboosted (French) ones
	// regardless of raw magnitude, since the boost occupies bit 63.
	assert.Equal(t, []uint64{
		uint64(50) | grid.LanguageMatchBoost,
		uint64(10) | grid.LanguageMatchBoost,
		60,
		20,
	}, got)
}

func TestDiskStoreGetMatchingWordBoundary(t *testing.T) {
	keyA := string(EncodeKey("new york", AllLanguages))
	keyB := string(EncodeKey("newark", AllLanguages))
	// "new" is short enough that GetMatching scans the T2 memo keys, so
	// the memo entries Pack would write are stored alongside the exact keys.
	memoA := string(memoKey(memoTagT2, MemoPrefixLengthT2, "new york", AllLanguages))
	memoB := string(memoKey(memoTagT2, MemoPrefixLengthT2, "newark", AllLanguages))

	disk := openTestDisk(t, map[string][]uint64{
		keyA:  {10},
		keyB:  {20},
		memoA: {10},
		memoB: {20},
	})

	got, err := disk.GetMatching("new", WordBoundary, AllLanguages, 100)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(10)|grid.LanguageMatchBoost, got[0])
}

func TestDiskStoreGetMatchingRespectsMaxResults(t *testing.T) {
	enLang := Langfield{Lo: 1}
	frLang := Langfield{Lo: 2}
	keyEn := string(EncodeKey("paris", enLang))
	keyFr := string(EncodeKey("paris", frLang))

	disk := openTestDisk(t, map[string][]uint64{
		keyEn: {50, 10},
		keyFr: {60, 20},
	})

	got, err := disk.GetMatching("paris", Disabled, enLang, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestDiskStoreGetMatchingBboxFiltered(t *testing.T) {
	inBox := grid.Encode(grid.Cover{Relev: 0.8, Score: 3, X: 10, Y: 10, FeatureID: 1})
	outOfBox := grid.Encode(grid.Cover{Relev: 0.8, Score: 3, X: 900, Y: 900, FeatureID: 2})

	key := string(EncodeKey("abc", AllLanguages))
	disk := openTestDisk(t, map[string][]uint64{key: {inBox, outOfBox}})

	got, err := disk.GetMatchingBboxFiltered("abc", Disabled, AllLanguages, 100, [4]uint64{0, 0, 100, 100})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, inBox|grid.LanguageMatchBoost, got[0])
}

func TestDiskStoreListSkipsMemoKeys(t *testing.T) {
	exact := string(EncodeKey("abc", AllLanguages))
	disk := openTestDisk(t, map[string][]uint64{
		exact:     {1},
		"=1abc|": {1},
	})

	entries, err := disk.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "abc", entries[0].Phrase)
}

func TestDiskStorePackRejectsSelfPack(t *testing.T) {
	disk := openTestDisk(t, nil)
	err := disk.Pack("/anywhere")
	assert.ErrorIs(t, err, ErrCannotPackSelf)
}

func TestDiskStoreOpenMissingPathErrors(t *testing.T) {
	_, err := OpenDiskStore("/does/not/exist/store.db", 0)
	assert.Error(t, err)
}
