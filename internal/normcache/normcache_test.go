package normcache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCacheSetGetRoundTrip(t *testing.T) {
	c, err := New(16)
	require.NoError(t, err)

	c.Set(0, []uint32{2})
	values, ok := c.Get(0)
	require.True(t, ok)
	require.Equal(t, []uint32{2}, values)

	_, ok = c.Get(1)
	require.False(t, ok)
}

func TestCacheWriteBatch(t *testing.T) {
	c, err := New(16)
	require.NoError(t, err)

	c.WriteBatch([]Entry{
		{Key: 0, Values: []uint32{2}},
		{Key: 1, Values: []uint32{3}},
	})

	v0, ok := c.Get(0)
	require.True(t, ok)
	require.Equal(t, []uint32{2}, v0)

	v1, ok := c.Get(1)
	require.True(t, ok)
	require.Equal(t, []uint32{3}, v1)
	require.Equal(t, 2, c.Len())
}

func TestCacheEvictionDropsIndexEntry(t *testing.T) {
	c, err := New(2)
	require.NoError(t, err)

	c.Set(10, []uint32{1})
	c.Set(20, []uint32{2})
	c.Set(30, []uint32{3}) // evicts 10, the least-recently-used

	_, ok := c.Get(10)
	require.False(t, ok)
	require.Equal(t, 2, c.Len())

	all := c.GetAll()
	require.Len(t, all, 2)
	require.Equal(t, uint32(20), all[0].Key)
	require.Equal(t, uint32(30), all[1].Key)
}

func TestCacheGetPrefixRangeExcludesSelfReferences(t *testing.T) {
	c, err := New(16)
	require.NoError(t, err)

	// ids [0,1] are "st ..." variants (0 and 1 are themselves
	// canonical, pointing nowhere); ids [2,3] are "saint ..." variants
	// that normalize back into [0,1]. Scanning the range [2,4) should
	// surface 0 and 1 (outside the scanned range) but never a value
	// inside [2,4) itself.
	c.WriteBatch([]Entry{
		{Key: 2, Values: []uint32{0}},
		{Key: 3, Values: []uint32{1}},
	})

	got := c.GetPrefixRange(2, 2, 100, 10)
	require.ElementsMatch(t, []uint32{0, 1}, got)
}

func TestCacheGetPrefixRangeRespectsScanAndReturnCaps(t *testing.T) {
	c, err := New(16)
	require.NoError(t, err)

	c.WriteBatch([]Entry{
		{Key: 0, Values: []uint32{100}},
		{Key: 1, Values: []uint32{101}},
		{Key: 2, Values: []uint32{102}},
	})

	got := c.GetPrefixRange(0, 10, 2, 10)
	require.Len(t, got, 2, "scanMax=2 must stop after the first two keys")

	got = c.GetPrefixRange(0, 10, 10, 1)
	require.Len(t, got, 1, "returnMax=1 must stop after the first value")
}

func TestCacheGetAllOrderedByKey(t *testing.T) {
	c, err := New(16)
	require.NoError(t, err)

	c.Set(5, []uint32{1})
	c.Set(1, []uint32{2})
	c.Set(3, []uint32{3})

	all := c.GetAll()
	require.Len(t, all, 3)
	require.Equal(t, []uint32{1, 3, 5}, []uint32{all[0].Key, all[1].Key, all[2].Key})
}
