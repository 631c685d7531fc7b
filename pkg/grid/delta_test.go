package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeltaEncodeScenario(t *testing.T) {
	blob := DeltaEncode([]uint64{10, 7, 3})
	decoded, err := DeltaDecode(blob, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint64{10, 7, 3}, decoded)
}

func TestDeltaRoundTripArbitrary(t *testing.T) {
	xs := []uint64{1000, 999, 500, 100, 3, 1}
	blob := DeltaEncode(xs)
	decoded, err := DeltaDecode(blob, 0)
	require.NoError(t, err)
	assert.Equal(t, xs, decoded)
}

func TestDeltaDecodeRespectsCap(t *testing.T) {
	xs := []uint64{50, 40, 30, 20, 10}
	blob := DeltaEncode(xs)
	decoded, err := DeltaDecode(blob, 2)
	require.NoError(t, err)
	assert.Equal(t, []uint64{50, 40}, decoded)
}

func TestDeltaEncodeEmpty(t *testing.T) {
	blob := DeltaEncode(nil)
	decoded, err := DeltaDecode(blob, 0)
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestDeltaDecodeRejectsTruncatedStream(t *testing.T) {
	blob := DeltaEncode([]uint64{10, 7, 3})
	_, err := DeltaDecode(blob[:len(blob)-1], 0)
	assert.Error(t, err)
}

func TestDeltaDecodeRejectsBadTag(t *testing.T) {
	_, err := DeltaDecode([]byte{0xFF, 0x00}, 0)
	assert.Error(t, err)
}

func TestDeltaIteratorMatchesDeltaDecode(t *testing.T) {
	xs := []uint64{10, 7, 3, 1}
	blob := DeltaEncode(xs)

	it, err := NewDeltaIterator(blob)
	require.NoError(t, err)

	var got []uint64
	for {
		v, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, v)
	}
	assert.Equal(t, xs, got)
}

func TestDeltaIteratorEmpty(t *testing.T) {
	it, err := NewDeltaIterator(nil)
	require.NoError(t, err)
	_, ok, err := it.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeltaDecodeRejectsNonMonotoneDelta(t *testing.T) {
	// Hand-craft a blob whose second varint (the delta) exceeds the
	// first raw value, which decodeVarintStream must reject.
	blob := []byte{postingsFieldTag, 0x02, 0x05, 0x0A}
	_, err := DeltaDecode(blob, 0)
	assert.Error(t, err)
}
