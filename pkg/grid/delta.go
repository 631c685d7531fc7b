package grid

import (
	"encoding/binary"
	"fmt"
)

// postingsFieldTag is the protobuf wire tag for a packed repeated uint64
// field with field number 1 (wiretype 2, length-delimited): (1<<3)|2.
const postingsFieldTag = 0x0A

// DeltaEncode delta-codes a descending-sorted posting list and wraps it in
// a length-delimited packed varint field (tag 1), the posting-store value
// format. The first element is stored raw; subsequent elements are the
// non-negative difference from the previous element.
func DeltaEncode(sortedDescending []uint64) []byte {
	content := make([]byte, 0, len(sortedDescending)*2)
	buf := make([]byte, binary.MaxVarintLen64)

	var last uint64
	for i, v := range sortedDescending {
		var toWrite uint64
		if i == 0 {
			toWrite = v
		} else {
			toWrite = last - v
		}
		n := binary.PutUvarint(buf, toWrite)
		content = append(content, buf[:n]...)
		last = v
	}

	out := make([]byte, 0, len(content)+binary.MaxVarintLen64+1)
	out = append(out, postingsFieldTag)
	lenBuf := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(lenBuf, uint64(len(content)))
	out = append(out, lenBuf[:n]...)
	out = append(out, content...)
	return out
}

// DeltaDecode is the streaming inverse of DeltaEncode, stopping once cap
// postings have been produced (or the stream is exhausted, if cap <= 0).
// It returns a decode error on a truncated or malformed varint stream.
func DeltaDecode(data []byte, cap int) ([]uint64, error) {
	if len(data) == 0 {
		return nil, nil
	}
	if data[0] != postingsFieldTag {
		return nil, fmt.Errorf("grid: malformed posting blob: unexpected field tag %#x", data[0])
	}
	body := data[1:]
	length, n := binary.Uvarint(body)
	if n <= 0 {
		return nil, fmt.Errorf("grid: malformed posting blob: truncated length prefix")
	}
	body = body[n:]
	if uint64(len(body)) < length {
		return nil, fmt.Errorf("grid: malformed posting blob: length prefix %d exceeds remaining %d bytes", length, len(body))
	}
	body = body[:length]

	return decodeVarintStream(body, cap)
}

// DeltaIterator lazily decodes a posting-store value blob one value at a
// time, without materializing the full slice. Used by the on-disk
// back-end's multi-way merge, where only the current head of each
// message's posting list is needed at any moment.
type DeltaIterator struct {
	body    []byte
	last    uint64
	lastSet bool
	done    bool
}

// NewDeltaIterator validates the blob's framing (tag byte and length
// prefix) and returns an iterator positioned before the first value.
func NewDeltaIterator(data []byte) (*DeltaIterator, error) {
	if len(data) == 0 {
		return &DeltaIterator{done: true}, nil
	}
	if data[0] != postingsFieldTag {
		return nil, fmt.Errorf("grid: malformed posting blob: unexpected field tag %#x", data[0])
	}
	body := data[1:]
	length, n := binary.Uvarint(body)
	if n <= 0 {
		return nil, fmt.Errorf("grid: malformed posting blob: truncated length prefix")
	}
	body = body[n:]
	if uint64(len(body)) < length {
		return nil, fmt.Errorf("grid: malformed posting blob: length prefix %d exceeds remaining %d bytes", length, len(body))
	}
	body = body[:length]
	return &DeltaIterator{body: body}, nil
}

// Next returns the next original (post-delta-reconstruction) value, or
// ok=false once the stream is exhausted.
func (it *DeltaIterator) Next() (value uint64, ok bool, err error) {
	if it.done || len(it.body) == 0 {
		it.done = true
		return 0, false, nil
	}
	v, n := binary.Uvarint(it.body)
	if n <= 0 {
		return 0, false, fmt.Errorf("grid: malformed posting blob: truncated varint")
	}
	it.body = it.body[n:]

	var val uint64
	if it.lastSet {
		if v > it.last {
			return 0, false, fmt.Errorf("grid: malformed posting blob: delta %d exceeds previous value %d", v, it.last)
		}
		val = it.last - v
	} else {
		val = v
	}
	it.last = val
	it.lastSet = true
	if len(it.body) == 0 {
		it.done = true
	}
	return val, true, nil
}

func decodeVarintStream(body []byte, cap int) ([]uint64, error) {
	var out []uint64
	var last uint64
	for len(body) > 0 {
		if cap > 0 && len(out) >= cap {
			break
		}
		v, n := binary.Uvarint(body)
		if n <= 0 {
			return nil, fmt.Errorf("grid: malformed posting blob: truncated varint")
		}
		body = body[n:]

		var val uint64
		if len(out) == 0 {
			val = v
		} else {
			if v > last {
				return nil, fmt.Errorf("grid: malformed posting blob: delta %d exceeds previous value %d", v, last)
			}
			val = last - v
		}
		out = append(out, val)
		last = val
	}
	return out, nil
}
