// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package wire

import (
	"encoding/binary"
	"math"
	"unicode/utf8"
)

// Reader is a little-endian cursor over an immutable byte region. All
// primitive reads advance the cursor; reads past the limit fail with
// OutOfBoundsError. A Reader owns a single position for its entire
// lifetime (Buffer, Encaps, InstanceData all share the same Reader so
// that encapsulation frames and instance frames can seek within it).
type Reader struct {
	buf   []byte
	pos   int
	limit int

	// minTotalSeqSize accumulates the minimum-size contribution of every
	// sequence successfully validated by ReadAndCheckSeqSize, across the
	// whole lifetime of the Reader. It is the aggregate-allocation guard
	// against hostile input: even sequences that are individually cheap
	// must not sum to more bytes than the buffer could possibly hold.
	minTotalSeqSize int

	// scratch is a reusable byte buffer for UTF-8 validation; it grows
	// monotonically to the largest string seen and is never shrunk.
	scratch []byte
}

// NewReader constructs a Reader over buf, with the cursor at position 0
// and the limit at len(buf).
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf, limit: len(buf)}
}

// Pos returns the current cursor position.
func (r *Reader) Pos() int { return r.pos }

// Limit returns the current limit (exclusive upper bound of readable bytes).
func (r *Reader) Limit() int { return r.limit }

// Remaining returns the number of unread bytes before the limit.
func (r *Reader) Remaining() int { return r.limit - r.pos }

// SetPos seeks the cursor to an absolute position. Callers (the
// encapsulation stack, the slice state machine, indirection-table
// replay) are responsible for only seeking to positions they have
// already validated as being within bounds.
func (r *Reader) SetPos(pos int) { r.pos = pos }

// Bytes returns the full backing buffer (not bounded by limit); used by
// skipSlice to copy verbatim slice bytes for preservation.
func (r *Reader) Bytes() []byte { return r.buf }

func (r *Reader) need(op string, n int) error {
	if n < 0 || r.pos+n > r.limit {
		return outOfBounds(op, r.pos, r.limit)
	}
	return nil
}

// ReadByte reads a single unsigned byte.
func (r *Reader) ReadByte() (byte, error) {
	if err := r.need("ReadByte", 1); err != nil {
		return 0, err
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

// ReadBool reads one byte and interprets it as a boolean: 0 is false,
// any other value is true.
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, err
	}
	return b != 0, nil
}

// ReadInt16 reads a little-endian signed 16-bit integer.
func (r *Reader) ReadInt16() (int16, error) {
	if err := r.need("ReadInt16", 2); err != nil {
		return 0, err
	}
	v := int16(binary.LittleEndian.Uint16(r.buf[r.pos:]))
	r.pos += 2
	return v, nil
}

// ReadInt32 reads a little-endian signed 32-bit integer.
func (r *Reader) ReadInt32() (int32, error) {
	if err := r.need("ReadInt32", 4); err != nil {
		return 0, err
	}
	v := int32(binary.LittleEndian.Uint32(r.buf[r.pos:]))
	r.pos += 4
	return v, nil
}

// ReadInt64 reads a little-endian signed 64-bit integer.
func (r *Reader) ReadInt64() (int64, error) {
	if err := r.need("ReadInt64", 8); err != nil {
		return 0, err
	}
	v := int64(binary.LittleEndian.Uint64(r.buf[r.pos:]))
	r.pos += 8
	return v, nil
}

// ReadFloat32 reads a little-endian IEEE-754 32-bit float.
func (r *Reader) ReadFloat32() (float32, error) {
	if err := r.need("ReadFloat32", 4); err != nil {
		return 0, err
	}
	v := math.Float32frombits(binary.LittleEndian.Uint32(r.buf[r.pos:]))
	r.pos += 4
	return v, nil
}

// ReadFloat64 reads a little-endian IEEE-754 64-bit float.
func (r *Reader) ReadFloat64() (float64, error) {
	if err := r.need("ReadFloat64", 8); err != nil {
		return 0, err
	}
	v := math.Float64frombits(binary.LittleEndian.Uint64(r.buf[r.pos:]))
	r.pos += 8
	return v, nil
}

// ReadBlob reads n raw bytes. The returned slice aliases the Reader's
// backing buffer; callers that need to keep the bytes past the next
// mutation of the stream must copy them (see skipSlice, which does).
func (r *Reader) ReadBlob(n int) ([]byte, error) {
	if err := r.need("ReadBlob", n); err != nil {
		return nil, err
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadSize reads a compact size integer: one byte, or (if that byte is
// 0xFF) a following little-endian i32 that must be non-negative.
func (r *Reader) ReadSize() (int, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	if b != 0xFF {
		return int(b), nil
	}
	v, err := r.ReadInt32()
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, outOfBounds("ReadSize", r.pos, r.limit)
	}
	return int(v), nil
}

// ReadAndCheckSeqSize reads a size and validates it against the hostile
// input threat model: the sequence of `size` elements of `minElementSize`
// bytes each must fit in the remaining buffer, and the running total of
// every such validated sequence (across this Reader's whole lifetime)
// must not exceed the buffer limit. This prevents an attacker from
// declaring many individually-small sequences that in aggregate would
// force an enormous allocation.
func (r *Reader) ReadAndCheckSeqSize(minElementSize int) (int, error) {
	size, err := r.ReadSize()
	if err != nil {
		return 0, err
	}
	need := size * minElementSize
	if need < 0 || r.pos+need > r.limit {
		return 0, outOfBounds("ReadAndCheckSeqSize", r.pos, r.limit)
	}
	total := r.minTotalSeqSize + need
	if total < r.minTotalSeqSize || total > r.limit {
		return 0, outOfBounds("ReadAndCheckSeqSize", r.pos, r.limit)
	}
	r.minTotalSeqSize = total
	return size, nil
}

// ReadString reads a size-prefixed UTF-8 string using the Reader's
// reusable scratch buffer for validation; the returned string is a
// fresh copy (Go strings are immutable, so no aliasing hazard remains
// once the bytes have been copied into it).
func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadSize()
	if err != nil {
		return "", err
	}
	body, err := r.ReadBlob(n)
	if err != nil {
		return "", err
	}
	if cap(r.scratch) < len(body) {
		r.scratch = make([]byte, len(body))
	}
	scratch := r.scratch[:len(body)]
	copy(scratch, body)
	if !utf8.Valid(scratch) {
		return "", marshalError("invalid UTF-8 string")
	}
	return string(scratch), nil
}
