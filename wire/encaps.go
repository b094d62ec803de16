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

// encapsFrame describes one nested encapsulation: its absolute start
// position, its total size (including the 6-byte header), its encoding
// version, and the lazily-constructed slice state machine bound to it.
//
// Frames chain into a stack (Decoder.encapsStack); popped frames are
// returned to a single-slot freelist (Decoder.encapsFree) for reuse,
// mirroring the push/reuse/finalize discipline of a segment stack.
type encapsFrame struct {
	start    int
	sz       int
	encoding EncodingVersion
	decoder  *instanceDecoder // lazily allocated on first class/exception read
}

func (f *encapsFrame) reset() {
	f.start = 0
	f.sz = 0
	f.encoding = EncodingVersion{}
	if f.decoder != nil {
		f.decoder.reset()
	}
}

// end returns the absolute position one past the last byte of the
// encapsulation.
func (f *encapsFrame) end() int {
	return f.start + f.sz
}

// pushEncaps allocates a frame for a new nested encapsulation, reusing
// the one-slot freelist if available.
func (d *Decoder) pushEncaps() *encapsFrame {
	var f *encapsFrame
	if d.encapsFree != nil {
		f = d.encapsFree
		d.encapsFree = nil
		f.reset()
	} else {
		f = &encapsFrame{}
	}
	d.encapsStack = append(d.encapsStack, f)
	return f
}

func (d *Decoder) popEncaps() {
	n := len(d.encapsStack)
	f := d.encapsStack[n-1]
	d.encapsStack = d.encapsStack[:n-1]
	if d.encapsFree == nil {
		d.encapsFree = f
	}
}

func (d *Decoder) currentEncaps() *encapsFrame {
	if len(d.encapsStack) == 0 {
		return nil
	}
	return d.encapsStack[len(d.encapsStack)-1]
}

// StartEncapsulation reads an encapsulation header (size + encoding
// version) at the current cursor position, pushes a frame for it, and
// returns the encoding version found inside.
//
// Invariants (spec.md §3): sz >= 6 and start+sz <= buffer limit.
func (d *Decoder) StartEncapsulation() (EncodingVersion, error) {
	start := d.r.Pos()
	sz, err := d.r.ReadInt32()
	if err != nil {
		return EncodingVersion{}, err
	}
	if sz < 6 {
		return EncodingVersion{}, encapsError("size < 6")
	}
	// sz includes the 4-byte size field already consumed; the remaining
	// budget is sz-4 bytes of header+body.
	if int(sz)-4 > d.r.Remaining() {
		return EncodingVersion{}, encapsError("size exceeds remaining buffer")
	}
	major, err := d.r.ReadByte()
	if err != nil {
		return EncodingVersion{}, err
	}
	minor, err := d.r.ReadByte()
	if err != nil {
		return EncodingVersion{}, err
	}
	enc := EncodingVersion{Major: major, Minor: minor}
	if !enc.Supported() {
		return EncodingVersion{}, encapsError("unsupported encoding version " + enc.String())
	}
	f := d.pushEncaps()
	f.start = start
	f.sz = int(sz)
	f.encoding = enc
	return enc, nil
}

// EndEncapsulation closes the innermost encapsulation. For encoding 1.1,
// any trailing tagged members are skipped first, and the cursor must end
// up exactly at start+sz. For encoding 1.0, exactly one trailing byte is
// tolerated (a legacy sender bug).
func (d *Decoder) EndEncapsulation() error {
	f := d.currentEncaps()
	if f == nil {
		return encapsError("EndEncapsulation: no active encapsulation")
	}
	defer d.popEncaps()

	if f.encoding == Encoding11 {
		if err := d.skipTrailingOptionals(f); err != nil {
			return err
		}
	}
	end := f.end()
	pos := d.r.Pos()
	if pos == end {
		return nil
	}
	if f.encoding == Encoding10 && pos+1 == end {
		d.r.SetPos(end)
		return nil
	}
	return encapsError("cursor not positioned at end of encapsulation")
}

// skipTrailingOptionals drains any tagged-member section left unread at
// the top level of the encapsulation (i.e. members tagged beyond the
// last one the application-level reader asked for).
func (d *Decoder) skipTrailingOptionals(f *encapsFrame) error {
	for {
		if d.r.Pos() >= f.end() {
			return nil
		}
		b, err := d.r.ReadByte()
		if err != nil {
			return err
		}
		if b == optionalEndMarker {
			return nil
		}
		format := OptionalFormat(b & 0x07)
		tag := int(b >> 3)
		if tag == 30 {
			tag, err = d.r.ReadSize()
			if err != nil {
				return err
			}
		}
		if err := d.skipOptional(format); err != nil {
			return err
		}
	}
}

// SkipEncapsulation reads and discards an encapsulation's header and
// body without pushing a frame, leaving the cursor positioned just past
// it.
func (d *Decoder) SkipEncapsulation() error {
	start := d.r.Pos()
	sz, err := d.r.ReadInt32()
	if err != nil {
		return err
	}
	if sz < 6 {
		return encapsError("size < 6")
	}
	end := start + int(sz)
	if end > d.r.Limit() {
		return encapsError("size exceeds remaining buffer")
	}
	d.r.SetPos(end)
	return nil
}

// ReadEncapsulation reads an encapsulation's header and returns its raw
// body bytes (header included) without decoding its contents and
// without pushing a frame.
func (d *Decoder) ReadEncapsulation() ([]byte, EncodingVersion, error) {
	start := d.r.Pos()
	sz, err := d.r.ReadInt32()
	if err != nil {
		return nil, EncodingVersion{}, err
	}
	if sz < 6 {
		return nil, EncodingVersion{}, encapsError("size < 6")
	}
	major, err := d.r.ReadByte()
	if err != nil {
		return nil, EncodingVersion{}, err
	}
	minor, err := d.r.ReadByte()
	if err != nil {
		return nil, EncodingVersion{}, err
	}
	enc := EncodingVersion{Major: major, Minor: minor}
	end := start + int(sz)
	if end > d.r.Limit() {
		return nil, EncodingVersion{}, encapsError("size exceeds remaining buffer")
	}
	body := d.r.Bytes()[start:end]
	d.r.SetPos(end)
	return body, enc, nil
}

// SkipEmptyEncapsulation reads and discards an encapsulation that is
// expected to carry no payload. For encoding 1.0, an empty encapsulation
// must have sz == 6 exactly.
func (d *Decoder) SkipEmptyEncapsulation() error {
	start := d.r.Pos()
	sz, err := d.r.ReadInt32()
	if err != nil {
		return err
	}
	if sz < 6 {
		return encapsError("size < 6")
	}
	major, err := d.r.ReadByte()
	if err != nil {
		return err
	}
	minor, err := d.r.ReadByte()
	if err != nil {
		return err
	}
	enc := EncodingVersion{Major: major, Minor: minor}
	if enc == Encoding10 && sz != 6 {
		return encapsError("1.0 empty encapsulation must have size 6")
	}
	end := start + int(sz)
	if end > d.r.Limit() {
		return encapsError("size exceeds remaining buffer")
	}
	d.r.SetPos(end)
	return nil
}

// encapsDecoder lazily allocates (or returns the already-allocated)
// slice state machine bound to the innermost encapsulation.
func (d *Decoder) encapsDecoder() (*instanceDecoder, error) {
	f := d.currentEncaps()
	if f == nil {
		return nil, encapsError("no active encapsulation")
	}
	if !f.encoding.SupportsClasses() {
		return nil, &EncodingNotSupportedError{Operation: "class/exception decoding", Encoding: f.encoding}
	}
	if f.decoder == nil {
		f.decoder = newInstanceDecoder(d)
	}
	return f.decoder, nil
}
