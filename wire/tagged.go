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

// OptionalFormat is the width-class of a tagged (optional) member,
// encoded in the low 3 bits of its header byte.
type OptionalFormat byte

const (
	OptionalF1    OptionalFormat = 0 // 1 byte, fixed width
	OptionalF2    OptionalFormat = 1 // 2 bytes, fixed width
	OptionalF4    OptionalFormat = 2 // 4 bytes, fixed width
	OptionalF8    OptionalFormat = 3 // 8 bytes, fixed width
	OptionalSize  OptionalFormat = 4 // one size integer, no payload
	OptionalVSize OptionalFormat = 5 // size integer followed by that many bytes
	OptionalFSize OptionalFormat = 6 // i32 byte count followed by that many bytes
	OptionalClass OptionalFormat = 7 // a class reference (may recurse)
)

func (f OptionalFormat) String() string {
	switch f {
	case OptionalF1:
		return "F1"
	case OptionalF2:
		return "F2"
	case OptionalF4:
		return "F4"
	case OptionalF8:
		return "F8"
	case OptionalSize:
		return "Size"
	case OptionalVSize:
		return "VSize"
	case OptionalFSize:
		return "FSize"
	case OptionalClass:
		return "Class"
	default:
		return "invalid"
	}
}

// optionalEndMarker terminates a tagged-member section.
const optionalEndMarker = 0xFF

// ReadOptional scans forward for a tagged member with the given tag,
// skipping any members tagged lower along the way. It returns true (with
// the cursor positioned just past the tag/format header, ready for the
// caller to read the payload) if a member with exactly expectedTag is
// found with exactly expectedFormat. A member with expectedTag but a
// different format is a MarshalError. Otherwise it returns false with the
// cursor left at the header of the first member tagged higher than
// expectedTag, at the 0xFF end marker, or at the end of the
// encapsulation; members tagged lower that were skipped on the way stay
// consumed.
//
// A standalone 0xFF byte terminates the tagged-member section for the
// active encapsulation; ReadOptional recognizes it and stops there.
func (d *Decoder) ReadOptional(expectedTag int, expectedFormat OptionalFormat) (bool, error) {
	f := d.currentEncaps()
	if f == nil {
		return false, encapsError("ReadOptional: no active encapsulation")
	}
	if !f.encoding.SupportsClasses() {
		return false, &EncodingNotSupportedError{Operation: "ReadOptional", Encoding: f.encoding}
	}
	for {
		if d.r.Pos() >= f.end() {
			return false, nil
		}
		start := d.r.Pos()
		b, err := d.r.ReadByte()
		if err != nil {
			return false, err
		}
		if b == optionalEndMarker {
			d.r.SetPos(start)
			return false, nil
		}
		format := OptionalFormat(b & 0x07)
		tag := int(b >> 3)
		if tag == 30 {
			tag, err = d.r.ReadSize()
			if err != nil {
				return false, err
			}
		}
		if tag > expectedTag {
			d.r.SetPos(start)
			return false, nil
		}
		if tag < expectedTag {
			if err := d.skipOptional(format); err != nil {
				return false, err
			}
			continue
		}
		if format != expectedFormat {
			return false, marshalErrorf("tagged member %d: expected format %s, found %s", tag, expectedFormat, format)
		}
		return true, nil
	}
}

// skipOptional skips the payload of a tagged member whose header has
// already been consumed, according to its format's width rule.
func (d *Decoder) skipOptional(format OptionalFormat) error {
	switch format {
	case OptionalF1:
		_, err := d.r.ReadBlob(1)
		return err
	case OptionalF2:
		_, err := d.r.ReadBlob(2)
		return err
	case OptionalF4:
		_, err := d.r.ReadBlob(4)
		return err
	case OptionalF8:
		_, err := d.r.ReadBlob(8)
		return err
	case OptionalSize:
		_, err := d.r.ReadSize()
		return err
	case OptionalVSize:
		n, err := d.r.ReadSize()
		if err != nil {
			return err
		}
		_, err = d.r.ReadBlob(n)
		return err
	case OptionalFSize:
		n, err := d.r.ReadInt32()
		if err != nil {
			return err
		}
		_, err = d.r.ReadBlob(int(n))
		return err
	case OptionalClass:
		_, err := d.ReadClass(nil)
		return err
	default:
		return marshalErrorf("skipOptional: invalid format %d", format)
	}
}
