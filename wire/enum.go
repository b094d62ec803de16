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

// ReadEnum reads an enumerator value and validates it against the
// generated type's maximum enumerator value (maxValue is inclusive, i.e.
// the number of enumerators minus one). Encoding 1.1 encodes the value as
// a compact size; encoding 1.0 picks a fixed width from maxValue instead
// (u8 if maxValue < 127, i16 if < 32767, else i32). A call made outside
// any active encapsulation defaults to the 1.1 width.
func (d *Decoder) ReadEnum(maxValue int32) (int32, error) {
	enc := Encoding11
	if f := d.currentEncaps(); f != nil {
		enc = f.encoding
	}

	var v int
	var err error
	if enc == Encoding10 {
		switch {
		case maxValue < 127:
			var b byte
			b, err = d.r.ReadByte()
			v = int(b)
		case maxValue < 32767:
			var i int16
			i, err = d.r.ReadInt16()
			v = int(i)
		default:
			var i int32
			i, err = d.r.ReadInt32()
			v = int(i)
		}
	} else {
		v, err = d.r.ReadSize()
	}
	if err != nil {
		return 0, err
	}
	if int32(v) < 0 || int32(v) > maxValue {
		return 0, marshalErrorf("enumerator value %d out of range [0, %d]", v, maxValue)
	}
	return int32(v), nil
}
