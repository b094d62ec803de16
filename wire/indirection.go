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

// A class reference, wherever it appears (a class-typed data member, a
// tagged OptionalClass member, or one entry of an indirection table), is
// encoded as a single size value:
//
//	0  -> nil
//	1  -> a fresh instance follows inline; read it and assign it the next
//	      value id
//	n  -> a back-reference to the instance previously assigned value id
//	      n-1
//
// readIndirectionTable reads a full table of such references, recursing
// into readInstance for every inline ("1") entry.
func (d *Decoder) readIndirectionTable(s *instanceDecoder) ([]AnyClass, error) {
	n, err := d.r.ReadAndCheckSeqSize(1)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, marshalError("indirection table size must be > 0")
	}
	table := make([]AnyClass, n)
	for i := range table {
		v, err := d.readClassRef(s)
		if err != nil {
			return nil, err
		}
		table[i] = v
	}
	return table, nil
}

// skipIndirectionTable walks a table structurally, without constructing
// any real class values, advancing the cursor past every inline instance
// it finds. Used only for the deferred-read path: a class slice's
// indirection table is skipped once during the dispatch loop (before the
// owning instance is registered) and replayed for real afterward.
func (d *Decoder) skipIndirectionTable(s *instanceDecoder) error {
	n, err := d.r.ReadAndCheckSeqSize(1)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		idx, err := d.r.ReadSize()
		if err != nil {
			return err
		}
		if idx == 1 {
			if err := d.skipInstanceStructure(s); err != nil {
				return err
			}
		}
	}
	return nil
}

// skipInstanceStructure advances the cursor past one inline instance's
// full slice chain (header through IS_LAST_SLICE) without resolving a
// factory or registering anything in the unmarshaled map. It is the
// non-materializing counterpart to readInstance, used only while
// skipping a deferred indirection table.
func (d *Decoder) skipInstanceStructure(s *instanceDecoder) error {
	s.classGraphDepth++
	defer func() { s.classGraphDepth-- }()
	if d.maxClassGraphDepth > 0 && s.classGraphDepth > d.maxClassGraphDepth {
		return marshalError("class graph depth exceeds configured maximum")
	}

	f := s.push(classSlice)
	defer s.pop()

	if err := d.startSlice(s, f, false); err != nil {
		return err
	}
	for {
		if f.flags&flagHasIndirection != 0 {
			if f.flags&flagHasSliceSize == 0 {
				return marshalError("slice has an indirection table but no slice size")
			}
			d.r.SetPos(f.bodyStart + int(f.sliceSize) - 4)
			if err := d.skipIndirectionTable(s); err != nil {
				return err
			}
		} else if f.flags&flagHasSliceSize != 0 {
			d.r.SetPos(f.bodyStart + int(f.sliceSize) - 4)
		} else {
			return &NoClassFactoryError{TypeID: f.typeID, CompactID: f.compactID}
		}
		if f.flags&flagIsLastSlice != 0 {
			return nil
		}
		if err := d.startSlice(s, f, false); err != nil {
			return err
		}
	}
}
