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

// Wire layout of one slice, from its flags byte:
//
//	[flags:u8][type-id encoding][sliceSize:i32 if HAS_SLICE_SIZE]
//	[body][tagged members + 0xFF if HAS_OPTIONAL_MEMBERS]
//	[indirection table if HAS_INDIRECTION_TABLE]
//
// sliceSize, when present, counts bytes from the sliceSize field itself
// through the end of the tagged-member section only — it deliberately
// excludes the trailing indirection table, whose own length is not known
// until it is parsed. This is why skipping an unrecognized slice is a
// two-step process: skip sliceSize-4 bytes to reach the indirection
// table (or the true slice end, if there is none), then separately walk
// the table to reach the true end.

// startSlice reads (or, if f.skipFirstSlice is set, reuses already-read)
// the header of the current slice. When readIndirectionTable is true and
// the slice has one, the table is read immediately (safe once the owning
// instance is registered); otherwise the caller is responsible for
// arranging a deferred read later.
func (d *Decoder) startSlice(s *instanceDecoder, f *instanceData, readIndirectionTable bool) error {
	if f.skipFirstSlice {
		f.skipFirstSlice = false
	} else {
		f.sliceStart = d.r.Pos()
		flags, err := d.r.ReadByte()
		if err != nil {
			return err
		}
		f.flags = flags

		switch flags & flagHasTypeIdCompact {
		case flagHasTypeIdString:
			id, err := d.r.ReadString()
			if err != nil {
				return err
			}
			f.typeID = id
			f.compactID = -1
			s.typeIdTable.Intern(id)
		case flagHasTypeIdIndex:
			idx, err := d.r.ReadSize()
			if err != nil {
				return err
			}
			id, ok := s.typeIdTable.Get(idx)
			if !ok {
				return marshalErrorf("slice type-id index %d not previously interned", idx)
			}
			f.typeID = id
			f.compactID = -1
		case flagHasTypeIdCompact:
			id, err := d.r.ReadSize()
			if err != nil {
				return err
			}
			f.typeID = ""
			f.compactID = int32(id)
		default:
			f.typeID = ""
			f.compactID = -1
		}

		if flags&flagHasSliceSize != 0 {
			sz, err := d.r.ReadInt32()
			if err != nil {
				return err
			}
			if sz < 4 {
				return marshalError("slice size < 4")
			}
			f.sliceSize = sz
		} else {
			f.sliceSize = 0
		}
		f.bodyStart = d.r.Pos()
	}

	f.haveIndirectionTable = false
	if readIndirectionTable && f.flags&flagHasIndirection != 0 {
		if f.flags&flagHasSliceSize == 0 {
			return marshalError("slice has an indirection table but no slice size")
		}
		saved := d.r.Pos()
		d.r.SetPos(f.bodyStart + int(f.sliceSize) - 4)
		table, err := d.readIndirectionTable(s)
		if err != nil {
			return err
		}
		f.indirectionTable = table
		f.posAfterIndirectionTable = d.r.Pos()
		f.haveIndirectionTable = true
		d.r.SetPos(saved)
	}
	return nil
}

// StartSlice begins (or resumes) reading the current instance's current
// slice. Generated (or hand-written) AnyClass/UserException Read methods
// call this once per level of their static inheritance chain, trusting —
// as the sender's encoder did, since both sides compile from the same
// Slice definitions — that exactly that many slices were written; unlike
// the dispatch loop in class.go/exception.go, a known type's Read method
// never consults IS_LAST_SLICE.
func (d *Decoder) StartSlice() error {
	s, err := d.encapsDecoder()
	if err != nil {
		return err
	}
	if s.top == nil {
		return marshalError("StartSlice called with no instance being read")
	}
	return d.startSlice(s, s.top, true)
}

// EndSlice finishes the current slice, draining any tagged members the
// Read method did not consume and skipping past any indirection table.
func (d *Decoder) EndSlice() error {
	s, err := d.encapsDecoder()
	if err != nil {
		return err
	}
	if s.top == nil {
		return marshalError("EndSlice called with no instance being read")
	}
	return d.endSlice(s.top)
}

// endSlice finishes the current slice: it drains any tagged members the
// application-level Read did not consume, then (if the slice had an
// indirection table) jumps past it to the true slice end.
func (d *Decoder) endSlice(f *instanceData) error {
	if f.flags&flagHasOptionalMember != 0 {
		if err := d.skipTrailingMembersOf(f); err != nil {
			return err
		}
	}
	if f.haveIndirectionTable {
		d.r.SetPos(f.posAfterIndirectionTable)
	}
	return nil
}

// skipTrailingMembersOf drains a slice's own tagged-member section
// (distinct from skipTrailingOptionals in encaps.go, which drains an
// encapsulation's top-level section); both share the same 0xFF-terminated
// format.
func (d *Decoder) skipTrailingMembersOf(f *instanceData) error {
	end := d.currentEncaps().end()
	if f.flags&flagHasSliceSize != 0 {
		end = f.bodyStart + int(f.sliceSize) - 4
	}
	for {
		if d.r.Pos() >= end {
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
			if _, err := d.r.ReadSize(); err != nil {
				return err
			}
		}
		if err := d.skipOptional(format); err != nil {
			return err
		}
	}
}

// skipSlice discards the current (unrecognized) slice's body wholesale,
// preserving its raw bytes (minus the trailing 0xFF end marker, which is
// re-derived on re-encode) and, for class slices, deferring real
// resolution of its indirection table until the owning instance has been
// registered.
func (d *Decoder) skipSlice(s *instanceDecoder, f *instanceData) (sliceInfo, error) {
	if f.flags&flagHasSliceSize == 0 {
		if f.kind == classSlice {
			return sliceInfo{}, &NoClassFactoryError{TypeID: f.typeID, CompactID: f.compactID}
		}
		return sliceInfo{}, &UnknownUserException{TypeID: f.typeID}
	}
	tableStart := f.bodyStart + int(f.sliceSize) - 4
	d.r.SetPos(tableStart)

	deferredPos := 0
	var tableNow []AnyClass
	if f.flags&flagHasIndirection != 0 {
		if f.kind == classSlice {
			deferredPos = tableStart
			if err := d.skipIndirectionTable(s); err != nil {
				return sliceInfo{}, err
			}
		} else {
			table, err := d.readIndirectionTable(s)
			if err != nil {
				return sliceInfo{}, err
			}
			tableNow = table
		}
	}
	end := d.r.Pos()

	markerEnd := tableStart
	hasOptional := f.flags&flagHasOptionalMember != 0
	if hasOptional {
		// The trailing 0xFF marker was written immediately before the
		// indirection table (or slice end, if none); exclude it from the
		// preserved bytes so it can be re-derived on re-encode.
		markerEnd--
	}
	raw := make([]byte, 0, end-f.sliceStart)
	raw = append(raw, d.r.Bytes()[f.sliceStart:markerEnd]...)
	raw = append(raw, d.r.Bytes()[tableStart:end]...)

	if f.kind == classSlice {
		f.deferredIndirectionTableList = append(f.deferredIndirectionTableList, deferredPos)
	} else if f.flags&flagHasIndirection != 0 {
		f.indirectionTableList = append(f.indirectionTableList, tableNow)
	}

	return sliceInfo{
		typeID:            f.typeID,
		compactID:         f.compactID,
		bytes:             raw,
		hasOptionalMember: hasOptional,
		isLastSlice:       f.flags&flagIsLastSlice != 0,
	}, nil
}
