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

// ReadClassIndirect reads a 1-based index into the current slice's
// indirection table (0 meaning nil) and returns the class reference it
// names. Generated Read methods use this for a class-typed member that
// was encoded via the indirection table rather than inline, which lets a
// cyclic group of instances all be listed once per referencing slice
// instead of repeating "back-reference to value id N" at every use.
func (d *Decoder) ReadClassIndirect() (AnyClass, error) {
	s, err := d.encapsDecoder()
	if err != nil {
		return nil, err
	}
	if s.top == nil {
		return nil, marshalError("ReadClassIndirect called with no instance being read")
	}
	idx, err := d.r.ReadSize()
	if err != nil {
		return nil, err
	}
	if idx == 0 {
		return nil, nil
	}
	i := idx - 1
	if i < 0 || i >= len(s.top.indirectionTable) {
		return nil, marshalErrorf("indirection table index %d out of range (table has %d entries)", idx, len(s.top.indirectionTable))
	}
	return s.top.indirectionTable[i], nil
}

// ReadClass reads one class reference from the current encapsulation: a
// nil marker, a back-reference to an instance already unmarshaled, or a
// fresh instance. hint, if non-nil, is consulted ahead of the Decoder's
// own registry for this single call only (e.g. a data member whose
// static type narrows which factories are plausible); pass nil to use
// the registry alone.
func (d *Decoder) ReadClass(hint ClassFactory) (AnyClass, error) {
	s, err := d.encapsDecoder()
	if err != nil {
		return nil, err
	}
	prev := d.classHint
	d.classHint = hint
	defer func() { d.classHint = prev }()
	return d.readClassRef(s)
}

func (d *Decoder) readClassRef(s *instanceDecoder) (AnyClass, error) {
	idx, err := d.r.ReadSize()
	if err != nil {
		return nil, err
	}
	if idx == 0 {
		return nil, nil
	}
	if idx == 1 {
		newIndex := s.valueIdIndex + 1
		s.valueIdIndex = newIndex
		return d.readInstance(s, newIndex)
	}
	v, ok := s.unmarshaledMap[int32(idx-1)]
	if !ok {
		return nil, marshalErrorf("indirect reference to unassigned value id %d", idx-1)
	}
	return v, nil
}

// readInstance implements the class-graph decoder's dispatch loop
// (spec.md §4): it reads slice headers from most-derived to least, trying
// to resolve each against the registry, until either a factory is found
// or the last slice (IS_LAST_SLICE) is reached with nothing recognized,
// in which case the whole instance is preserved as an UnknownSlicedClass.
func (d *Decoder) readInstance(s *instanceDecoder, newIndex int32) (AnyClass, error) {
	s.classGraphDepth++
	defer func() { s.classGraphDepth-- }()
	if d.maxClassGraphDepth > 0 && s.classGraphDepth > d.maxClassGraphDepth {
		return nil, marshalError("class graph depth exceeds configured maximum")
	}

	f := s.push(classSlice)
	defer s.pop()

	if err := d.startSlice(s, f, false); err != nil {
		return nil, err
	}

	var preserved []sliceInfo
	var mostDerived string
	first := true
	for {
		if first {
			mostDerived = f.typeID
			first = false
		}

		typeName, resolvable := d.resolveSliceTypeName(s, f)
		if resolvable {
			if v, ok := d.resolveFactory(typeName); ok {
				return d.finishInstance(s, f, newIndex, v, preserved)
			}
		}

		if !d.sliceClasses {
			return nil, &NoClassFactoryError{TypeID: f.typeID, CompactID: f.compactID}
		}
		if d.traceLevel > 0 {
			d.trace("slicing unknown class slice", "typeId", f.typeID, "compactId", f.compactID)
		}

		si, err := d.skipSlice(s, f)
		if err != nil {
			return nil, err
		}
		preserved = append(preserved, si)

		if f.flags&flagIsLastSlice != 0 {
			if d.traceLevel > 0 {
				d.trace("class graph decode: no factory found, preserving as unknown", "mostDerivedTypeId", mostDerived)
			}
			return d.finishUnknownInstance(s, newIndex, mostDerived, preserved)
		}
		if err := d.startSlice(s, f, false); err != nil {
			return nil, err
		}
	}
}

// resolveSliceTypeName returns the Slice type-id for the slice currently
// loaded into f, resolving a compact id through the registry's
// CompactIdResolver (with negative-result caching) if necessary.
// resolvable is false when the slice carries neither a type-id nor a
// compact id, or when its compact id could not be translated to any
// type-id.
func (d *Decoder) resolveSliceTypeName(s *instanceDecoder, f *instanceData) (string, bool) {
	if f.typeID != "" {
		return f.typeID, true
	}
	if f.compactID < 0 {
		return "", false
	}
	if e, ok := s.compactIDCache[f.compactID]; ok {
		return e.typeID, e.ok
	}
	typeID, ok := d.registry.resolveCompactId(f.compactID)
	s.compactIDCache[f.compactID] = compactIDEntry{typeID: typeID, ok: ok}
	return typeID, ok
}

func (d *Decoder) resolveFactory(typeID string) (AnyClass, bool) {
	if d.classHint != nil {
		if v, ok := d.classHint.NewClass(typeID); ok {
			return v, true
		}
	}
	return d.registry.resolveClass(typeID)
}

// SlicedDataHolder is implemented by a generated class whose Slice
// definition is marked "preserve-slices": it receives the slices of its
// own more-derived subtypes that this decoder's registry did not
// recognize, so an application that round-trips the value does not lose
// them.
type SlicedDataHolder interface {
	SetSlicedData(*SlicedData)
}

// finishInstance registers v in the unmarshaled map (making it visible
// to any cyclic back-reference before it is filled in), replays any
// deferred indirection tables recorded while skipping unrecognized
// slices, attaches any preserved more-derived slices if v accepts them,
// and finally lets v read its own data.
func (d *Decoder) finishInstance(s *instanceDecoder, f *instanceData, newIndex int32, v AnyClass, preserved []sliceInfo) (AnyClass, error) {
	s.unmarshaledMap[newIndex] = v
	if err := d.replayDeferredIndirectionTables(s, f); err != nil {
		return nil, err
	}
	if len(preserved) > 0 {
		if holder, ok := v.(SlicedDataHolder); ok {
			holder.SetSlicedData(buildSlicedData(preserved, f.indirectionTableList))
		}
	}
	f.skipFirstSlice = true
	if err := v.Read(d); err != nil {
		return nil, err
	}
	return v, nil
}

func buildSlicedData(preserved []sliceInfo, tables [][]AnyClass) *SlicedData {
	sd := &SlicedData{Slices: make([]*SliceInfo, len(preserved))}
	for i, si := range preserved {
		var instances []AnyClass
		if i < len(tables) {
			instances = tables[i]
		}
		sd.Slices[i] = &SliceInfo{
			TypeId:             si.typeID,
			CompactId:          si.compactID,
			Bytes:              si.bytes,
			HasOptionalMembers: si.hasOptionalMember,
			IsLastSlice:        si.isLastSlice,
			Instances:          instances,
		}
	}
	return sd
}

// finishUnknownInstance builds an UnknownSlicedClass from every slice
// collected while searching for a recognized type, none of which matched.
func (d *Decoder) finishUnknownInstance(s *instanceDecoder, newIndex int32, mostDerived string, preserved []sliceInfo) (AnyClass, error) {
	f := s.top
	u := &UnknownSlicedClass{UnknownTypeId: mostDerived}
	s.unmarshaledMap[newIndex] = u
	if err := d.replayDeferredIndirectionTables(s, f); err != nil {
		return nil, err
	}
	u.SlicedData = buildSlicedData(preserved, f.indirectionTableList)
	return u, nil
}

// replayDeferredIndirectionTables re-reads, for real this time, every
// indirection table that was skipped (not parsed) while this instance's
// slices were being matched against the registry. It is safe to build
// live AnyClass values now because the instance itself was registered in
// unmarshaledMap immediately before this call, so a cyclic reference back
// to it resolves correctly.
func (d *Decoder) replayDeferredIndirectionTables(s *instanceDecoder, f *instanceData) error {
	if len(f.deferredIndirectionTableList) == 0 {
		return nil
	}
	saved := d.r.Pos()
	for _, pos := range f.deferredIndirectionTableList {
		if pos == 0 {
			f.indirectionTableList = append(f.indirectionTableList, nil)
			continue
		}
		d.r.SetPos(pos)
		table, err := d.readIndirectionTable(s)
		if err != nil {
			return err
		}
		f.indirectionTableList = append(f.indirectionTableList, table)
	}
	d.r.SetPos(saved)
	return nil
}
