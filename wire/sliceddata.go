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

import "golang.org/x/exp/slices"

// SliceInfo is one preserved slice of a class instance whose most-derived
// type was not recognized by the registry: its raw encoded bytes plus
// enough metadata to re-emit it unchanged, and the (now fully resolved)
// class references its indirection table held.
type SliceInfo struct {
	TypeId             string
	CompactId          int32
	Bytes              []byte
	HasOptionalMembers bool
	IsLastSlice        bool
	Instances          []AnyClass
}

// SlicedData is the ordered set of preserved slices for one instance,
// most-derived first, captured whenever decoding encounters one or more
// slices it has no factory for. Holding onto a SlicedData is what lets an
// application round-trip a partially-unknown class graph without losing
// the slices it cannot interpret, the same opaque-handle idea as the
// teacher's Datum (buffer + symbol table) for values it does not parse
// eagerly.
type SlicedData struct {
	Slices []*SliceInfo
}

// Clone returns a deep copy of s, safe to retain past the lifetime of the
// Reader whose buffer the original bytes may still alias.
func (s *SlicedData) Clone() *SlicedData {
	if s == nil {
		return nil
	}
	out := &SlicedData{Slices: make([]*SliceInfo, len(s.Slices))}
	for i, si := range s.Slices {
		clone := *si
		clone.Bytes = slices.Clone(si.Bytes)
		clone.Instances = slices.Clone(si.Instances)
		out.Slices[i] = &clone
	}
	return out
}

// UnknownSlicedClass is the fallback AnyClass produced when every slice
// of an instance's most-derived type (down to the one marked
// IS_LAST_SLICE) went unrecognized by the registry. It exists purely to
// hold the preserved SlicedData; its Read method is never invoked by the
// normal decode path, since class.go fully populates it while resolving
// the instance.
type UnknownSlicedClass struct {
	UnknownTypeId string
	SlicedData    *SlicedData
}

func (u *UnknownSlicedClass) Read(dec *Decoder) error { return nil }
