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

// Slice header flag bits (spec.md §3).
const (
	flagHasTypeIdString   = 0x01
	flagHasTypeIdIndex    = 0x02
	flagHasTypeIdCompact  = 0x03 // the pair acts as a 2-bit field: flags&0x03
	flagHasOptionalMember = 0x04
	flagHasIndirection    = 0x08
	flagHasSliceSize      = 0x10
	flagIsLastSlice       = 0x20
)

type sliceKind int8

const (
	classSlice sliceKind = iota
	exceptionSlice
)

// sliceInfo is one preserved (unknown-to-the-receiver) slice of an
// instance: its raw bytes, verbatim, plus the metadata needed to
// re-encode it and the (possibly still-unresolved-at-capture-time) class
// references its indirection table held.
type sliceInfo struct {
	typeID            string
	compactID         int32
	bytes             []byte
	hasOptionalMember bool
	isLastSlice       bool
	instances         []AnyClass // not filled in; buildSlicedData (class.go) pairs tables with slices in SliceInfo.Instances
}

// instanceData is one frame of the per-instance slice state machine: it
// tracks the slice currently being read for one class or exception
// instance, and accumulates the preserved (unknown) slices and their
// indirection tables across the whole instance's inheritance chain.
//
// Frames form a doubly-linked reusable chain (previous/next) so that
// pushing a new instance during decoding (e.g. while reading a nested
// member) can reuse a frame freed by an instance that has already
// finished, independent of simple stack order.
type instanceData struct {
	kind           sliceKind
	skipFirstSlice bool

	// current slice header state
	flags       byte
	typeID      string
	compactID   int32
	sliceSize   int32
	sliceStart  int // position of the flags byte
	bodyStart   int // position right after the header (after sliceSize field, if present)

	indirectionTable         []AnyClass
	posAfterIndirectionTable int
	haveIndirectionTable     bool

	// indirectionTableList holds the tables of class references found in
	// skipped slices: for classes, one entry per preserved slice (nil if
	// it had no table), in the order the deferred tables are replayed;
	// for exceptions, one entry per skipped slice that has a table.
	indirectionTableList [][]AnyClass

	// deferredIndirectionTableList holds, for class slices only, the
	// stream position at which a skipped slice's indirection table can
	// be re-read for real once the owning instance has been registered
	// in the unmarshaled map. A value of 0 means "no table".
	deferredIndirectionTableList []int

	slices []sliceInfo

	previous, next *instanceData
}

func (f *instanceData) clear() {
	f.skipFirstSlice = false
	f.flags = 0
	f.typeID = ""
	f.compactID = -1
	f.sliceSize = 0
	f.sliceStart = 0
	f.bodyStart = 0
	f.indirectionTable = nil
	f.posAfterIndirectionTable = 0
	f.haveIndirectionTable = false
	f.indirectionTableList = f.indirectionTableList[:0]
	f.deferredIndirectionTableList = f.deferredIndirectionTableList[:0]
	f.slices = f.slices[:0]
}

// instanceDecoder is the slice state machine bound to one encapsulation:
// the current chain of instanceData frames plus the per-encapsulation
// caches and counters that the class/exception decoders need.
type instanceDecoder struct {
	dec *Decoder

	top *instanceData // current top of the instance-data stack

	valueIdIndex    int32
	unmarshaledMap  map[int32]AnyClass
	compactIDCache  map[int32]compactIDEntry
	classGraphDepth int

	typeIdTable TypeIdTable
}

// compactIDEntry memoizes a compact-id -> type-id resolution, including
// negative (unresolvable) results, so that a slice stream reusing the
// same compact id many times only consults the CompactIdResolver once.
// This mirrors the teacher's sync.Map LoadOrStore negative-caching idiom
// (compiledStructs in unpacktyped.go), simplified to a plain map since a
// Decoder is never shared across goroutines.
type compactIDEntry struct {
	typeID string
	ok     bool
}

func newInstanceDecoder(dec *Decoder) *instanceDecoder {
	return &instanceDecoder{
		dec:            dec,
		unmarshaledMap: make(map[int32]AnyClass),
		compactIDCache: make(map[int32]compactIDEntry),
	}
}

func (s *instanceDecoder) reset() {
	s.top = nil
	s.valueIdIndex = 0
	for k := range s.unmarshaledMap {
		delete(s.unmarshaledMap, k)
	}
	for k := range s.compactIDCache {
		delete(s.compactIDCache, k)
	}
	s.classGraphDepth = 0
	s.typeIdTable.Reset()
}

func (s *instanceDecoder) active() bool {
	return s.top != nil
}

// push allocates a fresh instanceData frame for a new instance, reusing
// s.top.next if a frame has already been allocated there by a previously
// finished instance at the same nesting depth.
func (s *instanceDecoder) push(kind sliceKind) *instanceData {
	var f *instanceData
	if s.top != nil && s.top.next != nil {
		f = s.top.next
		f.clear()
	} else {
		f = &instanceData{compactID: -1}
		if s.top != nil {
			s.top.next = f
			f.previous = s.top
		}
	}
	f.kind = kind
	s.top = f
	return f
}

func (s *instanceDecoder) pop() {
	s.top = s.top.previous
}
