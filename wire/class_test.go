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
	"errors"
	"testing"
)

const (
	flagsNotLast = flagHasTypeIdString | flagHasSliceSize
	flagsLast    = flagHasTypeIdString | flagHasSliceSize | flagIsLastSlice
)

func TestReadClassMatchedOnFirstSlice(t *testing.T) {
	derived := buildSlice(t, "::test::Derived", flagsNotLast, int32LE(7), nil)
	base := buildSlice(t, "::test::Base", flagsLast, int32LE(3), nil)
	full := classRefInline(append(derived, base...))

	d := decoderIn(t, newTestRegistry(), full)
	v, err := d.ReadClass(nil)
	if err != nil {
		t.Fatal(err)
	}
	dp, ok := v.(*derivedPoint)
	if !ok {
		t.Fatalf("got %T", v)
	}
	if dp.Y != 7 || dp.X != 3 {
		t.Fatalf("got Y=%d X=%d", dp.Y, dp.X)
	}
}

func TestReadClassUnrecognizedMostDerivedFallsBackToBase(t *testing.T) {
	unknown := buildSlice(t, "::test::Unknown1", flagsNotLast, []byte{0xaa, 0xbb}, nil)
	base := buildSlice(t, "::test::Base", flagsLast, int32LE(9), nil)
	full := classRefInline(append(unknown, base...))

	d := decoderIn(t, newTestRegistry(), full)
	v, err := d.ReadClass(nil)
	if err != nil {
		t.Fatal(err)
	}
	bp, ok := v.(*basePoint)
	if !ok {
		t.Fatalf("got %T", v)
	}
	if bp.X != 9 {
		t.Fatalf("got X=%d", bp.X)
	}
}

func TestReadClassPreservesUnrecognizedSliceForHolder(t *testing.T) {
	unknown := buildSlice(t, "::test::Unknown2", flagsNotLast, []byte{0x01, 0x02, 0x03}, nil)
	base := buildSlice(t, "::test::Preserving", flagsLast, int32LE(5), nil)
	full := classRefInline(append(unknown, base...))

	d := decoderIn(t, newTestRegistry(), full)
	v, err := d.ReadClass(nil)
	if err != nil {
		t.Fatal(err)
	}
	p, ok := v.(*preservingBase)
	if !ok {
		t.Fatalf("got %T", v)
	}
	if p.X != 5 {
		t.Fatalf("got X=%d", p.X)
	}
	if p.Extra == nil || len(p.Extra.Slices) != 1 {
		t.Fatalf("expected one preserved slice, got %+v", p.Extra)
	}
	if p.Extra.Slices[0].TypeId != "::test::Unknown2" {
		t.Fatalf("got preserved type id %q", p.Extra.Slices[0].TypeId)
	}
}

func TestReadClassFullyUnknownInstance(t *testing.T) {
	unknown := buildSlice(t, "::test::TotallyUnknown", flagsLast, int32LE(1), nil)
	full := classRefInline(unknown)

	d := decoderIn(t, newTestRegistry(), full)
	v, err := d.ReadClass(nil)
	if err != nil {
		t.Fatal(err)
	}
	u, ok := v.(*UnknownSlicedClass)
	if !ok {
		t.Fatalf("got %T", v)
	}
	if u.UnknownTypeId != "::test::TotallyUnknown" {
		t.Fatalf("got type id %q", u.UnknownTypeId)
	}
	if u.SlicedData == nil || len(u.SlicedData.Slices) != 1 {
		t.Fatalf("expected one preserved slice, got %+v", u.SlicedData)
	}
}

func TestReadClassNilReference(t *testing.T) {
	d := decoderIn(t, newTestRegistry(), classRefNil())
	v, err := d.ReadClass(nil)
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Fatalf("expected nil, got %+v", v)
	}
}

func TestReadClassCyclicPairViaIndirectionTable(t *testing.T) {
	const flagsCyclic = flagHasTypeIdString | flagHasSliceSize | flagHasIndirection | flagIsLastSlice

	bodyB := []byte{0x01}                      // index 1 -> B's own table entry 0
	tableB := oneEntryTable(classRefBack(1))    // entry 0: back-reference to value id 1 (A)
	bBytes := buildSlice(t, "::test::NodeB", flagsCyclic, bodyB, tableB)

	bodyA := []byte{0x01}                        // index 1 -> A's own table entry 0
	tableA := oneEntryTable(classRefInline(bBytes)) // entry 0: fresh B follows inline
	aBytes := buildSlice(t, "::test::NodeA", flagsCyclic, bodyA, tableA)

	full := classRefInline(aBytes)
	d := decoderIn(t, newTestRegistry(), full)
	v, err := d.ReadClass(nil)
	if err != nil {
		t.Fatal(err)
	}
	a, ok := v.(*nodeA)
	if !ok {
		t.Fatalf("got %T", v)
	}
	if a.B == nil {
		t.Fatal("expected nodeA.B to be set")
	}
	if a.B.A != a {
		t.Fatalf("expected nodeB.A to point back to the same nodeA instance, got %+v", a.B.A)
	}
}

func TestReadClassSliceClassesDisabledFailsOnFirstUnknownSlice(t *testing.T) {
	unknown := buildSlice(t, "::test::Unknown1", flagsNotLast, []byte{0xaa, 0xbb}, nil)
	base := buildSlice(t, "::test::Base", flagsLast, int32LE(9), nil)
	full := classRefInline(append(unknown, base...))

	buf := wrapEncaps(full)
	d := NewDecoder(buf, Config{Registry: newTestRegistry(), SliceClasses: false})
	if _, err := d.StartEncapsulation(); err != nil {
		t.Fatal(err)
	}
	_, err := d.ReadClass(nil)
	var nf *NoClassFactoryError
	if !errors.As(err, &nf) {
		t.Fatalf("expected *NoClassFactoryError with slicing disabled, got %v", err)
	}
}

func TestReadClassGraphDepthLimit(t *testing.T) {
	const flagsLink = flagHasTypeIdString | flagHasSliceSize | flagHasIndirection | flagIsLastSlice

	// Three nested links: link0 -> link1 -> link2 -> nil.
	link2 := buildSlice(t, "::test::Chain", flagsLink, []byte{0x00}, oneEntryTable(classRefNil()))
	link1 := buildSlice(t, "::test::Chain", flagsLink, []byte{0x01}, oneEntryTable(classRefInline(link2)))
	link0 := buildSlice(t, "::test::Chain", flagsLink, []byte{0x01}, oneEntryTable(classRefInline(link1)))
	full := classRefInline(link0)

	d := NewDecoder(wrapEncaps(full), Config{Registry: newTestRegistry(), MaxClassGraphDepth: 2})
	if _, err := d.StartEncapsulation(); err != nil {
		t.Fatal(err)
	}
	if _, err := d.ReadClass(nil); err == nil {
		t.Fatal("expected class graph depth limit to be exceeded")
	}
}
