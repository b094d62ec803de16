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

import "testing"

// The types below stand in for Slice-compiler-generated classes: hand
// written, but shaped exactly the way generated Read methods are shaped
// (one StartSlice/EndSlice pair per level of static inheritance, trusting
// the sender wrote the same number of slices the receiver's own type
// definition expects).

// basePoint is a root (no base) class with one int32 member.
type basePoint struct {
	X int32
}

func (p *basePoint) Read(dec *Decoder) error {
	if err := dec.StartSlice(); err != nil {
		return err
	}
	x, err := dec.ReadInt32()
	if err != nil {
		return err
	}
	p.X = x
	return dec.EndSlice()
}

// derivedPoint extends basePoint with a second member.
type derivedPoint struct {
	basePoint
	Y int32
}

func (p *derivedPoint) Read(dec *Decoder) error {
	if err := dec.StartSlice(); err != nil {
		return err
	}
	y, err := dec.ReadInt32()
	if err != nil {
		return err
	}
	p.Y = y
	if err := dec.EndSlice(); err != nil {
		return err
	}
	return p.basePoint.Read(dec)
}

// nodeA/nodeB are a minimal cyclic pair: each refers to the other through
// its slice's indirection table, the only wire-legal way for a slice body
// to hold a class-typed member (a slice's flat body is skippable by raw
// byte count alone, which a variable-length nested instance would break).
type nodeA struct {
	Name string
	B    *nodeB
}

func (n *nodeA) Read(dec *Decoder) error {
	if err := dec.StartSlice(); err != nil {
		return err
	}
	ref, err := dec.ReadClassIndirect()
	if err != nil {
		return err
	}
	if ref != nil {
		b, ok := ref.(*nodeB)
		if !ok {
			return marshalErrorf("nodeA.B: expected *nodeB, got %T", ref)
		}
		n.B = b
	}
	return dec.EndSlice()
}

type nodeB struct {
	A *nodeA
}

func (n *nodeB) Read(dec *Decoder) error {
	if err := dec.StartSlice(); err != nil {
		return err
	}
	ref, err := dec.ReadClassIndirect()
	if err != nil {
		return err
	}
	if ref != nil {
		a, ok := ref.(*nodeA)
		if !ok {
			return marshalErrorf("nodeB.A: expected *nodeA, got %T", ref)
		}
		n.A = a
	}
	return dec.EndSlice()
}

// chainLink is a self-referential class used to exercise the class-graph
// depth guard: each link points to the next through its own indirection
// table, the same mechanism nodeA/nodeB use for their cyclic reference.
type chainLink struct {
	Next *chainLink
}

func (c *chainLink) Read(dec *Decoder) error {
	if err := dec.StartSlice(); err != nil {
		return err
	}
	ref, err := dec.ReadClassIndirect()
	if err != nil {
		return err
	}
	if ref != nil {
		next, ok := ref.(*chainLink)
		if !ok {
			return marshalErrorf("chainLink.Next: expected *chainLink, got %T", ref)
		}
		c.Next = next
	}
	return dec.EndSlice()
}

// preservingBase is a root class marked "preserve-slices": it accepts any
// more-derived slices this decoder's registry did not recognize.
type preservingBase struct {
	X     int32
	Extra *SlicedData
}

func (p *preservingBase) Read(dec *Decoder) error {
	if err := dec.StartSlice(); err != nil {
		return err
	}
	x, err := dec.ReadInt32()
	if err != nil {
		return err
	}
	p.X = x
	return dec.EndSlice()
}

func (p *preservingBase) SetSlicedData(sd *SlicedData) { p.Extra = sd }

// simpleException is a one-slice user exception with a single tagged
// member, grounded on spec.md's tagged/optional member semantics applied
// to exceptions instead of classes.
type simpleException struct {
	Reason string
	Code   int32
	hasCode bool
}

func (e *simpleException) Error() string { return "simpleException: " + e.Reason }

func (e *simpleException) Read(dec *Decoder) error {
	if err := dec.StartSlice(); err != nil {
		return err
	}
	reason, err := dec.ReadString()
	if err != nil {
		return err
	}
	e.Reason = reason
	ok, err := dec.ReadOptional(1, OptionalF4)
	if err != nil {
		return err
	}
	if ok {
		code, err := dec.ReadInt32()
		if err != nil {
			return err
		}
		e.Code = code
		e.hasCode = true
	}
	return dec.EndSlice()
}

// testClassFactory is the reference ClassFactory/UserExceptionFactory
// implementation used across the test suite, adapting the teacher's
// TypeResolver.Resolve(name) (unpacktyped.go) to this decoder's
// single-call construction protocol.
type testClassFactory map[string]func() AnyClass

func (f testClassFactory) NewClass(typeID string) (AnyClass, bool) {
	ctor, ok := f[typeID]
	if !ok {
		return nil, false
	}
	return ctor(), true
}

type testExceptionFactory map[string]func() UserException

func (f testExceptionFactory) NewUserException(typeID string) (UserException, bool) {
	ctor, ok := f[typeID]
	if !ok {
		return nil, false
	}
	return ctor(), true
}

func newTestRegistry() *ClassRegistry {
	return &ClassRegistry{
		Classes: testClassFactory{
			"::test::Base":    func() AnyClass { return &basePoint{} },
			"::test::Derived": func() AnyClass { return &derivedPoint{} },
			"::test::NodeA":   func() AnyClass { return &nodeA{} },
			"::test::NodeB":   func() AnyClass { return &nodeB{} },
			"::test::Preserving": func() AnyClass { return &preservingBase{} },
			"::test::Chain":      func() AnyClass { return &chainLink{} },
		},
		Exceptions: testExceptionFactory{
			"::test::SimpleException": func() UserException { return &simpleException{} },
		},
	}
}

// --- hand-assembled wire encoding helpers (test-only; this package has
// no encoder, so the inverse of every decode path used in these tests is
// built up here from first principles rather than borrowed from a
// marshaler) ---

func int32LE(v int32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func appendSize(buf []byte, n int) []byte {
	if n < 0xFF {
		return append(buf, byte(n))
	}
	return append(buf, 0xFF, byte(n), byte(n>>8), byte(n>>16), byte(n>>24))
}

func buildSlice(t *testing.T, typeID string, flags byte, body, table []byte) []byte {
	t.Helper()
	var out []byte
	out = append(out, flags)
	switch flags & flagHasTypeIdCompact {
	case flagHasTypeIdString:
		out = appendString(out, typeID)
	}
	if flags&flagHasSliceSize != 0 {
		sz := int32(4 + len(body))
		out = append(out, byte(sz), byte(sz>>8), byte(sz>>16), byte(sz>>24))
	}
	out = append(out, body...)
	out = append(out, table...)
	return out
}

// classRefInline encodes "read a fresh instance here", followed by that
// instance's own bytes.
func classRefInline(instanceBytes []byte) []byte {
	return append([]byte{0x01}, instanceBytes...)
}

// classRefBack encodes a back-reference to the instance assigned value id.
func classRefBack(valueID int) []byte {
	return appendSize(nil, valueID+1)
}

func classRefNil() []byte { return []byte{0x00} }

func oneEntryTable(entry []byte) []byte {
	return append([]byte{0x01}, entry...)
}

// wrapEncaps frames body in an encoding-1.1 encapsulation header, the way
// every class/exception/tagged-member test needs its bytes delivered
// (ReadClass, ThrowException, and ReadOptional all require an active
// encapsulation).
func wrapEncaps(body []byte) []byte {
	sz := int32(4 + 2 + len(body))
	out := []byte{byte(sz), byte(sz >> 8), byte(sz >> 16), byte(sz >> 24), 1, 1}
	return append(out, body...)
}

// decoderIn builds a Decoder over an encoding-1.1 encapsulation wrapping
// body, with its cursor positioned just past the encapsulation header,
// ready for a direct ReadClass/ThrowException/ReadOptional call. Slicing
// of unrecognized slices (Config.SliceClasses) is enabled.
func decoderIn(t *testing.T, reg *ClassRegistry, body []byte) *Decoder {
	t.Helper()
	buf := wrapEncaps(body)
	d := NewDecoder(buf, Config{Registry: reg, SliceClasses: true})
	if _, err := d.StartEncapsulation(); err != nil {
		t.Fatalf("StartEncapsulation: %v", err)
	}
	return d
}
