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

import "fmt"

// OutOfBoundsError is returned for any read past the buffer limit,
// a negative size, or a violation of the aggregate sequence-size budget.
type OutOfBoundsError struct {
	Op  string
	Pos int
	Lim int
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("wire: %s: out of bounds at position %d (limit %d)", e.Op, e.Pos, e.Lim)
}

func outOfBounds(op string, pos, lim int) error {
	return &OutOfBoundsError{Op: op, Pos: pos, Lim: lim}
}

// EncapsulationError is returned for malformed encapsulation framing:
// a size that doesn't fit the remaining buffer, or a cursor that isn't
// positioned at start+sz when the encapsulation is closed.
type EncapsulationError struct {
	Reason string
}

func (e *EncapsulationError) Error() string {
	return "wire: encapsulation: " + e.Reason
}

func encapsError(reason string) error {
	return &EncapsulationError{Reason: reason}
}

// MarshalError is returned for structurally invalid bytes: a bad object
// id, a bad indirection-table index, a mismatched tagged-member format,
// a UTF-8 decode failure, a missing slice size, or a class-graph-depth
// violation. A compact id the CompactIdResolver cannot translate is not
// a MarshalError: the resolver reports only found/not found, and the
// slice is then treated as unrecognized.
type MarshalError struct {
	Reason string
}

func (e *MarshalError) Error() string {
	return "wire: marshal: " + e.Reason
}

func marshalError(reason string) error {
	return &MarshalError{Reason: reason}
}

func marshalErrorf(format string, args ...any) error {
	return &MarshalError{Reason: fmt.Sprintf(format, args...)}
}

// NoClassFactoryError is returned when a compact-format slice names a
// type that has no registered factory. Unlike an unknown sliced-format
// type, a compact-format instance cannot be sliced down to a known base,
// so this failure is not recoverable. It is also returned for the first
// unresolved class or exception slice of any format when
// Config.SliceClasses is false.
type NoClassFactoryError struct {
	TypeID    string
	CompactID int32
}

func (e *NoClassFactoryError) Error() string {
	if e.TypeID != "" {
		return fmt.Sprintf("wire: no class factory for type id %q", stripScope(e.TypeID))
	}
	return fmt.Sprintf("wire: no class factory for compact id %d", e.CompactID)
}

// UnknownUserException is returned (as an error, by ThrowException) when
// the sender's most-derived exception type has no local registration and
// the last slice of the exception has been reached.
type UnknownUserException struct {
	TypeID string
}

func (e *UnknownUserException) Error() string {
	return "wire: unknown user exception: " + stripScope(e.TypeID)
}

// EncodingNotSupportedError is returned when tagged-member, class, or
// exception decoding is attempted inside an encapsulation encoded with
// version 1.0, which supports neither (spec.md Non-goals: "no support
// for the legacy 1.0 encoding beyond reading the header and rejecting
// class/exception decoding").
type EncodingNotSupportedError struct {
	Operation string
	Encoding  EncodingVersion
}

func (e *EncodingNotSupportedError) Error() string {
	return fmt.Sprintf("wire: %s: not supported under encoding %s", e.Operation, e.Encoding)
}

// stripScope removes a leading "::" from a Slice type-id, as is done
// when reporting an unknown type-id to the caller.
func stripScope(typeID string) string {
	if len(typeID) >= 2 && typeID[0] == ':' && typeID[1] == ':' {
		return typeID[2:]
	}
	return typeID
}
