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

// AnyClass is a polymorphic class instance: the root interface every
// decodable Slice class implements. Read is invoked once per instance and
// is responsible for walking startSlice/endSlice pairs from the
// most-derived slice up through every base slice, exactly the way
// generated Slice code does (see class.go's readInstance for the
// dispatch loop that locates the most-derived implementation).
//
// This mirrors the teacher's TypeResolver/StructParser split
// (unpacktyped.go): where the teacher resolves a type name to a
// StructParser{Init, SetField, Finalize}, this decoder resolves a
// type-id/compact-id to a constructor and hands the resulting value its
// own Read method to finish unmarshaling itself.
type AnyClass interface {
	Read(dec *Decoder) error
}

// UserException is a polymorphic exception instance. Unlike AnyClass,
// exceptions are never shared by reference (no indirection table
// back-references across exceptions), so UserException needs no separate
// registration step.
type UserException interface {
	error
	Read(dec *Decoder) error
}

// ClassFactory constructs a zero-value instance for a Slice type-id, the
// same role the teacher's TypeResolver.Resolve plays for struct names.
// Returning (nil, false) means "this factory does not know this type",
// which the class decoder distinguishes from a real construction error.
type ClassFactory interface {
	NewClass(typeID string) (AnyClass, bool)
}

// CompactIdResolver maps a numeric compact-id to the type-id string it
// abbreviates. Compact ids are a wire-size optimization: a sender may
// negotiate a small integer standing in for a type-id that both sides
// already associate with it out of band.
type CompactIdResolver interface {
	ResolveCompactId(id int32) (string, bool)
}

// UserExceptionFactory constructs a zero-value user exception for a
// Slice type-id.
type UserExceptionFactory interface {
	NewUserException(typeID string) (UserException, bool)
}

// ProxyFactory constructs application-level proxy values from a decoded
// Identity. A nil ProxyFactory is valid: ReadProxy then returns the
// decoded ProxyData itself as the proxy value, which is sufficient for
// decoders that do not resolve live references.
type ProxyFactory interface {
	NewProxy(id Identity, facet string) (any, error)
}

// ClassRegistry bundles the collaborators readInstance/throwException
// need to resolve a type-id or compact-id into a constructed value. It is
// the decoder's analogue of the teacher's Communicator (which owns the
// TypeResolver used by unpacktyped.go).
type ClassRegistry struct {
	Classes         ClassFactory
	Exceptions      UserExceptionFactory
	CompactIds      CompactIdResolver
	Proxies         ProxyFactory
}

func (c *ClassRegistry) resolveClass(typeID string) (AnyClass, bool) {
	if c == nil || c.Classes == nil {
		return nil, false
	}
	return c.Classes.NewClass(typeID)
}

func (c *ClassRegistry) resolveException(typeID string) (UserException, bool) {
	if c == nil || c.Exceptions == nil {
		return nil, false
	}
	return c.Exceptions.NewUserException(typeID)
}

func (c *ClassRegistry) resolveCompactId(id int32) (string, bool) {
	if c == nil || c.CompactIds == nil {
		return "", false
	}
	return c.CompactIds.ResolveCompactId(id)
}
