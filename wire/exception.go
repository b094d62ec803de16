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

// ThrowException decodes a user exception's slice chain. Unlike a class
// instance, an exception is never shared by reference: there is no
// back-reference map and no deferred indirection-table replay, so every
// slice's indirection table (if any) is read eagerly, in the order its
// slice is encountered.
//
// hint, like ReadClass's, is tried before the Decoder's configured
// registry and may be nil.
func (d *Decoder) ThrowException(hint UserExceptionFactory) (UserException, error) {
	s, err := d.encapsDecoder()
	if err != nil {
		return nil, err
	}

	f := s.push(exceptionSlice)
	defer s.pop()

	if err := d.startSlice(s, f, true); err != nil {
		return nil, err
	}

	var mostDerived string
	first := true
	for {
		if first {
			mostDerived = f.typeID
			first = false
		}

		var ex UserException
		var ok bool
		if hint != nil {
			ex, ok = hint.NewUserException(f.typeID)
		}
		if !ok {
			ex, ok = d.registry.resolveException(f.typeID)
		}
		if ok {
			f.skipFirstSlice = true
			if err := ex.Read(d); err != nil {
				return nil, err
			}
			return ex, nil
		}

		if !d.sliceClasses {
			return nil, &NoClassFactoryError{TypeID: f.typeID, CompactID: f.compactID}
		}
		if d.traceLevel > 0 {
			d.trace("slicing unknown exception slice", "typeId", f.typeID)
		}

		if _, err := d.skipSlice(s, f); err != nil {
			return nil, err
		}
		if f.flags&flagIsLastSlice != 0 {
			if d.traceLevel > 0 {
				d.trace("exception decode: no factory found, unknown user exception", "mostDerivedTypeId", mostDerived)
			}
			return nil, &UnknownUserException{TypeID: mostDerived}
		}
		if err := d.startSlice(s, f, true); err != nil {
			return nil, err
		}
	}
}
