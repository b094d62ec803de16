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

// TypeIdTable is a per-encapsulation string-interning table mapping
// index(1..) to type-id string. An index is assigned the first time a
// fresh type-id is read as a string; subsequent references to the same
// type-id are encoded as that index and cost only one size integer to
// decode.
type TypeIdTable struct {
	interned []string
}

// Reset clears the table back to empty, for reuse across encapsulations
// (see the encapsulation freelist in encaps.go).
func (t *TypeIdTable) Reset() {
	t.interned = t.interned[:0]
}

// Intern assigns the next index to id and returns it. If id is already
// in the table, its existing index is returned and nothing is added: a
// sender never re-emits a string-form type-id for an index it has
// already assigned, so a repeat only occurs when the decoder re-reads
// bytes it has already scanned (deferred indirection-table replay).
func (t *TypeIdTable) Intern(id string) int {
	for i, s := range t.interned {
		if s == id {
			return i + 1
		}
	}
	t.interned = append(t.interned, id)
	return len(t.interned) // 1-based
}

// Get returns the type-id string assigned to index, or ("", false) if
// no such index has been assigned yet.
func (t *TypeIdTable) Get(index int) (string, bool) {
	i := index - 1
	if i < 0 || i >= len(t.interned) {
		return "", false
	}
	return t.interned[i], true
}

// MaxIndex returns the number of type-ids interned so far.
func (t *TypeIdTable) MaxIndex() int {
	return len(t.interned)
}
