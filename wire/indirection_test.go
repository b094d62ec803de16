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

// TestIndirectionTableRejectsZeroSize covers spec.md §4.5's invariant
// that a present indirection table must declare size > 0: a slice that
// sets HAS_INDIRECTION_TABLE but encodes an empty table is malformed,
// not an absent table in disguise.
func TestIndirectionTableRejectsZeroSize(t *testing.T) {
	const flags = flagHasTypeIdString | flagHasSliceSize | flagHasIndirection | flagIsLastSlice

	body := []byte{0x00} // class member: nil (never reached)
	table := []byte{0x00} // indirection table size = 0
	full := classRefInline(buildSlice(t, "::test::NodeA", flags, body, table))

	d := decoderIn(t, newTestRegistry(), full)
	if _, err := d.ReadClass(nil); err == nil {
		t.Fatal("expected a zero-size indirection table to be rejected")
	}
}
