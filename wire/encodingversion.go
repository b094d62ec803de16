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

// EncodingVersion is a (major, minor) encoding version pair. Only 1.0
// and 1.1 are recognized; 1.0 disables tagged members and class/exception
// decoding.
type EncodingVersion struct {
	Major, Minor uint8
}

// Encoding10 is the legacy encoding: no tagged members, no class or
// exception decoding.
var Encoding10 = EncodingVersion{1, 0}

// Encoding11 is the sliced-format encoding this decoder targets.
var Encoding11 = EncodingVersion{1, 1}

func (v EncodingVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Supported reports whether v is one of the two encodings this decoder
// recognizes.
func (v EncodingVersion) Supported() bool {
	return v == Encoding10 || v == Encoding11
}

// SupportsClasses reports whether v supports class/exception decoding
// and tagged members. Only 1.1 does; 1.0 decoding of classes/exceptions
// is explicitly unsupported by this decoder (spec.md: "this spec treats
// 1.0 class/exception decoding as unsupported").
func (v EncodingVersion) SupportsClasses() bool {
	return v == Encoding11
}
