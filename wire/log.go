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

// Logger is the decoder's tracing collaborator. *slog.Logger satisfies
// it directly, so wiring a Decoder's trace output into an application's
// existing structured logging is a matter of passing its *slog.Logger
// straight through (see Config.Logger in decoder.go).
type Logger interface {
	Debug(msg string, args ...any)
}

func (d *Decoder) trace(msg string, args ...any) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}
