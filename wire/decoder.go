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

// Package wire decodes values encoded with version 1.1 of the Slice wire
// format: primitives, sequences and strings, proxies, enums, user
// exceptions, and polymorphic class instances sliced across an
// inheritance chain. It is an input-only decoder; there is no
// corresponding encoder in this package (spec.md Non-goals).
package wire

// Config holds the collaborators and hostile-input limits a Decoder
// needs beyond the raw bytes: the registry used to resolve class and
// exception type-ids, an optional trace logger, and a class-graph depth
// guard. A zero Config is valid and yields a Decoder that can read
// primitives/sequences/proxies/enums but treats every class or exception
// type-id as unrecognized.
type Config struct {
	Registry *ClassRegistry
	Logger   Logger

	// MaxClassGraphDepth bounds how deeply readInstance/ThrowException
	// may recurse while resolving nested class references (directly or
	// via indirection tables). Zero means unbounded. This is the
	// decoder's defense against a hostile sender building a class graph
	// deep enough to exhaust the goroutine stack.
	MaxClassGraphDepth int

	// SliceClasses, when false, disables the slice-and-continue fallback
	// in readInstance/ThrowException: the first slice whose type cannot
	// be resolved fails immediately with NoClassFactoryError instead of
	// being skipped in search of a recognized base. Ice applications
	// that only ever round-trip fully-known class graphs set this to
	// reject unknown types loudly rather than silently preserving them.
	SliceClasses bool

	// TraceLevel gates the decoder's slicing trace (Logger.Debug calls
	// in class.go's and exception.go's skip/fallback branches). Zero disables tracing
	// entirely; this mirrors the teacher's traceLevels.slicing knob.
	TraceLevel int
}

// Decoder reads a single top-level Slice-encoded buffer: a sequence of
// primitive values, strings, sequences, proxies, and (inside
// encapsulations) polymorphic class instances and user exceptions.
type Decoder struct {
	r *Reader

	encapsStack []*encapsFrame
	encapsFree  *encapsFrame

	registry           *ClassRegistry
	classHint          ClassFactory
	logger             Logger
	maxClassGraphDepth int
	sliceClasses       bool
	traceLevel         int
}

// NewDecoder constructs a Decoder over buf using cfg's registry, logger,
// and limits.
func NewDecoder(buf []byte, cfg Config) *Decoder {
	return &Decoder{
		r:                  NewReader(buf),
		registry:           cfg.Registry,
		logger:             cfg.Logger,
		maxClassGraphDepth: cfg.MaxClassGraphDepth,
		sliceClasses:       cfg.SliceClasses,
		traceLevel:         cfg.TraceLevel,
	}
}

// Pos returns the Decoder's current cursor position within its buffer.
func (d *Decoder) Pos() int { return d.r.Pos() }

// Remaining returns the number of unread bytes before the Decoder's
// current limit (the end of the innermost active encapsulation, or the
// end of the buffer if none is active).
func (d *Decoder) Remaining() int { return d.r.Remaining() }

// The Read* methods below are thin pass-throughs to the underlying
// Reader: application-level unmarshaling code is written against the
// Decoder, not the Reader, so that it automatically benefits from
// whatever encapsulation/instance bookkeeping a future method might need
// to interpose here.

func (d *Decoder) ReadByte() (byte, error)       { return d.r.ReadByte() }
func (d *Decoder) ReadBool() (bool, error)       { return d.r.ReadBool() }
func (d *Decoder) ReadInt16() (int16, error)     { return d.r.ReadInt16() }
func (d *Decoder) ReadInt32() (int32, error)     { return d.r.ReadInt32() }
func (d *Decoder) ReadInt64() (int64, error)     { return d.r.ReadInt64() }
func (d *Decoder) ReadFloat32() (float32, error) { return d.r.ReadFloat32() }
func (d *Decoder) ReadFloat64() (float64, error) { return d.r.ReadFloat64() }
func (d *Decoder) ReadString() (string, error)   { return d.r.ReadString() }

// ReadByteSeq reads a byte sequence (a size followed by that many raw
// bytes), returning a fresh copy safe to retain past the Decoder's
// lifetime.
func (d *Decoder) ReadByteSeq() ([]byte, error) {
	n, err := d.r.ReadAndCheckSeqSize(1)
	if err != nil {
		return nil, err
	}
	body, err := d.r.ReadBlob(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, body)
	return out, nil
}

// ReadStringSeq reads a sequence of strings.
func (d *Decoder) ReadStringSeq() ([]string, error) {
	n, err := d.r.ReadAndCheckSeqSize(1)
	if err != nil {
		return nil, err
	}
	out := make([]string, n)
	for i := range out {
		s, err := d.r.ReadString()
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// ReadInt32Seq reads a sequence of 32-bit integers.
func (d *Decoder) ReadInt32Seq() ([]int32, error) {
	n, err := d.r.ReadAndCheckSeqSize(4)
	if err != nil {
		return nil, err
	}
	out := make([]int32, n)
	for i := range out {
		v, err := d.r.ReadInt32()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
