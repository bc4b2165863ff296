// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package xdiff

import "encoding/binary"

// Writer emits a delta op by op. The zero value is not usable; construct one
// with MakeWriter.
type Writer struct {
	buf []byte
}

// MakeWriter returns a Writer for a delta against base. The header is written
// immediately.
func MakeWriter(base []byte) Writer {
	return Writer{buf: AppendHeader(nil, Header{
		Checksum: Checksum(base),
		BaseLen:  checkLen(len(base)),
	})}
}

// Insert appends a literal, using the short OpInsert form when it fits and
// OpInsertBinary otherwise. Empty literals are dropped.
func (w *Writer) Insert(lit []byte) {
	switch {
	case len(lit) == 0:
	case len(lit) <= MaxShortInsert:
		w.buf = append(w.buf, byte(OpInsert), byte(len(lit)))
		w.buf = append(w.buf, lit...)
	default:
		w.InsertBinary(lit)
	}
}

// InsertBinary appends a literal using the OpInsertBinary form regardless of
// its length.
func (w *Writer) InsertBinary(lit []byte) {
	w.buf = append(w.buf, byte(OpInsertBinary))
	w.buf = binary.LittleEndian.AppendUint32(w.buf, checkLen(len(lit)))
	w.buf = append(w.buf, lit...)
}

// Copy appends an op copying n bytes of the base starting at off. Empty copies
// are dropped.
func (w *Writer) Copy(off, n int) {
	if n == 0 {
		return
	}
	w.buf = append(w.buf, byte(OpCopy))
	w.buf = binary.LittleEndian.AppendUint32(w.buf, checkLen(off))
	w.buf = binary.LittleEndian.AppendUint32(w.buf, checkLen(n))
}

// Finish returns the encoded delta. The Writer must not be used afterwards.
func (w *Writer) Finish() []byte {
	b := w.buf
	w.buf = nil
	return b
}

// LiteralDelta returns a delta against the empty base whose only op inserts
// lit in the OpInsertBinary form.
func LiteralDelta(lit []byte) []byte {
	w := MakeWriter(nil)
	w.InsertBinary(lit)
	return w.Finish()
}
