// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package xdiff

import (
	"fmt"
	"io"

	"github.com/histblob/historyblob/internal/binfmt"
)

// Describe writes an annotated listing of the delta's header and ops to w.
// Malformed deltas are described up to the point of corruption.
func Describe(w io.Writer, delta []byte) {
	f := binfmt.New(delta)
	describe(f)
	fmt.Fprint(w, f.String())
}

func describe(f *binfmt.Formatter) {
	if f.Remaining() < HeaderLen {
		if f.More() {
			f.HexBytesln(f.Remaining(), "truncated header")
		}
		return
	}
	f.HexBytesln(4, "checksum %08x", f.PeekUint(4))
	f.HexBytesln(4, "base length %d", f.PeekUint(4))
	for f.More() {
		op := Op(f.PeekUint(1))
		f.HexBytesln(1, "%s", op)
		switch op {
		case OpInsert:
			if f.Remaining() < 1 {
				f.CommentLine("truncated: missing length")
				return
			}
			n := int(f.PeekUint(1))
			f.HexBytesln(1, "length %d", n)
			if !literal(f, n) {
				return
			}
		case OpInsertBinary:
			if f.Remaining() < 4 {
				f.CommentLine("truncated: missing length")
				return
			}
			n := int(f.PeekUint(4))
			f.HexBytesln(4, "length %d", n)
			if !literal(f, n) {
				return
			}
		case OpCopy:
			if f.Remaining() < copyOperandsLen {
				f.CommentLine("truncated: missing operands")
				return
			}
			f.HexBytesln(4, "offset %d", f.PeekUint(4))
			f.HexBytesln(4, "length %d", f.PeekUint(4))
		default:
			f.CommentLine("invalid opcode")
			return
		}
	}
}

func literal(f *binfmt.Formatter, n int) bool {
	if n > f.Remaining() {
		f.HexTextln(f.Remaining())
		f.CommentLine("truncated: want %d literal bytes", n)
		return false
	}
	f.HexTextln(n)
	return true
}

// OpStats summarizes the ops of a delta.
type OpStats struct {
	Inserts       int
	InsertedBytes int
	Copies        int
	CopiedBytes   int
}

// String implements the fmt.Stringer interface.
func (s OpStats) String() string {
	return fmt.Sprintf("inserts=%d (%dB) copies=%d (%dB)",
		s.Inserts, s.InsertedBytes, s.Copies, s.CopiedBytes)
}

// Stats walks the ops of delta without applying them.
func Stats(delta []byte) (OpStats, error) {
	var s OpStats
	err := Walk(delta, func(op Op, off, n int, lit []byte) error {
		switch op {
		case OpInsert, OpInsertBinary:
			s.Inserts++
			s.InsertedBytes += n
		case OpCopy:
			s.Copies++
			s.CopiedBytes += n
		}
		return nil
	})
	return s, err
}
