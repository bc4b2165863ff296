// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package xdiff

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
	"github.com/histblob/historyblob/internal/base"
)

// Errors returned by Patch. Every error returned by Patch is also marked as a
// corruption error (see base.IsCorruptionError).
var (
	ErrChecksumMismatch = errors.New("xdiff: base checksum mismatch")
	ErrLengthMismatch   = errors.New("xdiff: base length mismatch")
	ErrInvalidOpcode    = errors.New("xdiff: invalid opcode")
	ErrTruncated        = errors.New("xdiff: truncated delta")
	ErrCopyOutOfRange   = errors.New("xdiff: copy outside of base")
)

// Patch applies delta to base and returns the reconstructed target.
//
// If checksum is non-nil, the header checksum is verified against
// checksum(base) before any op is applied. The header base length is always
// verified. The returned slice is freshly allocated and never aliases base or
// delta.
func Patch(base, delta []byte, checksum ChecksumFunc) ([]byte, error) {
	h, err := ReadHeader(delta)
	if err != nil {
		return nil, corrupt(err)
	}
	if checksum != nil {
		if sum := checksum(base); sum != h.Checksum {
			return nil, corrupt(errors.Mark(
				errors.Newf("xdiff: base checksum %08x does not match delta header %08x",
					sum, h.Checksum),
				ErrChecksumMismatch))
		}
	}
	if uint64(h.BaseLen) != uint64(len(base)) {
		return nil, corrupt(errors.Mark(
			errors.Newf("xdiff: base length %d does not match delta header %d",
				errors.Safe(len(base)), errors.Safe(h.BaseLen)),
			ErrLengthMismatch))
	}

	out := make([]byte, 0, len(base))
	err = Walk(delta, func(op Op, off, n int, lit []byte) error {
		if op != OpCopy {
			out = append(out, lit...)
			return nil
		}
		if uint64(off)+uint64(n) > uint64(len(base)) {
			return corrupt(errors.Mark(
				errors.Newf("xdiff: copy [%d, %d) outside of %d-byte base",
					errors.Safe(off), errors.Safe(off+n), errors.Safe(len(base))),
				ErrCopyOutOfRange))
		}
		out = append(out, base[off:off+n]...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Walk decodes the ops of delta in order, calling fn for each. For inserts,
// lit holds the literal (aliasing delta) and n its length; for copies, off and
// n are the copied range of the base. Walk validates that every op is
// well-formed and fits within delta, but does not look at the base. If fn
// returns an error, Walk stops and returns it.
func Walk(delta []byte, fn func(op Op, off, n int, lit []byte) error) error {
	if _, err := ReadHeader(delta); err != nil {
		return corrupt(err)
	}
	p := HeaderLen
	for p < len(delta) {
		op := Op(delta[p])
		p++
		var err error
		switch op {
		case OpInsert:
			if p >= len(delta) {
				return truncatedAt(op, p)
			}
			n := int(delta[p])
			p++
			if n > len(delta)-p {
				return truncatedAt(op, p)
			}
			err = fn(op, 0, n, delta[p:p+n])
			p += n

		case OpInsertBinary:
			if len(delta)-p < 4 {
				return truncatedAt(op, p)
			}
			n := uint64(binary.LittleEndian.Uint32(delta[p:]))
			p += 4
			if n > uint64(len(delta)-p) {
				return truncatedAt(op, p)
			}
			err = fn(op, 0, int(n), delta[p:p+int(n)])
			p += int(n)

		case OpCopy:
			if len(delta)-p < copyOperandsLen {
				return truncatedAt(op, p)
			}
			off := binary.LittleEndian.Uint32(delta[p:])
			n := binary.LittleEndian.Uint32(delta[p+4:])
			p += copyOperandsLen
			err = fn(op, int(off), int(n), nil)

		default:
			return corrupt(errors.Mark(
				errors.Newf("xdiff: invalid opcode %d at offset %d", errors.Safe(uint8(op)), errors.Safe(p-1)),
				ErrInvalidOpcode))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func truncatedAt(op Op, off int) error {
	return corrupt(errors.Mark(
		errors.Newf("xdiff: %s operands at offset %d run past end of delta", errors.Safe(op.String()), errors.Safe(off)),
		ErrTruncated))
}

func corrupt(err error) error {
	return base.MarkCorruptionError(err)
}
