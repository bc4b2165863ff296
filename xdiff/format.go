// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package xdiff

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cockroachdb/errors"
)

// Op is a delta opcode.
type Op uint8

// Opcodes, as defined in xdiff.h.
const (
	OpInsert       Op = 1
	OpCopy         Op = 2
	OpInsertBinary Op = 3
)

// String implements the fmt.Stringer interface.
func (op Op) String() string {
	switch op {
	case OpInsert:
		return "INSERT"
	case OpCopy:
		return "COPY"
	case OpInsertBinary:
		return "INSERT_BINARY"
	default:
		return fmt.Sprintf("op(%d)", uint8(op))
	}
}

const (
	// HeaderLen is the length of the delta header: checksum and base length.
	HeaderLen = 8
	// MaxShortInsert is the largest literal OpInsert can carry.
	MaxShortInsert = math.MaxUint8

	copyOperandsLen = 8
)

// Header is the decoded delta header.
type Header struct {
	Checksum uint32
	BaseLen  uint32
}

// String implements the fmt.Stringer interface.
func (h Header) String() string {
	return fmt.Sprintf("checksum=%08x base-len=%d", h.Checksum, h.BaseLen)
}

// AppendHeader appends the encoded header to dst.
func AppendHeader(dst []byte, h Header) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, h.Checksum)
	return binary.LittleEndian.AppendUint32(dst, h.BaseLen)
}

// ReadHeader decodes the header at the start of delta.
func ReadHeader(delta []byte) (Header, error) {
	if len(delta) < HeaderLen {
		return Header{}, errors.Mark(
			errors.Newf("xdiff: delta of %d bytes is shorter than its header", errors.Safe(len(delta))),
			ErrTruncated)
	}
	return Header{
		Checksum: binary.LittleEndian.Uint32(delta),
		BaseLen:  binary.LittleEndian.Uint32(delta[4:]),
	}, nil
}

// checkLen panics if n cannot be represented in the 32-bit length fields of
// the format.
func checkLen(n int) uint32 {
	if uint64(n) > math.MaxUint32 {
		panic(errors.AssertionFailedf("xdiff: length %d exceeds format limit", n))
	}
	return uint32(n)
}
