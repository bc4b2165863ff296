// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package xdiff implements the binary delta format produced by LibXDiff's
// xdl_rabdiff/xdl_bdiff and consumed by xdl_bpatch.
//
// # Delta format
//
// A delta describes how to reconstruct a target byte string from a base byte
// string. It begins with an 8-byte header:
//
//	+----------------+----------------+
//	| checksum (u32) | base len (u32) |
//	+----------------+----------------+
//
// The checksum is LibXDiff's Adler-32 variant (see Checksum) computed over the
// base, and the length is len(base). Both are little-endian. The header lets a
// reader refuse to apply a delta to the wrong base.
//
// The header is followed by a sequence of ops, each introduced by a one-byte
// opcode. There is no terminator; the op stream ends with the buffer.
//
//	OpInsert       (1): u8 n, then n literal bytes
//	OpCopy         (2): u32 offset, u32 n; append base[offset:offset+n]
//	OpInsertBinary (3): u32 n, then n literal bytes
//
// All multi-byte integers are little-endian.
//
// # Engines
//
// Patch is always available. Diff is a pure Go block matcher: the base is
// indexed at BlockSize strides and the target is scanned for matching blocks,
// which are then extended in both directions. Its output is not byte-identical
// to LibXDiff's, but any conforming reader (including LibXDiff) decodes it.
package xdiff
