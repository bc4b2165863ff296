// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package xdiff

import "hash/adler32"

// ChecksumFunc computes the base checksum stored in a delta header. A nil
// ChecksumFunc means checksums cannot be computed; Patch then skips
// verification instead of reporting a mismatch.
type ChecksumFunc func(b []byte) uint32

// checksumPrimer has a true Adler-32 of zero. Hashing it first leaves the
// running sums at (0, 0), which is where LibXDiff's variant starts instead of
// the standard (1, 0).
var checksumPrimer = func() []byte {
	b := make([]byte, 0, 274)
	for i := 0; i < 205; i++ {
		b = append(b, 0xf0)
	}
	b = append(b, 0xee)
	for i := 0; i < 67; i++ {
		b = append(b, 0xf0)
	}
	return append(b, 0x02)
}()

// Checksum computes LibXDiff's Adler-32 variant of b. The value is stored
// little-endian in the delta header, i.e. the standard big-endian digest with
// its bytes reversed.
func Checksum(b []byte) uint32 {
	h := adler32.New()
	_, _ = h.Write(checksumPrimer)
	_, _ = h.Write(b)
	return h.Sum32()
}

var _ ChecksumFunc = Checksum
