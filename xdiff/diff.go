// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package xdiff

import (
	"bytes"

	"github.com/cespare/xxhash/v2"
)

// BlockSize is the granularity at which Diff indexes the base. A COPY op costs
// nine bytes, so matches shorter than this are cheaper to insert literally.
const BlockSize = 16

// Diff returns a delta that reconstructs target from base, such that
// Patch(base, Diff(base, target), Checksum) returns target.
func Diff(base, target []byte) []byte {
	w := MakeWriter(base)
	if len(base) < BlockSize || len(target) < BlockSize {
		w.Insert(target)
		return w.Finish()
	}

	// Index every aligned block of the base by its fingerprint. The first
	// occurrence wins; later duplicates would produce the same copies.
	index := make(map[uint64]int, len(base)/BlockSize)
	for off := 0; off+BlockSize <= len(base); off += BlockSize {
		h := xxhash.Sum64(base[off : off+BlockSize])
		if _, ok := index[h]; !ok {
			index[h] = off
		}
	}

	lit := 0
	for i := 0; i+BlockSize <= len(target); {
		off, ok := index[xxhash.Sum64(target[i:i+BlockSize])]
		if !ok || !bytes.Equal(base[off:off+BlockSize], target[i:i+BlockSize]) {
			i++
			continue
		}
		n := BlockSize
		// Grow the match backwards into the pending literal, then forwards.
		for i > lit && off > 0 && base[off-1] == target[i-1] {
			i--
			off--
			n++
		}
		for off+n < len(base) && i+n < len(target) && base[off+n] == target[i+n] {
			n++
		}
		w.Insert(target[lit:i])
		w.Copy(off, n)
		i += n
		lit = i
	}
	w.Insert(target[lit:])
	return w.Finish()
}
