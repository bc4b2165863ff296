// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package xdiff

// Patcher applies deltas.
type Patcher interface {
	Patch(base, delta []byte) ([]byte, error)
}

// Differ computes deltas.
type Differ interface {
	Diff(base, target []byte) []byte
}

// Engine computes and applies deltas with the pure Go implementation. A nil
// Checksum disables header checksum verification in Patch; deltas produced by
// Diff always carry a checksum.
type Engine struct {
	Checksum ChecksumFunc
}

var _ Patcher = Engine{}
var _ Differ = Engine{}

// DefaultEngine verifies checksums with Checksum.
var DefaultEngine = Engine{Checksum: Checksum}

// Patch implements Patcher.
func (e Engine) Patch(base, delta []byte) ([]byte, error) {
	return Patch(base, delta, e.Checksum)
}

// Diff implements Differ.
func (Engine) Diff(base, target []byte) []byte {
	return Diff(base, target)
}

// PatchOnly applies deltas but cannot compute them. It models a reader-only
// environment: blobs can be unpacked but not written.
type PatchOnly struct {
	Checksum ChecksumFunc
}

var _ Patcher = PatchOnly{}

// Patch implements Patcher.
func (p PatchOnly) Patch(base, delta []byte) ([]byte, error) {
	return Patch(base, delta, p.Checksum)
}
