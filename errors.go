// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package historyblob

import (
	"github.com/cockroachdb/errors"
	"github.com/histblob/historyblob/internal/base"
	"github.com/histblob/historyblob/xdiff"
)

var (
	// ErrUnsupportedEnvironment is returned by NewWriter and Unpack when the
	// configured compression algorithm or serialization format is not
	// available.
	ErrUnsupportedEnvironment = errors.New("historyblob: unsupported environment")

	// ErrFrozen is returned when adding an item to a Writer that has been
	// packed.
	ErrFrozen = errors.New("historyblob: frozen")

	// ErrMissingDiffSupport is returned by Pack when the configured engine
	// can apply deltas but not compute them.
	ErrMissingDiffSupport = errors.New("historyblob: engine cannot compute diffs")

	// ErrNoDefault is returned by Default when no default item was set.
	ErrNoDefault = errors.New("historyblob: no default item")

	// ErrItemNotFound is returned for an item index outside the blob.
	ErrItemNotFound = errors.New("historyblob: item not found")

	// ErrChainPoisoned marks items that could not be rebuilt because an
	// earlier delta of the chain failed to apply. It wraps the first failure.
	ErrChainPoisoned = errors.New("historyblob: chain poisoned")

	// ErrCorruption is a marker to indicate that packed data is malformed.
	ErrCorruption = base.ErrCorruption
)

// The delta errors are re-exported for callers that inspect per-item replay
// failures.
var (
	ErrChecksumMismatch = xdiff.ErrChecksumMismatch
	ErrLengthMismatch   = xdiff.ErrLengthMismatch
	ErrInvalidOpcode    = xdiff.ErrInvalidOpcode
	ErrTruncated        = xdiff.ErrTruncated
)

// IsCorruptionError returns true if the given error indicates corruption.
func IsCorruptionError(err error) bool {
	return base.IsCorruptionError(err)
}

func itemNotFound(i, n int) error {
	return errors.Mark(
		errors.Newf("historyblob: item %d not in blob of %d items", errors.Safe(i), errors.Safe(n)),
		ErrItemNotFound)
}
