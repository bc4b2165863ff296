// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package historyblob

import (
	"github.com/cockroachdb/crlib/crhumanize"
	"github.com/cockroachdb/redact"
)

// Stats describes the contents and layout of a blob.
type Stats struct {
	// Items is the number of items and ItemBytes their total length.
	Items     int
	ItemBytes int64
	// Diffs is the number of deltas in the chain and DiffBytes their total
	// length.
	Diffs     int
	DiffBytes int64
	// SmallItems and MainItems count the items routed to each sequence, and
	// BridgeDiffs the deltas knitting one sequence onto the other. They are
	// only known to the Writer that packed the blob.
	SmallItems  int
	MainItems   int
	BridgeDiffs int
	// SerializedBytes is the length of the encoded structure before
	// compression and PackedBytes the length after.
	SerializedBytes int64
	PackedBytes     int64
	// FailedItems counts the items of an unpacked blob that could not be
	// rebuilt.
	FailedItems int
}

// String implements fmt.Stringer.
func (s Stats) String() string {
	return redact.StringWithoutMarkers(s)
}

// SafeFormat implements redact.SafeFormatter.
func (s Stats) SafeFormat(w redact.SafePrinter, _ rune) {
	w.Printf("items: %d (%s)", s.Items, crhumanize.Bytes(s.ItemBytes, crhumanize.Compact, crhumanize.OmitI))
	if s.Diffs > 0 {
		w.Printf(", diffs: %d (%s)", s.Diffs, crhumanize.Bytes(s.DiffBytes, crhumanize.Compact, crhumanize.OmitI))
	}
	if s.SmallItems+s.MainItems > 0 {
		w.Printf(", sequences: small=%d main=%d bridges=%d", s.SmallItems, s.MainItems, s.BridgeDiffs)
	}
	if s.PackedBytes > 0 {
		w.Printf(", packed: %s", crhumanize.Bytes(s.PackedBytes, crhumanize.Compact, crhumanize.OmitI))
		if s.ItemBytes > 0 {
			w.Printf(" (%s of items)", crhumanize.Percent(s.PackedBytes, s.ItemBytes))
		}
	}
	if s.FailedItems > 0 {
		w.Printf(", failed: %d", s.FailedItems)
	}
}
