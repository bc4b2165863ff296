// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package historyblob stores many revisions of one text compactly.
//
// A Writer collects items (successive revisions, arbitrary bytes) and packs
// them into a single byte string. Packing computes a chain of binary deltas
// in the libxdiff format implemented by package xdiff: every item is encoded
// as a delta against the previous item of its sequence. Items shorter than
// half of the current main-line item are routed to a separate "small"
// sequence so that minor revisions are not diffed against a much longer
// text. The sequences are knitted into one linear chain, serialized together
// with a map from chain position to item index, and compressed as a whole.
//
// Unpack reverses this, replaying the chain once and returning a read-only
// Blob. A Writer refuses further items once packed, and a Blob has no
// mutating methods at all.
//
// The default configuration (PHP serialization and raw DEFLATE) produces and
// reads the DiffHistoryBlob format stored by MediaWiki.
//
//	w, _ := historyblob.NewWriter(nil)
//	for _, rev := range revisions {
//		if !w.IsHappy() {
//			break
//		}
//		_, _ = w.AddItem(rev)
//	}
//	packed, err := w.Pack()
//	...
//	b, err := historyblob.Unpack(packed, nil)
//	text, err := b.Item(0)
package historyblob // import "github.com/histblob/historyblob"
