// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package historyblob

import (
	"iter"

	"github.com/cockroachdb/errors"
	"github.com/histblob/historyblob/internal/base"
	"github.com/histblob/historyblob/internal/compression"
	"github.com/histblob/historyblob/internal/envelope"
	"github.com/histblob/historyblob/internal/invariants"
	"github.com/histblob/historyblob/xdiff"
)

// Blob is a read-only view of a packed blob, produced by Unpack. All items
// are rebuilt during Unpack, so reads are lookups. A Blob is safe for
// concurrent use.
type Blob struct {
	items [][]byte
	// errs is nil if every item was rebuilt. Otherwise errs[i] holds the
	// failure for item i, or nil.
	errs []error
	err  error

	defaultKey int
	hasDefault bool
	kind       envelope.Kind
	stats      Stats
}

// Unpack decompresses and decodes a blob produced by Writer.Pack, or by
// MediaWiki's DiffHistoryBlob, and replays its diff chain. The options must
// name the serialization format and compression algorithm the blob was
// written with.
//
// Malformed packed data fails with a corruption error. A delta that fails to
// apply does not fail Unpack: the item it rebuilds reports that failure, every
// item later in the chain reports ErrChainPoisoned, and earlier items remain
// readable. Err returns the first such failure.
func Unpack(data []byte, opts *Options) (*Blob, error) {
	o := opts.clone()
	if err := o.Validate(); err != nil {
		return nil, err
	}
	decompressor, err := compression.GetDecompressor(o.Compression)
	if err != nil {
		return nil, err
	}
	serialized, err := decompressor.Decompress(nil, data)
	decompressor.Close()
	if err != nil {
		return nil, errors.Wrapf(err, "historyblob: unpacking %s blob", o.Compression)
	}
	p, err := o.Serialization.Unmarshal(serialized)
	if err != nil {
		return nil, err
	}
	diffs, diffMap, err := resolveChain(&p)
	if err != nil {
		return nil, err
	}
	if p.HasDefault && (p.Default < 0 || p.Default >= len(diffs)) {
		return nil, base.CorruptionErrorf("historyblob: default item %d not in blob of %d items",
			errors.Safe(p.Default), errors.Safe(len(diffs)))
	}

	b := &Blob{
		defaultKey: p.Default,
		hasDefault: p.HasDefault,
		kind:       p.Kind,
	}
	b.replay(diffs, diffMap, o)
	b.stats = Stats{
		Items:           len(b.items),
		ItemBytes:       totalLen(b.items),
		Diffs:           len(diffs),
		DiffBytes:       totalLen(diffs),
		SerializedBytes: int64(len(serialized)),
		PackedBytes:     int64(len(data)),
	}
	for _, err := range b.errs {
		if err != nil {
			b.stats.FailedItems++
		}
	}
	return b, nil
}

// resolveChain returns the diffs of a payload in replay order, and the item
// index each one rebuilds.
func resolveChain(p *envelope.Payload) ([][]byte, []int, error) {
	switch p.Kind {
	case envelope.KindEmpty:
		return nil, nil, nil

	case envelope.KindLegacy:
		// The base is item 0, stored diff k rebuilds item k+1.
		diffs := make([][]byte, 0, len(p.Diffs)+1)
		diffs = append(diffs, xdiff.LiteralDelta(p.Base))
		diffs = append(diffs, p.Diffs...)
		diffMap := make([]int, len(diffs))
		for i := range diffMap {
			diffMap[i] = i
		}
		return diffs, diffMap, nil

	case envelope.KindModern:
		diffMap, err := envelope.DecodeMap(p.Map)
		if err != nil {
			return nil, nil, err
		}
		if len(diffMap) != len(p.Diffs) {
			return nil, nil, base.CorruptionErrorf("historyblob: diff map has %d entries for %d diffs",
				errors.Safe(len(diffMap)), errors.Safe(len(p.Diffs)))
		}
		seen := make([]bool, len(diffMap))
		for k, i := range diffMap {
			if i < 0 || i >= len(seen) || seen[i] {
				return nil, nil, base.CorruptionErrorf("historyblob: diff %d maps to invalid or repeated item %d",
					errors.Safe(k), errors.Safe(i))
			}
			seen[i] = true
		}
		return p.Diffs, diffMap, nil

	default:
		return nil, nil, errors.AssertionFailedf("unexpected payload kind %s", p.Kind)
	}
}

// replay applies the chain in order starting from the empty string. After the
// first failure the remaining items are not attempted, since their base would
// be wrong.
func (b *Blob) replay(diffs [][]byte, diffMap []int, o *Options) {
	b.items = make([][]byte, len(diffs))
	var tail []byte
	var poisonedAt int
	for k, delta := range diffs {
		i := diffMap[k]
		invariants.CheckBounds(i, len(b.items))
		if b.err != nil {
			b.errs[i] = errors.Mark(
				errors.Wrapf(b.err, "historyblob: item %d follows failed diff %d", errors.Safe(i), errors.Safe(poisonedAt)),
				ErrChainPoisoned)
			continue
		}
		item, err := o.Engine.Patch(tail, delta)
		if err != nil {
			b.err = errors.Wrapf(err, "historyblob: diff %d rebuilding item %d", errors.Safe(k), errors.Safe(i))
			b.errs = make([]error, len(diffs))
			b.errs[i] = b.err
			poisonedAt = k
			o.Logger.Infof("%v; %d later items are unreadable", b.err, len(diffs)-k-1)
			continue
		}
		b.items[i] = item
		tail = item
	}
}

// Item returns the item with index i, or the error that prevented it from
// being rebuilt. The returned slice must not be modified.
func (b *Blob) Item(i int) ([]byte, error) {
	if i < 0 || i >= len(b.items) {
		return nil, itemNotFound(i, len(b.items))
	}
	if b.errs != nil && b.errs[i] != nil {
		return nil, b.errs[i]
	}
	return b.items[i], nil
}

// Default returns the default item.
func (b *Blob) Default() ([]byte, error) {
	if !b.hasDefault {
		return nil, ErrNoDefault
	}
	return b.Item(b.defaultKey)
}

// HasDefault returns true if the blob records a default item.
func (b *Blob) HasDefault() bool {
	return b.hasDefault
}

// DefaultIndex returns the index of the default item, or -1.
func (b *Blob) DefaultIndex() int {
	if !b.hasDefault {
		return -1
	}
	return b.defaultKey
}

// Len returns the number of items, including items that failed to rebuild.
func (b *Blob) Len() int {
	return len(b.items)
}

// Legacy returns true if the blob was written in the format that stores the
// first item verbatim.
func (b *Blob) Legacy() bool {
	return b.kind == envelope.KindLegacy
}

// Err returns the first replay failure, or nil if every item was rebuilt.
func (b *Blob) Err() error {
	return b.err
}

// Items returns an iterator over the index and contents of every item that
// was rebuilt, in index order.
func (b *Blob) Items() iter.Seq2[int, []byte] {
	return func(yield func(int, []byte) bool) {
		for i, item := range b.items {
			if b.errs != nil && b.errs[i] != nil {
				continue
			}
			if !yield(i, item) {
				return
			}
		}
	}
}

// Stats returns statistics about the blob.
func (b *Blob) Stats() Stats {
	return b.stats
}
