// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package historyblob

import (
	"bytes"

	"github.com/histblob/historyblob/internal/compression"
	"github.com/histblob/historyblob/internal/envelope"
)

// HistoryBlob is the read interface shared by Writer and Blob.
type HistoryBlob interface {
	// Item returns the item with the given index.
	Item(i int) ([]byte, error)
	// Default returns the default item.
	Default() ([]byte, error)
	// Len returns the number of items.
	Len() int
}

var _ HistoryBlob = (*Writer)(nil)
var _ HistoryBlob = (*Blob)(nil)

// Writer accumulates items and packs them into a blob. Once Pack succeeds the
// Writer is frozen: AddItem fails with ErrFrozen and further calls to Pack
// return the same bytes.
//
// A Writer is not safe for concurrent use.
type Writer struct {
	opts  *Options
	items [][]byte
	// size is the total length of items.
	size       int64
	defaultKey int
	hasDefault bool

	frozen bool
	packed []byte
	stats  Stats
}

// NewWriter returns an empty Writer. It fails with an error marked
// ErrUnsupportedEnvironment if the options name an unavailable compression
// algorithm or serialization format.
func NewWriter(opts *Options) (*Writer, error) {
	o := opts.clone()
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return &Writer{opts: o}, nil
}

// AddItem appends a copy of b and returns its index. Capacity limits are not
// enforced here; callers consult IsHappy.
func (w *Writer) AddItem(b []byte) (int, error) {
	if w.frozen {
		return 0, ErrFrozen
	}
	w.items = append(w.items, bytes.Clone(b))
	w.size += int64(len(b))
	return len(w.items) - 1, nil
}

// SetDefault appends a copy of b and remembers it as the default item.
func (w *Writer) SetDefault(b []byte) (int, error) {
	i, err := w.AddItem(b)
	if err != nil {
		return 0, err
	}
	w.defaultKey, w.hasDefault = i, true
	return i, nil
}

// Item returns the item with index i. The returned slice must not be
// modified.
func (w *Writer) Item(i int) ([]byte, error) {
	if i < 0 || i >= len(w.items) {
		return nil, itemNotFound(i, len(w.items))
	}
	return w.items[i], nil
}

// Default returns the item last added with SetDefault.
func (w *Writer) Default() ([]byte, error) {
	if !w.hasDefault {
		return nil, ErrNoDefault
	}
	return w.Item(w.defaultKey)
}

// Len returns the number of items.
func (w *Writer) Len() int {
	return len(w.items)
}

// Size returns the total uncompressed size of the items.
func (w *Writer) Size() int64 {
	return w.size
}

// IsHappy returns true until either the total size or the item count reaches
// its limit, at which point the caller should stop adding items and pack.
func (w *Writer) IsHappy() bool {
	return w.size < w.opts.MaxSize && len(w.items) < w.opts.MaxCount
}

// Frozen returns true once Pack has succeeded.
func (w *Writer) Frozen() bool {
	return w.frozen
}

// Pack compresses the items into a diff chain, serializes it and compresses
// the result. The first successful call freezes the Writer; later calls
// return the same slice, which must not be modified. A failed Pack leaves the
// Writer unchanged.
func (w *Writer) Pack() ([]byte, error) {
	if w.frozen {
		return w.packed, nil
	}
	c, err := compress(w.items, w.opts.Engine, w.opts.SmallFactor)
	if err != nil {
		return nil, err
	}

	p := envelope.Payload{Kind: envelope.KindEmpty}
	if len(w.items) > 0 {
		p = envelope.Payload{
			Kind:       envelope.KindModern,
			Diffs:      c.diffs,
			Map:        envelope.EncodeMap(c.diffMap),
			Default:    w.defaultKey,
			HasDefault: w.hasDefault,
		}
	}
	serialized, err := w.opts.Serialization.Marshal(&p)
	if err != nil {
		return nil, err
	}
	compressor, err := compression.GetCompressor(w.opts.Compression)
	if err != nil {
		return nil, err
	}
	packed := compressor.Compress(nil, serialized)
	compressor.Close()

	w.frozen = true
	w.packed = packed
	w.stats = Stats{
		Items:           len(w.items),
		ItemBytes:       w.size,
		Diffs:           len(c.diffs),
		DiffBytes:       totalLen(c.diffs),
		SmallItems:      c.smallItems,
		MainItems:       c.mainItems,
		BridgeDiffs:     c.bridgeDiffs,
		SerializedBytes: int64(len(serialized)),
		PackedBytes:     int64(len(packed)),
	}
	return w.packed, nil
}

// Stats returns statistics about the Writer. The chain and size fields are
// populated once the Writer is packed.
func (w *Writer) Stats() Stats {
	if w.frozen {
		return w.stats
	}
	return Stats{Items: len(w.items), ItemBytes: w.size}
}

func totalLen(bufs [][]byte) int64 {
	var n int64
	for _, b := range bufs {
		n += int64(len(b))
	}
	return n
}
