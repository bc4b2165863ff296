// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package compression

import (
	"github.com/cockroachdb/errors"
	"github.com/golang/snappy"
	"github.com/histblob/historyblob/internal/base"
)

type snappyCompressor struct{}

var _ Compressor = snappyCompressor{}

func (snappyCompressor) Algorithm() Algorithm { return Snappy }

func (snappyCompressor) Compress(dst, src []byte) []byte {
	dst = dst[:cap(dst):cap(dst)]
	return snappy.Encode(dst, src)
}

func (snappyCompressor) Close() {}

type snappyDecompressor struct{}

var _ Decompressor = snappyDecompressor{}

func (snappyDecompressor) Decompress(dst, src []byte) ([]byte, error) {
	n, err := snappy.DecodedLen(src)
	if err != nil {
		return nil, base.MarkCorruptionError(errors.Wrap(err, "snappy decompression"))
	}
	if cap(dst) < n {
		dst = make([]byte, n)
	}
	result, err := snappy.Decode(dst[:n], src)
	if err != nil {
		return nil, base.MarkCorruptionError(errors.Wrap(err, "snappy decompression"))
	}
	return result, nil
}

func (snappyDecompressor) Close() {}
