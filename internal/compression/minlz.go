// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package compression

import (
	"github.com/cockroachdb/errors"
	"github.com/histblob/historyblob/internal/base"
	"github.com/minio/minlz"
)

type minlzCompressor struct {
	level int
}

var _ Compressor = (*minlzCompressor)(nil)

var minlzCompressorBalanced = &minlzCompressor{level: minlz.LevelBalanced}

func (c *minlzCompressor) Algorithm() Algorithm { return MinLZ }

func (c *minlzCompressor) Compress(dst, src []byte) []byte {
	// MinLZ cannot encode blocks greater than 8MB. Fall back to Snappy in those
	// cases. Note that MinLZ can decode the Snappy compressed block.
	if len(src) > minlz.MaxBlockSize {
		return (snappyCompressor{}).Compress(dst, src)
	}

	compressed, err := minlz.Encode(dst, src, c.level)
	if err != nil {
		panic(errors.Wrap(err, "minlz compression"))
	}
	return compressed
}

func (c *minlzCompressor) Close() {}

type minlzDecompressor struct{}

var _ Decompressor = minlzDecompressor{}

func (minlzDecompressor) Decompress(dst, src []byte) ([]byte, error) {
	n, err := minlz.DecodedLen(src)
	if err != nil {
		return nil, base.MarkCorruptionError(errors.Wrap(err, "minlz decompression"))
	}
	if cap(dst) < n {
		dst = make([]byte, n)
	}
	result, err := minlz.Decode(dst[:n], src)
	if err != nil {
		return nil, base.MarkCorruptionError(errors.Wrap(err, "minlz decompression"))
	}
	return result, nil
}

func (minlzDecompressor) Close() {}
