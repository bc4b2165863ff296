// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package compression implements the whole-blob compression algorithms applied
// to a serialized envelope.
package compression

import (
	"strings"

	"github.com/cockroachdb/errors"
)

// Algorithm identifies a compression algorithm.
type Algorithm uint8

const (
	// Deflate is raw DEFLATE (RFC 1951) without a zlib or gzip wrapper, as
	// produced by PHP's gzdeflate. It is the default and the only algorithm
	// MediaWiki can read.
	Deflate Algorithm = iota
	NoCompression
	Snappy
	Zstd
	MinLZ
	numAlgorithms
)

// String implements the fmt.Stringer interface.
func (a Algorithm) String() string {
	switch a {
	case Deflate:
		return "deflate"
	case NoCompression:
		return "none"
	case Snappy:
		return "snappy"
	case Zstd:
		return "zstd"
	case MinLZ:
		return "minlz"
	default:
		return "unknown"
	}
}

// ParseAlgorithm parses the String() form of an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	for a := Algorithm(0); a < numAlgorithms; a++ {
		if strings.EqualFold(s, a.String()) {
			return a, nil
		}
	}
	return 0, errors.Newf("unknown compression algorithm %q", s)
}

// Compressor compresses whole buffers.
type Compressor interface {
	Algorithm() Algorithm
	// Compress appends the compressed form of src to dst[:0], possibly reusing
	// dst's capacity.
	Compress(dst, src []byte) []byte
	// Close must be called when the Compressor is no longer needed.
	Close()
}

// Decompressor decompresses whole buffers.
type Decompressor interface {
	// Decompress returns the decompressed form of src, possibly reusing dst's
	// capacity.
	Decompress(dst, src []byte) ([]byte, error)
	// Close must be called when the Decompressor is no longer needed.
	Close()
}

// GetCompressor returns a Compressor for the algorithm. Unknown algorithms
// return an error.
func GetCompressor(a Algorithm) (Compressor, error) {
	switch a {
	case Deflate:
		return getDeflateCompressor(), nil
	case NoCompression:
		return noopCompressor{}, nil
	case Snappy:
		return snappyCompressor{}, nil
	case Zstd:
		return getZstdCompressor(), nil
	case MinLZ:
		return minlzCompressorBalanced, nil
	default:
		return nil, errors.Newf("compression algorithm %d is not supported", errors.Safe(uint8(a)))
	}
}

// GetDecompressor returns a Decompressor for the algorithm. Unknown algorithms
// return an error.
func GetDecompressor(a Algorithm) (Decompressor, error) {
	switch a {
	case Deflate:
		return deflateDecompressor{}, nil
	case NoCompression:
		return noopDecompressor{}, nil
	case Snappy:
		return snappyDecompressor{}, nil
	case Zstd:
		return zstdDecompressor{}, nil
	case MinLZ:
		return minlzDecompressor{}, nil
	default:
		return nil, errors.Newf("compression algorithm %d is not supported", errors.Safe(uint8(a)))
	}
}
