// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package compression

import (
	"bytes"
	"io"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/histblob/historyblob/internal/base"
	"github.com/klauspost/compress/flate"
)

type deflateCompressor struct {
	buf bytes.Buffer
	w   *flate.Writer
}

var _ Compressor = (*deflateCompressor)(nil)

var deflateCompressorPool = sync.Pool{
	New: func() interface{} {
		c := &deflateCompressor{}
		w, err := flate.NewWriter(&c.buf, flate.DefaultCompression)
		if err != nil {
			panic(errors.Wrap(err, "deflate compressor"))
		}
		c.w = w
		return c
	},
}

func getDeflateCompressor() *deflateCompressor {
	return deflateCompressorPool.Get().(*deflateCompressor)
}

func (*deflateCompressor) Algorithm() Algorithm { return Deflate }

func (c *deflateCompressor) Compress(dst, src []byte) []byte {
	c.buf.Reset()
	c.w.Reset(&c.buf)
	// Writes to a bytes.Buffer cannot fail.
	if _, err := c.w.Write(src); err != nil {
		panic(errors.Wrap(err, "deflate compression"))
	}
	if err := c.w.Close(); err != nil {
		panic(errors.Wrap(err, "deflate compression"))
	}
	return append(dst[:0], c.buf.Bytes()...)
}

func (c *deflateCompressor) Close() {
	c.buf.Reset()
	deflateCompressorPool.Put(c)
}

type deflateDecompressor struct{}

var _ Decompressor = deflateDecompressor{}

func (deflateDecompressor) Decompress(dst, src []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(src))
	buf := bytes.NewBuffer(dst[:0])
	_, err := io.Copy(buf, r)
	if err = errors.CombineErrors(err, r.Close()); err != nil {
		return nil, base.MarkCorruptionError(errors.Wrap(err, "deflate decompression"))
	}
	return buf.Bytes(), nil
}

func (deflateDecompressor) Close() {}
