// Copyright 2019 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package tool

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/crlib/crhumanize"
	"github.com/cockroachdb/errors"
	"github.com/histblob/historyblob"
	"github.com/histblob/historyblob/internal/compression"
	"github.com/histblob/historyblob/internal/envelope"
)

// itemFormatter controls how cat prints an item.
type itemFormatter struct {
	spec string
	fn   func(w io.Writer, v []byte)
}

func (f *itemFormatter) String() string {
	return f.spec
}

func (f *itemFormatter) Type() string {
	return "formatter"
}

func (f *itemFormatter) Set(spec string) error {
	f.spec = spec
	switch spec {
	case "raw":
		f.fn = formatRaw
	case "hex":
		f.fn = formatHex
	case "quoted":
		f.fn = formatQuoted
	case "size":
		f.fn = formatSize
	default:
		if strings.Count(spec, "%") != 1 {
			return errors.Newf("unknown formatter: %q", spec)
		}
		f.fn = func(w io.Writer, v []byte) {
			fmt.Fprintf(w, f.spec, v)
		}
	}
	return nil
}

func (f *itemFormatter) mustSet(spec string) {
	if err := f.Set(spec); err != nil {
		panic(err)
	}
}

func formatRaw(w io.Writer, v []byte) {
	_, _ = w.Write(v)
}

func formatHex(w io.Writer, v []byte) {
	fmt.Fprintf(w, "%x", v)
}

func formatQuoted(w io.Writer, v []byte) {
	fmt.Fprintf(w, "%q", v)
}

func formatSize(w io.Writer, v []byte) {
	fmt.Fprintf(w, "<%s>", crhumanize.Bytes(int64(len(v)), crhumanize.Compact, crhumanize.OmitI))
}

// compressionFlag is a pflag.Value selecting a compression algorithm.
type compressionFlag struct {
	c *historyblob.Compression
}

func (f compressionFlag) String() string {
	if f.c == nil {
		return historyblob.DeflateCompression.String()
	}
	return f.c.String()
}

func (compressionFlag) Type() string {
	return "algorithm"
}

func (f compressionFlag) Set(s string) error {
	a, err := compression.ParseAlgorithm(s)
	if err != nil {
		return err
	}
	*f.c = a
	return nil
}

// serializationFlag is a pflag.Value selecting a serialization format.
type serializationFlag struct {
	s *historyblob.Serialization
}

func (f serializationFlag) String() string {
	if f.s == nil {
		return historyblob.SerializationPHP.String()
	}
	return f.s.String()
}

func (serializationFlag) Type() string {
	return "format"
}

func (f serializationFlag) Set(s string) error {
	v, err := envelope.ParseFormat(s)
	if err != nil {
		return err
	}
	*f.s = v
	return nil
}

// writerLogger is a historyblob.Logger that prefixes each message and writes
// it to w.
type writerLogger struct {
	w      io.Writer
	prefix string
}

var _ historyblob.Logger = writerLogger{}

func (l writerLogger) Infof(format string, args ...interface{}) {
	fmt.Fprintf(l.w, "%s%s\n", l.prefix, fmt.Sprintf(format, args...))
}

func (l writerLogger) Errorf(format string, args ...interface{}) {
	l.Infof(format, args...)
}

func (l writerLogger) Fatalf(format string, args ...interface{}) {
	l.Infof(format, args...)
	panic(fmt.Sprintf(format, args...))
}

// parseIndexes parses item indexes given on the command line.
func parseIndexes(args []string) ([]int, error) {
	idx := make([]int, len(args))
	for i, arg := range args {
		v, err := strconv.Atoi(arg)
		if err != nil || v < 0 {
			return nil, errors.Newf("invalid item index %q", arg)
		}
		idx[i] = v
	}
	return idx, nil
}
