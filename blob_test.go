// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package historyblob

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/cockroachdb/crlib/testutils/leaktest"
	"github.com/cockroachdb/datadriven"
	"github.com/histblob/historyblob/internal/base"
	"github.com/histblob/historyblob/internal/compression"
	"github.com/histblob/historyblob/xdiff"
	"github.com/stretchr/testify/require"
)

func TestBlobChain(t *testing.T) {
	defer leaktest.AfterTest(t)()
	datadriven.RunTest(t, "testdata/blob_chain", func(t *testing.T, td *datadriven.TestData) string {
		switch td.Cmd {
		case "compress":
			items := parseItems(t, td.Input)
			smallFactor := DefaultSmallFactor
			if td.HasArg("small-factor") {
				var s string
				td.ScanArgs(t, "small-factor", &s)
				var err error
				smallFactor, err = strconv.ParseFloat(s, 64)
				require.NoError(t, err)
			}
			c, err := compress(items, xdiff.DefaultEngine, smallFactor)
			require.NoError(t, err)
			if len(c.diffs) == 0 {
				return "no diffs\n"
			}
			require.NoError(t, c.verify(items, xdiff.DefaultEngine))
			var sb strings.Builder
			fmt.Fprintf(&sb, "small=%d main=%d bridges=%d\n", c.smallItems, c.mainItems, c.bridgeDiffs)
			fmt.Fprintf(&sb, "map %s\n", encodeMapForTest(c.diffMap))
			for k, d := range c.diffs {
				s, err := xdiff.Stats(d)
				require.NoError(t, err)
				fmt.Fprintf(&sb, "diff %d -> item %d: %s\n", k, c.diffMap[k], s)
			}
			return sb.String()

		case "pack":
			opts := parseOptions(t, td)
			w, err := NewWriter(opts)
			require.NoError(t, err)
			defaultKey := -1
			td.MaybeScanArgs(t, "default", &defaultKey)
			for i, item := range parseItems(t, td.Input) {
				if i == defaultKey {
					_, err = w.SetDefault(item)
				} else {
					_, err = w.AddItem(item)
				}
				require.NoError(t, err)
			}
			packed, err := w.Pack()
			require.NoError(t, err)
			return fmt.Sprintf("%q\n", packed)

		case "unpack":
			opts := parseOptions(t, td)
			opts.Logger = base.NoopLoggerForTesting
			data := []byte(td.Input)
			if td.HasArg("quoted") {
				s, err := strconv.Unquote(td.Input)
				require.NoError(t, err)
				data = []byte(s)
			}
			b, err := Unpack(data, opts)
			if err != nil {
				require.True(t, IsCorruptionError(err))
				return fmt.Sprintf("error: %s\n", err)
			}
			return describeBlob(b)

		default:
			td.Fatalf(t, "unknown command %q", td.Cmd)
			return ""
		}
	})
}

func parseItems(t *testing.T, input string) [][]byte {
	var items [][]byte
	for _, line := range strings.Split(input, "\n") {
		if line == "" {
			continue
		}
		s, err := strconv.Unquote(line)
		require.NoError(t, err)
		items = append(items, []byte(s))
	}
	return items
}

func parseOptions(t *testing.T, td *datadriven.TestData) *Options {
	opts := &Options{}
	if td.HasArg("compression") {
		var s string
		td.ScanArgs(t, "compression", &s)
		var err error
		opts.Compression, err = compression.ParseAlgorithm(s)
		require.NoError(t, err)
	}
	return opts
}

func encodeMapForTest(m []int) string {
	var parts []string
	prev := 0
	for _, v := range m {
		parts = append(parts, strconv.Itoa(v-prev))
		prev = v
	}
	return strings.Join(parts, ",")
}

func describeBlob(b *Blob) string {
	var sb strings.Builder
	kind := "modern"
	switch {
	case b.Legacy():
		kind = "legacy"
	case b.Len() == 0:
		kind = "empty"
	}
	fmt.Fprintf(&sb, "kind=%s items=%d", kind, b.Len())
	if b.HasDefault() {
		fmt.Fprintf(&sb, " default=%d", b.DefaultIndex())
	}
	sb.WriteString("\n")
	for i := 0; i < b.Len(); i++ {
		item, err := b.Item(i)
		if err != nil {
			fmt.Fprintf(&sb, "%d: error: %s\n", i, err)
			continue
		}
		fmt.Fprintf(&sb, "%d: %q\n", i, item)
	}
	return sb.String()
}
