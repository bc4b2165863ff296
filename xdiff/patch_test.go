// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package xdiff

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
	"testing"

	"github.com/cockroachdb/crlib/testutils/leaktest"
	"github.com/cockroachdb/datadriven"
	"github.com/cockroachdb/errors"
	"github.com/histblob/historyblob/internal/base"
	"github.com/stretchr/testify/require"
)

func TestPatch(t *testing.T) {
	defer leaktest.AfterTest(t)()
	datadriven.RunTest(t, "testdata/patch", func(t *testing.T, td *datadriven.TestData) string {
		switch td.Cmd {
		case "diff":
			b, target := splitInput(t, td)
			delta := Diff(b, target)
			got, err := Patch(b, delta, Checksum)
			require.NoError(t, err)
			require.Equal(t, target, got)
			var buf bytes.Buffer
			Describe(&buf, delta)
			return buf.String()

		case "patch":
			b, hexDelta := splitInput(t, td)
			checksum := ChecksumFunc(Checksum)
			if td.HasArg("no-checksum") {
				checksum = nil
			}
			out, err := Patch(b, decodeHex(t, string(hexDelta)), checksum)
			if err != nil {
				require.True(t, base.IsCorruptionError(err))
				return fmt.Sprintf("error: %s\n", err)
			}
			return fmt.Sprintf("%q\n", out)

		case "describe":
			var buf bytes.Buffer
			Describe(&buf, decodeHex(t, td.Input))
			return buf.String()

		default:
			td.Fatalf(t, "unknown command %q", td.Cmd)
			return ""
		}
	})
}

// splitInput splits the test input on a "---" line.
func splitInput(t *testing.T, td *datadriven.TestData) (before, after []byte) {
	lines := strings.Split(td.Input, "\n")
	for i, l := range lines {
		if l == "---" {
			return []byte(strings.Join(lines[:i], "\n")), []byte(strings.Join(lines[i+1:], "\n"))
		}
	}
	td.Fatalf(t, "input must contain a --- separator")
	return nil, nil
}

func decodeHex(t *testing.T, s string) []byte {
	b, err := hex.DecodeString(strings.Join(strings.Fields(s), ""))
	require.NoError(t, err)
	return b
}

func TestPatchErrorKinds(t *testing.T) {
	b := []byte("Hello, world!")
	w := MakeWriter(b)
	w.Copy(0, 5)
	w.Insert([]byte("!"))
	delta := w.Finish()

	mutate := func(f func(d []byte) []byte) []byte {
		return f(append([]byte(nil), delta...))
	}
	testCases := []struct {
		name  string
		delta []byte
		want  error
	}{
		{"checksum", mutate(func(d []byte) []byte { d[2]++; return d }), ErrChecksumMismatch},
		{"length", mutate(func(d []byte) []byte { d[4]++; return d }), ErrLengthMismatch},
		{"opcode", mutate(func(d []byte) []byte { return append(d, 0) }), ErrInvalidOpcode},
		{"truncated-insert", mutate(func(d []byte) []byte { return append(d, byte(OpInsert), 3, 'a') }), ErrTruncated},
		{"truncated-header", delta[:HeaderLen-1], ErrTruncated},
		{"copy-range", mutate(func(d []byte) []byte {
			return append(d, byte(OpCopy), 12, 0, 0, 0, 2, 0, 0, 0)
		}), ErrCopyOutOfRange},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Patch(b, tc.delta, Checksum)
			require.Error(t, err)
			require.True(t, errors.Is(err, tc.want), "%+v", err)
			require.True(t, base.IsCorruptionError(err))
		})
	}

	// Without checksums, a wrong header length is still caught.
	bad := mutate(func(d []byte) []byte { d[4]++; return d })
	_, err := Patch(b, bad, nil)
	require.True(t, errors.Is(err, ErrLengthMismatch))
}

// TestPatchChecksumSensitivity flips every bit of the checksum field in turn.
func TestPatchChecksumSensitivity(t *testing.T) {
	b := []byte("The quick brown fox jumps over the lazy dog")
	delta := Diff(b, []byte("The quick brown fox jumps over the lazy cat"))
	for i := 0; i < 4; i++ {
		for bit := 0; bit < 8; bit++ {
			d := append([]byte(nil), delta...)
			d[i] ^= 1 << bit
			out, err := Patch(b, d, Checksum)
			require.Nil(t, out)
			require.True(t, errors.Is(err, ErrChecksumMismatch), "byte %d bit %d: %v", i, bit, err)
		}
	}
}

func TestLiteralDelta(t *testing.T) {
	for _, lit := range []string{"", "x", strings.Repeat("y", 1000)} {
		d := LiteralDelta([]byte(lit))
		h, err := ReadHeader(d)
		require.NoError(t, err)
		require.Equal(t, Header{}, h)
		require.Equal(t, OpInsertBinary, Op(d[HeaderLen]))
		out, err := Patch(nil, d, Checksum)
		require.NoError(t, err)
		require.Equal(t, lit, string(out))
	}
}

func TestStats(t *testing.T) {
	b := []byte("0123456789abcdef")
	s, err := Stats(Diff(b, []byte("xx0123456789abcdef0123456789abcdefyy")))
	require.NoError(t, err)
	require.Equal(t, OpStats{Inserts: 2, InsertedBytes: 4, Copies: 2, CopiedBytes: 32}, s)
	require.Equal(t, "inserts=2 (4B) copies=2 (32B)", s.String())

	_, err = Stats([]byte{1, 2, 3})
	require.True(t, errors.Is(err, ErrTruncated))
}
