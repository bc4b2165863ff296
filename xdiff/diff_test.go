// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package xdiff

import (
	"bytes"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/cockroachdb/crlib/testutils/leaktest"
	"github.com/stretchr/testify/require"
)

func TestDiffInverse(t *testing.T) {
	defer leaktest.AfterTest(t)()
	seed := uint64(time.Now().UnixNano())
	t.Logf("seed %d", seed)
	rng := rand.New(rand.NewPCG(0, seed))

	randBytes := func(n int) []byte {
		b := make([]byte, n)
		for i := range b {
			b[i] = byte(rng.Uint32())
		}
		return b
	}
	// mutate applies a handful of random edits, so that base and target share
	// long runs like successive revisions of a page do.
	mutate := func(b []byte) []byte {
		out := append([]byte(nil), b...)
		for edits := rng.IntN(5); edits > 0; edits-- {
			pos := 0
			if len(out) > 0 {
				pos = rng.IntN(len(out))
			}
			switch rng.IntN(3) {
			case 0:
				out = append(out[:pos], append(randBytes(rng.IntN(40)), out[pos:]...)...)
			case 1:
				end := min(len(out), pos+rng.IntN(40))
				out = append(out[:pos], out[end:]...)
			case 2:
				if len(out) > 0 {
					out[pos] ^= 0xff
				}
			}
		}
		return out
	}

	for i := 0; i < 500; i++ {
		var a, b []byte
		switch rng.IntN(4) {
		case 0:
			a, b = randBytes(rng.IntN(64)), randBytes(rng.IntN(64))
		case 1:
			a = randBytes(rng.IntN(4096))
			b = mutate(a)
		case 2:
			a = nil
			b = randBytes(rng.IntN(600))
		case 3:
			a = randBytes(rng.IntN(600))
			b = nil
		}
		d := Diff(a, b)
		got, err := Patch(a, d, Checksum)
		require.NoError(t, err)
		require.True(t, bytes.Equal(b, got), "a=%x b=%x", a, b)
	}
}

func TestDiffCompresses(t *testing.T) {
	a := bytes.Repeat([]byte("== Section ==\nSome wiki text that rarely changes.\n"), 100)
	b := append(append([]byte(nil), a...), "\n[[Category:Edited]]"...)
	d := Diff(a, b)
	require.Less(t, len(d), 64)
	s, err := Stats(d)
	require.NoError(t, err)
	require.Equal(t, 1, s.Copies)
	require.Equal(t, len(a), s.CopiedBytes)
}

func TestEngine(t *testing.T) {
	a, b := []byte("revision one of the page text"), []byte("revision two of the page text")
	var d Differ = DefaultEngine
	delta := d.Diff(a, b)
	for _, p := range []Patcher{DefaultEngine, Engine{}, PatchOnly{Checksum: Checksum}, PatchOnly{}} {
		got, err := p.Patch(a, delta)
		require.NoError(t, err)
		require.Equal(t, b, got)
	}
	_, ok := Patcher(PatchOnly{}).(Differ)
	require.False(t, ok)
}
