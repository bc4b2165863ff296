// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package historyblob

import (
	"bytes"

	"github.com/cockroachdb/errors"
	"github.com/histblob/historyblob/internal/invariants"
	"github.com/histblob/historyblob/xdiff"
)

// A sequence is a chain of items diffed against each other in insertion
// order. The first diff of a sequence is against the empty string.
type sequence struct {
	// tail is the last item appended.
	tail  []byte
	diffs [][]byte
	// items holds the index of the item each diff reconstructs.
	items []int
}

func (s *sequence) add(d xdiff.Differ, i int, item []byte) {
	s.diffs = append(s.diffs, d.Diff(s.tail, item))
	s.items = append(s.items, i)
	s.tail = item
}

// chain is the result of compress: a single linear chain of diffs that
// replays every item, starting from the empty string.
type chain struct {
	diffs [][]byte
	// diffMap[k] is the index of the item that diffs[k] reconstructs.
	diffMap []int

	smallItems  int
	mainItems   int
	bridgeDiffs int
}

// compress builds the diff chain for items.
//
// Items are partitioned into a main sequence and a small sequence. Item 0
// always starts the main sequence; a later item goes to the small sequence if
// it is shorter than smallFactor times the current main tail. Each sequence
// diffs against its own tail.
//
// The sequences are then knitted into one chain, small first. When a
// sequence follows a non-empty tail, its first diff (against the empty
// string) is replaced by a bridging diff from that tail to the sequence's
// first item, so the chain replays linearly while every item keeps exactly
// one diff.
func compress(items [][]byte, engine xdiff.Patcher, smallFactor float64) (chain, error) {
	var c chain
	if len(items) == 0 {
		return c, nil
	}
	d, ok := engine.(xdiff.Differ)
	if !ok {
		return c, errors.Mark(
			errors.Newf("historyblob: engine %T cannot compute diffs", engine),
			ErrMissingDiffSupport)
	}

	var small, main sequence
	for i, item := range items {
		if i > 0 && float64(len(item)) < float64(len(main.tail))*smallFactor {
			small.add(d, i, item)
		} else {
			main.add(d, i, item)
		}
	}
	c.smallItems, c.mainItems = len(small.items), len(main.items)

	c.diffs = make([][]byte, 0, len(items))
	c.diffMap = make([]int, 0, len(items))
	var tail []byte
	for _, seq := range []*sequence{&small, &main} {
		if len(seq.diffs) == 0 {
			continue
		}
		first := seq.diffs[0]
		if len(tail) > 0 {
			first = d.Diff(tail, items[seq.items[0]])
			c.bridgeDiffs++
		}
		c.diffs = append(c.diffs, first)
		c.diffs = append(c.diffs, seq.diffs[1:]...)
		c.diffMap = append(c.diffMap, seq.items...)
		tail = seq.tail
	}

	if invariants.Enabled {
		if err := c.verify(items, engine); err != nil {
			panic(err)
		}
	}
	return c, nil
}

// verify replays the chain and checks that it reproduces items.
func (c *chain) verify(items [][]byte, p xdiff.Patcher) error {
	if len(c.diffs) != len(items) || len(c.diffMap) != len(items) {
		return errors.AssertionFailedf("chain has %d diffs and %d map entries for %d items",
			len(c.diffs), len(c.diffMap), len(items))
	}
	var tail []byte
	for k, delta := range c.diffs {
		got, err := p.Patch(tail, delta)
		if err != nil {
			return errors.NewAssertionErrorWithWrappedErrf(err, "diff %d does not apply", k)
		}
		if want := items[c.diffMap[k]]; !bytes.Equal(got, want) {
			return errors.AssertionFailedf("diff %d reconstructs %d bytes, want item %d of %d bytes",
				k, len(got), c.diffMap[k], len(want))
		}
		tail = got
	}
	return nil
}
