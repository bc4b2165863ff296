// Copyright 2019 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package tool implements the commands of the historyblob command line tool:
// packing files into a blob, reading items back out, and inspecting blobs.
package tool

import (
	"github.com/histblob/historyblob"
	"github.com/spf13/cobra"
)

// T is the container for all of the blob tools.
type T struct {
	Commands []*cobra.Command
	blob     *blobT
	opts     historyblob.Options
}

// Option configures a T.
type Option func(*T)

// DefaultOptions sets the options the tools start from. Command line flags
// and options files override individual fields.
func DefaultOptions(o *historyblob.Options) Option {
	return func(t *T) {
		if o != nil {
			t.opts = *o
		}
	}
}

// New creates a new blob tool.
func New(opts ...Option) *T {
	t := &T{}
	for _, opt := range opts {
		opt(t)
	}

	t.blob = newBlob(&t.opts)
	t.Commands = []*cobra.Command{
		t.blob.Pack,
		t.blob.Cat,
		t.blob.Dump,
		t.blob.Stat,
		t.blob.Diff,
	}
	return t
}
