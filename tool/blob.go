// Copyright 2019 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package tool

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/cockroachdb/crlib/crhumanize"
	"github.com/cockroachdb/errors"
	"github.com/histblob/historyblob"
	"github.com/histblob/historyblob/internal/base"
	"github.com/histblob/historyblob/internal/binfmt"
	"github.com/histblob/historyblob/internal/compression"
	"github.com/histblob/historyblob/internal/envelope"
	"github.com/histblob/historyblob/xdiff"
	"github.com/olekukonko/tablewriter"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// blobT implements the blob tools, including both configuration state and
// the commands themselves.
type blobT struct {
	Pack *cobra.Command
	Cat  *cobra.Command
	Dump *cobra.Command
	Stat *cobra.Command
	Diff *cobra.Command

	defaults *historyblob.Options

	// Flags shared by every command.
	optionsFile   string
	compression   historyblob.Compression
	serialization historyblob.Serialization
	noChecksum    bool
	verbose       bool

	// Flags for pack.
	defaultItem int
	smallFactor float64
	maxCount    int
	maxSize     int64
	split       bool

	// Flags for cat.
	catDefault bool
	fmtItem    itemFormatter

	// Flags for dump.
	hex bool

	// Flags for stat.
	concurrency int

	// Flags for diff.
	context int
	delta   bool
}

func newBlob(defaults *historyblob.Options) *blobT {
	b := &blobT{defaults: defaults}
	b.fmtItem.mustSet("quoted")

	b.Pack = &cobra.Command{
		Use:   "pack <blob> <files>",
		Short: "pack files into a blob",
		Long: `
Pack the contents of the given files, in order, into a blob. Item i of the
blob is the contents of the i-th file. With --split, a new blob is started
whenever the current one reaches its size or item limit, and the blobs are
written to <blob>.000, <blob>.001 and so on.
`,
		Args: cobra.MinimumNArgs(1),
		Run:  b.runPack,
	}
	b.Cat = &cobra.Command{
		Use:   "cat <blob> [<index>...]",
		Short: "print blob items",
		Long: `
Print the items of a blob. Without indexes every item is printed. With the
raw formatter items are written back to back without annotation.
`,
		Args: cobra.MinimumNArgs(1),
		Run:  b.runCat,
	}
	b.Dump = &cobra.Command{
		Use:   "dump <blobs>",
		Short: "print the structure of blobs",
		Long: `
Print the decoded structure of each blob: its layout, diff map and default
item, followed by an annotated listing of every delta in the chain.
`,
		Args: cobra.MinimumNArgs(1),
		Run:  b.runDump,
	}
	b.Stat = &cobra.Command{
		Use:   "stat <blobs>",
		Short: "print blob statistics",
		Long: `
Unpack each blob and print a table of item counts, sizes and compression
ratios.
`,
		Args: cobra.MinimumNArgs(1),
		Run:  b.runStat,
	}
	b.Diff = &cobra.Command{
		Use:   "diff <blob> <index> <index>",
		Short: "compare two blob items",
		Long: `
Print a unified diff between two items of a blob. With --delta the xdiff
delta from the first item to the second is printed instead.
`,
		Args: cobra.ExactArgs(3),
		Run:  b.runDiff,
	}

	for _, cmd := range []*cobra.Command{b.Pack, b.Cat, b.Dump, b.Stat, b.Diff} {
		cmd.Flags().StringVar(
			&b.optionsFile, "options", "", "read options from the given file")
		cmd.Flags().Var(
			compressionFlag{&b.compression}, "compression", "compression algorithm (deflate, none, snappy, zstd, minlz)")
		cmd.Flags().Var(
			serializationFlag{&b.serialization}, "serialization", "serialization format (php, cbor)")
		cmd.Flags().BoolVar(
			&b.noChecksum, "no-checksum", false, "do not verify delta base checksums")
		cmd.Flags().BoolVarP(
			&b.verbose, "verbose", "v", false, "verbose output")
	}

	b.Pack.Flags().IntVar(
		&b.defaultItem, "default", -1, "index of the file to record as the default item")
	b.Pack.Flags().Float64Var(
		&b.smallFactor, "small-factor", historyblob.DefaultSmallFactor,
		"route items shorter than this fraction of the main-line item to the small sequence")
	b.Pack.Flags().IntVar(
		&b.maxCount, "max-count", historyblob.DefaultMaxCount, "item limit of a blob")
	b.Pack.Flags().Int64Var(
		&b.maxSize, "max-size", historyblob.DefaultMaxSize, "uncompressed size limit of a blob")
	b.Pack.Flags().BoolVar(
		&b.split, "split", false, "start a new blob when the current one is full")

	b.Cat.Flags().BoolVar(
		&b.catDefault, "default", false, "print the default item")
	b.Cat.Flags().Var(
		&b.fmtItem, "format", "item formatter (quoted, hex, raw, size, or a %-verb)")

	b.Dump.Flags().BoolVar(
		&b.hex, "hex", false, "print a hex dump of the serialized payload")

	b.Stat.Flags().IntVarP(
		&b.concurrency, "concurrency", "c", 4, "number of blobs to unpack concurrently")

	b.Diff.Flags().IntVar(
		&b.context, "context", 3, "lines of context")
	b.Diff.Flags().BoolVar(
		&b.delta, "delta", false, "print the xdiff delta instead of a unified diff")
	return b
}

// options returns the options for cmd: the tool defaults, overridden by the
// options file and then by any flags set on the command line.
func (b *blobT) options(cmd *cobra.Command) (*historyblob.Options, error) {
	o := *b.defaults
	if b.optionsFile != "" {
		data, err := os.ReadFile(b.optionsFile)
		if err != nil {
			return nil, err
		}
		if err := o.Parse(string(data)); err != nil {
			return nil, errors.Wrapf(err, "parsing %s", b.optionsFile)
		}
	}
	flags := cmd.Flags()
	if flags.Changed("compression") {
		o.Compression = b.compression
	}
	if flags.Changed("serialization") {
		o.Serialization = b.serialization
	}
	if flags.Changed("no-checksum") {
		o.DisableChecksum = b.noChecksum
		switch o.Engine.(type) {
		case xdiff.Engine:
			o.Engine = nil
		case xdiff.PatchOnly:
			if o.DisableChecksum {
				o.Engine = xdiff.PatchOnly{}
			}
		}
	}
	if flags.Changed("small-factor") {
		o.SmallFactor = b.smallFactor
	}
	if flags.Changed("max-count") {
		o.MaxCount = b.maxCount
	}
	if flags.Changed("max-size") {
		o.MaxSize = b.maxSize
	}
	o.Logger = writerLogger{w: cmd.OutOrStderr()}
	o.EnsureDefaults()
	if b.verbose {
		fmt.Fprintf(cmd.OutOrStderr(), "%s", &o)
	}
	return &o, nil
}

func (b *blobT) load(path string, opts *historyblob.Options) (*historyblob.Blob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	blob, err := historyblob.Unpack(data, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return blob, nil
}

func (b *blobT) runPack(cmd *cobra.Command, args []string) {
	stdout, stderr := cmd.OutOrStdout(), cmd.OutOrStderr()
	opts, err := b.options(cmd)
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return
	}
	out, inputs := args[0], args[1:]
	if b.defaultItem >= len(inputs) {
		fmt.Fprintf(stderr, "default item %d out of range for %d files\n", b.defaultItem, len(inputs))
		return
	}

	var w *historyblob.Writer
	var blobs int
	flush := func() error {
		packed, err := w.Pack()
		if err != nil {
			return err
		}
		name := out
		if b.split {
			name = fmt.Sprintf("%s.%03d", out, blobs)
		}
		if err := os.WriteFile(name, packed, 0644); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s: %d items\n", name, w.Len())
		if b.verbose {
			fmt.Fprintf(stdout, "  %s\n", w.Stats())
		}
		blobs++
		w = nil
		return nil
	}

	for i, path := range inputs {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
			return
		}
		if w != nil && b.split && !w.IsHappy() {
			if err := flush(); err != nil {
				fmt.Fprintf(stderr, "%s\n", err)
				return
			}
		}
		if w == nil {
			if w, err = historyblob.NewWriter(opts); err != nil {
				fmt.Fprintf(stderr, "%s\n", err)
				return
			}
		}
		if i == b.defaultItem {
			_, err = w.SetDefault(data)
		} else {
			_, err = w.AddItem(data)
		}
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
			return
		}
	}
	if w == nil {
		if w, err = historyblob.NewWriter(opts); err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
			return
		}
	}
	if !b.split && !w.IsHappy() {
		fmt.Fprintf(stderr, "warning: %s holds %d items of %s, beyond the blob limits\n",
			out, w.Len(), crhumanize.Bytes(w.Size(), crhumanize.Compact, crhumanize.OmitI))
	}
	if err := flush(); err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
	}
}

func (b *blobT) runCat(cmd *cobra.Command, args []string) {
	stdout, stderr := cmd.OutOrStdout(), cmd.OutOrStderr()
	opts, err := b.options(cmd)
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return
	}
	blob, err := b.load(args[0], opts)
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return
	}

	idx, err := parseIndexes(args[1:])
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return
	}
	switch {
	case b.catDefault:
		if !blob.HasDefault() {
			fmt.Fprintf(stderr, "%s: %s\n", args[0], historyblob.ErrNoDefault)
			return
		}
		idx = append(idx[:0], blob.DefaultIndex())
	case len(idx) == 0:
		for i := 0; i < blob.Len(); i++ {
			idx = append(idx, i)
		}
	}

	raw := b.fmtItem.spec == "raw"
	for _, i := range idx {
		item, err := blob.Item(i)
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
			continue
		}
		if raw {
			formatRaw(stdout, item)
			continue
		}
		fmt.Fprintf(stdout, "%d: ", i)
		b.fmtItem.fn(stdout, item)
		fmt.Fprintf(stdout, "\n")
	}
}

func (b *blobT) runDump(cmd *cobra.Command, args []string) {
	stdout, stderr := cmd.OutOrStdout(), cmd.OutOrStderr()
	opts, err := b.options(cmd)
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return
	}
	for _, path := range args {
		func() {
			data, err := os.ReadFile(path)
			if err != nil {
				fmt.Fprintf(stderr, "%s\n", err)
				return
			}
			fmt.Fprintf(stdout, "%s\n", path)
			d, err := compression.GetDecompressor(opts.Compression)
			if err != nil {
				fmt.Fprintf(stderr, "%s\n", err)
				return
			}
			defer d.Close()
			serialized, err := d.Decompress(nil, data)
			if err != nil {
				fmt.Fprintf(stderr, "%s: %s\n", path, err)
				return
			}
			fmt.Fprintf(stdout, "  %s/%s: %d bytes, %d serialized\n",
				opts.Serialization, opts.Compression, len(data), len(serialized))
			if b.hex {
				binfmt.FHexDump(stdout, serialized, 16)
			}
			p, err := opts.Serialization.Unmarshal(serialized)
			if err != nil {
				fmt.Fprintf(stderr, "%s: %s\n", path, err)
				return
			}
			b.dumpPayload(stdout, &p)
		}()
	}
}

func (b *blobT) dumpPayload(stdout io.Writer, p *envelope.Payload) {
	fmt.Fprintf(stdout, "  kind: %s\n", p.Kind)
	if p.HasDefault {
		fmt.Fprintf(stdout, "  default: %d\n", p.Default)
	}
	diffMap := make([]int, len(p.Diffs))
	switch p.Kind {
	case envelope.KindEmpty:
		return
	case envelope.KindLegacy:
		fmt.Fprintf(stdout, "  base: %d bytes\n", len(p.Base))
		for k := range diffMap {
			diffMap[k] = k + 1
		}
	case envelope.KindModern:
		fmt.Fprintf(stdout, "  map: %s\n", p.Map)
		m, err := envelope.DecodeMap(p.Map)
		if err != nil {
			fmt.Fprintf(stdout, "  %s\n", err)
			m = nil
		}
		for k := range diffMap {
			diffMap[k] = -1
			if k < len(m) {
				diffMap[k] = m[k]
			}
		}
	}
	for k, d := range p.Diffs {
		target := "?"
		if diffMap[k] >= 0 {
			target = strconv.Itoa(diffMap[k])
		}
		fmt.Fprintf(stdout, "  diff %d -> item %s: %d bytes\n", k, target, len(d))
		if b.verbose {
			xdiff.Describe(stdout, d)
		} else if s, err := xdiff.Stats(d); err != nil {
			fmt.Fprintf(stdout, "    %s\n", err)
		} else {
			fmt.Fprintf(stdout, "    %s\n", s)
		}
	}
}

type statRow struct {
	path string
	blob *historyblob.Blob
	err  error
	log  base.InMemLogger
}

func (b *blobT) runStat(cmd *cobra.Command, args []string) {
	stdout, stderr := cmd.OutOrStdout(), cmd.OutOrStderr()
	opts, err := b.options(cmd)
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return
	}

	rows := make([]statRow, len(args))
	g := &errgroup.Group{}
	g.SetLimit(max(b.concurrency, 1))
	for i, path := range args {
		r := &rows[i]
		r.path = path
		g.Go(func() error {
			o := *opts
			o.Logger = &r.log
			r.blob, r.err = b.load(path, &o)
			return nil
		})
	}
	_ = g.Wait()

	var total historyblob.Stats
	tbl := tablewriter.NewWriter(stdout)
	tbl.SetHeader([]string{"Blob", "Kind", "Items", "Default", "Item Bytes", "Packed", "Ratio", "Failed"})
	for i := range rows {
		r := &rows[i]
		if r.err != nil {
			fmt.Fprintf(stderr, "%s\n", r.err)
			continue
		}
		if s := r.log.String(); s != "" {
			fmt.Fprintf(stderr, "%s: %s", r.path, s)
		}
		s := r.blob.Stats()
		total.Items += s.Items
		total.ItemBytes += s.ItemBytes
		total.PackedBytes += s.PackedBytes
		total.FailedItems += s.FailedItems
		kind := "modern"
		switch {
		case r.blob.Legacy():
			kind = "legacy"
		case r.blob.Len() == 0:
			kind = "empty"
		}
		def := "-"
		if r.blob.HasDefault() {
			def = strconv.Itoa(r.blob.DefaultIndex())
		}
		tbl.Append([]string{
			r.path,
			kind,
			strconv.Itoa(s.Items),
			def,
			string(crhumanize.Bytes(s.ItemBytes, crhumanize.Compact, crhumanize.OmitI)),
			string(crhumanize.Bytes(s.PackedBytes, crhumanize.Compact, crhumanize.OmitI)),
			ratio(s.PackedBytes, s.ItemBytes),
			strconv.Itoa(s.FailedItems),
		})
	}
	tbl.SetFooter([]string{
		"total",
		"",
		strconv.Itoa(total.Items),
		"",
		string(crhumanize.Bytes(total.ItemBytes, crhumanize.Compact, crhumanize.OmitI)),
		string(crhumanize.Bytes(total.PackedBytes, crhumanize.Compact, crhumanize.OmitI)),
		ratio(total.PackedBytes, total.ItemBytes),
		strconv.Itoa(total.FailedItems),
	})
	tbl.Render()
}

func ratio(packed, items int64) string {
	if items == 0 {
		return "-"
	}
	return string(crhumanize.Percent(packed, items))
}

func (b *blobT) runDiff(cmd *cobra.Command, args []string) {
	stdout, stderr := cmd.OutOrStdout(), cmd.OutOrStderr()
	opts, err := b.options(cmd)
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return
	}
	idx, err := parseIndexes(args[1:])
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return
	}
	blob, err := b.load(args[0], opts)
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return
	}
	from, err := blob.Item(idx[0])
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return
	}
	to, err := blob.Item(idx[1])
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return
	}

	if b.delta {
		xdiff.Describe(stdout, xdiff.Diff(from, to))
		return
	}
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(from)),
		B:        difflib.SplitLines(string(to)),
		FromFile: fmt.Sprintf("item %d", idx[0]),
		ToFile:   fmt.Sprintf("item %d", idx[1]),
		Context:  b.context,
	})
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return
	}
	fmt.Fprint(stdout, text)
}
