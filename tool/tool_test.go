// Copyright 2019 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package tool

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/cockroachdb/crlib/testutils/leaktest"
	"github.com/cockroachdb/datadriven"
	"github.com/histblob/historyblob"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// runTool runs the tool with the given arguments and returns its combined
// output with dir stripped from paths.
func runTool(t *testing.T, dir string, args ...string) string {
	var buf bytes.Buffer
	c := &cobra.Command{}
	c.AddCommand(New().Commands...)
	c.SetArgs(args)
	c.SetOutput(&buf)
	if err := c.Execute(); err != nil {
		return err.Error()
	}
	return strings.ReplaceAll(buf.String(), dir+string(filepath.Separator), "")
}

// inDir joins arguments that name files with dir. Other flags and item
// indexes are passed through.
func inDir(dir string, fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		if v, ok := strings.CutPrefix(f, "--options="); ok {
			out[i] = "--options=" + filepath.Join(dir, v)
			continue
		}
		if _, err := strconv.Atoi(f); err == nil || strings.HasPrefix(f, "-") {
			out[i] = f
			continue
		}
		out[i] = filepath.Join(dir, f)
	}
	return out
}

func TestTool(t *testing.T) {
	defer leaktest.AfterTest(t)()
	dir := t.TempDir()
	datadriven.RunTest(t, "testdata/tool", func(t *testing.T, td *datadriven.TestData) string {
		if td.Cmd == "file" {
			var name string
			td.ScanArgs(t, "name", &name)
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(td.Input), 0644))
			return ""
		}
		args := append([]string{td.Cmd}, inDir(dir, strings.Fields(td.Input))...)
		return runTool(t, dir, args...)
	})
}

func writeFiles(t *testing.T, dir string, contents ...string) []string {
	paths := make([]string, len(contents))
	for i, c := range contents {
		paths[i] = filepath.Join(dir, "item"+strconv.Itoa(i))
		require.NoError(t, os.WriteFile(paths[i], []byte(c), 0644))
	}
	return paths
}

func TestStat(t *testing.T) {
	defer leaktest.AfterTest(t)()
	dir := t.TempDir()
	paths := writeFiles(t, dir, "Hello", "Hello world", "Goodbye world")
	blob1 := filepath.Join(dir, "one")
	blob2 := filepath.Join(dir, "two")
	runTool(t, dir, append([]string{"pack", "--default=1", blob1}, paths...)...)
	runTool(t, dir, "pack", blob2)

	out := runTool(t, dir, "stat", "-c", "2", blob1, blob2, filepath.Join(dir, "missing"))
	out = strings.ToLower(out)
	for _, s := range []string{"blob", "one", "modern", "two", "empty", "total", "missing"} {
		require.Contains(t, out, s)
	}

	// The packed blob must be readable by the library directly.
	data, err := os.ReadFile(blob1)
	require.NoError(t, err)
	b, err := historyblob.Unpack(data, nil)
	require.NoError(t, err)
	require.Equal(t, 3, b.Len())
	require.Equal(t, 1, b.DefaultIndex())
}

func TestDiffDelta(t *testing.T) {
	defer leaktest.AfterTest(t)()
	dir := t.TempDir()
	paths := writeFiles(t, dir, "Hello", "Hello world")
	blob := filepath.Join(dir, "blob")
	runTool(t, dir, append([]string{"pack", blob}, paths...)...)

	out := runTool(t, dir, "diff", "--delta", blob, "0", "1")
	require.Contains(t, out, "checksum")
	require.Contains(t, out, "base length 5")

	out = runTool(t, dir, "dump", "-v", blob)
	require.Contains(t, out, "kind: modern")
	require.Contains(t, out, "base length 0")
	require.Contains(t, out, "verify_checksums=true")

	out = runTool(t, dir, "dump", "--hex", "--compression=deflate", blob)
	require.Contains(t, out, "0000:  613a323a")
}

func TestOptionsMismatch(t *testing.T) {
	defer leaktest.AfterTest(t)()
	dir := t.TempDir()
	paths := writeFiles(t, dir, "Hello", "Hello world")
	blob := filepath.Join(dir, "blob")
	out := runTool(t, dir, append([]string{"pack", "--compression=snappy", "--serialization=cbor", blob}, paths...)...)
	require.Equal(t, "blob: 2 items\n", out)

	out = runTool(t, dir, "cat", blob)
	require.NotEmpty(t, out)
	require.NotContains(t, out, `0: "Hello"`)

	out = runTool(t, dir, "cat", "--compression=snappy", "--serialization=cbor", blob)
	require.Equal(t, "0: \"Hello\"\n1: \"Hello world\"\n", out)
}

func TestSplitHonorsLimits(t *testing.T) {
	defer leaktest.AfterTest(t)()
	dir := t.TempDir()
	contents := make([]string, 7)
	for i := range contents {
		contents[i] = strings.Repeat("revision text ", i+1)
	}
	paths := writeFiles(t, dir, contents...)
	blob := filepath.Join(dir, "blob")
	out := runTool(t, dir, append([]string{"pack", "--split", "--max-count=3", blob}, paths...)...)
	require.Equal(t, "blob.000: 3 items\nblob.001: 3 items\nblob.002: 1 items\n", out)

	for i, want := range []int{3, 3, 1} {
		data, err := os.ReadFile(filepath.Join(dir, "blob.00"+strconv.Itoa(i)))
		require.NoError(t, err)
		b, err := historyblob.Unpack(data, nil)
		require.NoError(t, err)
		require.Equal(t, want, b.Len())
		for j := 0; j < want; j++ {
			item, err := b.Item(j)
			require.NoError(t, err)
			require.Equal(t, contents[3*i+j], string(item))
		}
	}
}
