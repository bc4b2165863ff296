// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package envelope

import (
	"encoding/hex"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"testing"

	"github.com/cockroachdb/crlib/testutils/leaktest"
	"github.com/cockroachdb/datadriven"
	"github.com/histblob/historyblob/internal/base"
	"github.com/stretchr/testify/require"
)

func TestEnvelope(t *testing.T) {
	defer leaktest.AfterTest(t)()
	datadriven.RunTest(t, "testdata/envelope", func(t *testing.T, td *datadriven.TestData) string {
		var formatStr string
		td.ScanArgs(t, "format", &formatStr)
		f, err := ParseFormat(formatStr)
		require.NoError(t, err)

		switch td.Cmd {
		case "marshal":
			p := parsePayload(t, td)
			b, err := f.Marshal(&p)
			require.NoError(t, err)
			// Every marshaled payload must decode back to itself.
			p2, err := f.Unmarshal(b)
			require.NoError(t, err)
			require.Equal(t, describePayload(&p), describePayload(&p2))
			if f == CBOR {
				return hex.EncodeToString(b) + "\n"
			}
			return string(b) + "\n"

		case "unmarshal":
			data := []byte(td.Input)
			if f == CBOR {
				data, err = hex.DecodeString(strings.Join(strings.Fields(td.Input), ""))
				require.NoError(t, err)
			}
			p, err := f.Unmarshal(data)
			if err != nil {
				require.True(t, base.IsCorruptionError(err))
				return fmt.Sprintf("error: %s\n", err)
			}
			return describePayload(&p)

		default:
			td.Fatalf(t, "unknown command %q", td.Cmd)
			return ""
		}
	})
}

// parsePayload builds a Payload from the command arguments and input lines of
// the form "map <encoded>", "base <quoted>" and "diff <quoted>".
func parsePayload(t *testing.T, td *datadriven.TestData) Payload {
	var p Payload
	var kind string
	td.ScanArgs(t, "kind", &kind)
	switch kind {
	case "empty":
		p.Kind = KindEmpty
	case "legacy":
		p.Kind = KindLegacy
	case "modern":
		p.Kind = KindModern
	default:
		td.Fatalf(t, "unknown kind %q", kind)
	}
	if td.HasArg("default") {
		td.ScanArgs(t, "default", &p.Default)
		p.HasDefault = true
	}
	for _, line := range strings.Split(td.Input, "\n") {
		if line == "" {
			continue
		}
		field, val, _ := strings.Cut(line, " ")
		switch field {
		case "map":
			p.Map = val
		case "base":
			s, err := strconv.Unquote(val)
			require.NoError(t, err)
			p.Base = []byte(s)
		case "diff":
			s, err := strconv.Unquote(val)
			require.NoError(t, err)
			p.Diffs = append(p.Diffs, []byte(s))
		default:
			td.Fatalf(t, "unknown field %q", field)
		}
	}
	return p
}

func describePayload(p *Payload) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "kind=%s", p.Kind)
	if p.HasDefault {
		fmt.Fprintf(&sb, " default=%d", p.Default)
	}
	sb.WriteString("\n")
	switch p.Kind {
	case KindModern:
		fmt.Fprintf(&sb, "map %s\n", p.Map)
	case KindLegacy:
		fmt.Fprintf(&sb, "base %q\n", p.Base)
	}
	for _, d := range p.Diffs {
		fmt.Fprintf(&sb, "diff %q\n", d)
	}
	return sb.String()
}

func TestMarshalRoundtrip(t *testing.T) {
	defer leaktest.AfterTest(t)()
	seed := uint64(1)
	t.Logf("seed %d", seed)
	rng := rand.New(rand.NewPCG(0, seed))
	randBytes := func() []byte {
		b := make([]byte, rng.IntN(300))
		for i := range b {
			b[i] = byte(rng.Uint32())
		}
		return b
	}
	for _, f := range []Format{PHP, CBOR} {
		t.Run(f.String(), func(t *testing.T) {
			for i := 0; i < 200; i++ {
				p := Payload{Kind: Kind(rng.IntN(3))}
				if p.Kind != KindEmpty {
					n := 1 + rng.IntN(10)
					for j := 0; j < n; j++ {
						p.Diffs = append(p.Diffs, randBytes())
					}
					if rng.IntN(2) == 0 {
						p.Default, p.HasDefault = rng.IntN(n), true
					}
				}
				switch p.Kind {
				case KindModern:
					m := rng.Perm(len(p.Diffs))
					p.Map = EncodeMap(m)
				case KindLegacy:
					p.Base = randBytes()
				}
				b, err := f.Marshal(&p)
				require.NoError(t, err)
				got, err := f.Unmarshal(b)
				require.NoError(t, err)
				require.Equal(t, describePayload(&p), describePayload(&got))
			}
		})
	}
}

func TestMarshalDeterministic(t *testing.T) {
	p := Payload{
		Kind:       KindModern,
		Diffs:      [][]byte{[]byte("a"), []byte("bc")},
		Map:        "0,1",
		Default:    1,
		HasDefault: true,
	}
	for _, f := range []Format{PHP, CBOR} {
		b1, err := f.Marshal(&p)
		require.NoError(t, err)
		b2, err := f.Marshal(&p)
		require.NoError(t, err)
		require.Equal(t, b1, b2)
	}
}

func TestMap(t *testing.T) {
	testCases := []struct {
		m   []int
		enc string
	}{
		{m: nil, enc: ""},
		{m: []int{0}, enc: "0"},
		{m: []int{0, 1, 2, 3}, enc: "0,1,1,1"},
		{m: []int{0, 2, 3, 1, 4}, enc: "0,2,1,-2,3"},
		{m: []int{5, 3}, enc: "5,-2"},
	}
	for _, tc := range testCases {
		require.Equal(t, tc.enc, EncodeMap(tc.m))
		m, err := DecodeMap(tc.enc)
		require.NoError(t, err)
		require.Equal(t, tc.m, m)
	}

	for _, s := range []string{"0,", "x", "0,,1", "1,2.5"} {
		_, err := DecodeMap(s)
		require.Error(t, err, "%q", s)
		require.True(t, base.IsCorruptionError(err))
	}
}

func TestParseFormat(t *testing.T) {
	for _, f := range []Format{PHP, CBOR} {
		got, err := ParseFormat(f.String())
		require.NoError(t, err)
		require.Equal(t, f, got)
	}
	_, err := ParseFormat("json")
	require.Error(t, err)
	require.Error(t, numFormats.Valid())
	_, err = numFormats.Marshal(&Payload{})
	require.Error(t, err)
}

func TestCBORRejects(t *testing.T) {
	for _, h := range []string{
		// Unknown key.
		"a2636d617061306578747261f4",
		// Duplicate key.
		"a2636d61706130636d61706131",
		// Indefinite-length array.
		"a2636d617061306564696666739fff",
		// Trailing bytes.
		"f4f4",
		// Not a map.
		"4161",
	} {
		data, err := hex.DecodeString(h)
		require.NoError(t, err)
		_, err = CBOR.Unmarshal(data)
		require.Error(t, err, "%s", h)
		require.True(t, base.IsCorruptionError(err), "%s", h)
	}
}
