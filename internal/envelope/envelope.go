// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

// Package envelope defines the structure a packed history blob serializes
// before whole-blob compression, and its two encodings.
//
// Three shapes exist:
//
//   - Empty: a blob without items, encoded as the boolean false.
//   - Modern: {"diffs": [delta...], "map": "<forward deltas>", "default": n}.
//   - Legacy: {"base": text, "diffs": [delta...], "default": n}, written before
//     blobs kept separate small and main sequences. Legacy payloads are never
//     produced by a Writer but must remain readable.
//
// "default" is optional in both keyed shapes. Decoding inspects which keys are
// present and returns a Payload tagged with its Kind, so that callers dispatch
// on the tag rather than probing fields.
package envelope

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/histblob/historyblob/internal/base"
)

// Kind tags the shape of a Payload.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindLegacy
	KindModern
)

// String implements the fmt.Stringer interface.
func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindLegacy:
		return "legacy"
	case KindModern:
		return "modern"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Keys of the keyed shapes.
const (
	keyBase    = "base"
	keyDiffs   = "diffs"
	keyMap     = "map"
	keyDefault = "default"
)

// Payload is the decoded envelope.
type Payload struct {
	Kind Kind
	// Diffs is set for KindModern and KindLegacy.
	Diffs [][]byte
	// Map is the forward-delta encoded diff map of a KindModern payload.
	Map string
	// Base is the verbatim first item of a KindLegacy payload.
	Base []byte
	// Default is the index of the default item if HasDefault is set.
	Default    int
	HasDefault bool
}

// Format is a serialization of Payload.
type Format uint8

const (
	// PHP is PHP's serialize() format, which is what MediaWiki stores.
	PHP Format = iota
	// CBOR is deterministic CBOR (RFC 8949 core deterministic encoding).
	CBOR
	numFormats
)

// String implements the fmt.Stringer interface.
func (f Format) String() string {
	switch f {
	case PHP:
		return "php"
	case CBOR:
		return "cbor"
	default:
		return fmt.Sprintf("format(%d)", uint8(f))
	}
}

// ParseFormat parses the String() form of a Format.
func ParseFormat(s string) (Format, error) {
	for f := Format(0); f < numFormats; f++ {
		if strings.EqualFold(s, f.String()) {
			return f, nil
		}
	}
	return 0, errors.Newf("unknown serialization format %q", s)
}

// Valid returns an error if f is not a known format.
func (f Format) Valid() error {
	if f >= numFormats {
		return errors.Newf("serialization format %d is not supported", errors.Safe(uint8(f)))
	}
	return nil
}

// Marshal encodes p.
func (f Format) Marshal(p *Payload) ([]byte, error) {
	switch f {
	case PHP:
		return marshalPHP(p)
	case CBOR:
		return marshalCBOR(p)
	default:
		return nil, f.Valid()
	}
}

// Unmarshal decodes data. Malformed input returns a corruption error.
func (f Format) Unmarshal(data []byte) (Payload, error) {
	switch f {
	case PHP:
		return unmarshalPHP(data)
	case CBOR:
		return unmarshalCBOR(data)
	default:
		return Payload{}, f.Valid()
	}
}

// EncodeMap encodes a diff map as comma-separated forward differences: the
// first entry as is, then each entry minus its predecessor. Item indices grow
// in small steps, so the differences repeat and compress well.
func EncodeMap(m []int) string {
	var sb strings.Builder
	prev := 0
	for i, v := range m {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(v - prev))
		prev = v
	}
	return sb.String()
}

// DecodeMap inverts EncodeMap by running a cumulative sum.
func DecodeMap(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	m := make([]int, len(parts))
	cur := 0
	for i, p := range parts {
		d, err := strconv.Atoi(p)
		if err != nil {
			return nil, base.CorruptionErrorf("envelope: malformed diff map entry %d: %q", errors.Safe(i), p)
		}
		cur += d
		m[i] = cur
	}
	return m, nil
}

func corruptf(format string, args ...interface{}) error {
	return base.CorruptionErrorf("envelope: "+format, args...)
}
