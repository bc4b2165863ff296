// Copyright 2011 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package historyblob

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/histblob/historyblob/internal/base"
	"github.com/histblob/historyblob/internal/compression"
	"github.com/histblob/historyblob/internal/envelope"
	"github.com/histblob/historyblob/xdiff"
)

const (
	// DefaultMaxSize is the uncompressed size at which a Writer stops being
	// happy. It should stay below the max_allowed_packet of the database the
	// blobs are stored in.
	DefaultMaxSize = 10_000_000
	// DefaultMaxCount is the item count at which a Writer stops being happy.
	DefaultMaxCount = 100
	// DefaultSmallFactor routes an item to the small sequence when it is
	// shorter than this fraction of the current main-line item.
	DefaultSmallFactor = 0.5
)

// Logger defines an interface for writing log messages.
type Logger = base.Logger

// DefaultLogger logs to the Go stdlib logs.
var DefaultLogger = base.DefaultLogger

// Serialization selects how the packed structure is encoded before
// compression.
type Serialization = envelope.Format

// Exported Serialization constants.
const (
	// SerializationPHP is PHP's serialize() format, as stored by MediaWiki.
	SerializationPHP = envelope.PHP
	// SerializationCBOR is deterministic CBOR.
	SerializationCBOR = envelope.CBOR
)

// Compression selects the whole-blob compression algorithm.
type Compression = compression.Algorithm

// Exported Compression constants.
const (
	// DeflateCompression is raw DEFLATE, as produced by PHP's gzdeflate().
	DeflateCompression = compression.Deflate
	NoCompression      = compression.NoCompression
	SnappyCompression  = compression.Snappy
	ZstdCompression    = compression.Zstd
	MinLZCompression   = compression.MinLZ
)

// Options holds the optional parameters for writing and reading blobs. A nil
// *Options is equivalent to a zero Options, which selects the defaults
// compatible with MediaWiki.
type Options struct {
	// MaxSize is the total uncompressed item size at which IsHappy turns
	// false. The limit is advisory: AddItem does not enforce it.
	//
	// The default value is 10,000,000.
	MaxSize int64

	// MaxCount is the item count at which IsHappy turns false. The limit is
	// advisory: AddItem does not enforce it.
	//
	// The default value is 100.
	MaxCount int

	// SmallFactor routes an item to the small sequence when its length is
	// less than SmallFactor times the length of the current main-line item.
	// Negative values disable the small sequence.
	//
	// The default value is 0.5.
	SmallFactor float64

	// Engine computes and applies deltas. Pack requires an engine that also
	// implements xdiff.Differ.
	//
	// The default value is an xdiff.Engine verifying checksums with Checksum.
	Engine xdiff.Patcher

	// Checksum computes the base checksum verified by the default Engine. It
	// is ignored when Engine is set.
	//
	// The default value is xdiff.Checksum.
	Checksum xdiff.ChecksumFunc

	// DisableChecksum disables base checksum verification by the default
	// Engine.
	DisableChecksum bool

	// Serialization is the encoding of the packed structure.
	//
	// The default value is SerializationPHP.
	Serialization Serialization

	// Compression is the whole-blob compression algorithm.
	//
	// The default value is DeflateCompression.
	Compression Compression

	// Logger used to report replay failures.
	//
	// The default value is DefaultLogger.
	Logger Logger
}

// EnsureDefaults ensures that the default values for all options are set if a
// valid value was not already specified. Returns the new options.
func (o *Options) EnsureDefaults() *Options {
	if o == nil {
		o = &Options{}
	}
	if o.MaxSize <= 0 {
		o.MaxSize = DefaultMaxSize
	}
	if o.MaxCount <= 0 {
		o.MaxCount = DefaultMaxCount
	}
	if o.SmallFactor == 0 {
		o.SmallFactor = DefaultSmallFactor
	}
	if o.DisableChecksum {
		o.Checksum = nil
	} else if o.Checksum == nil {
		o.Checksum = xdiff.Checksum
	}
	if o.Engine == nil {
		o.Engine = xdiff.Engine{Checksum: o.Checksum}
	}
	if o.Logger == nil {
		o.Logger = DefaultLogger
	}
	return o
}

// clone returns a copy of o with defaults applied, leaving o untouched.
func (o *Options) clone() *Options {
	var n Options
	if o != nil {
		n = *o
	}
	return n.EnsureDefaults()
}

// Validate verifies that the options are usable in this environment. It
// returns an error marked with ErrUnsupportedEnvironment when the configured
// compression algorithm or serialization format is unavailable.
func (o *Options) Validate() error {
	if err := o.Serialization.Valid(); err != nil {
		return errors.Mark(err, ErrUnsupportedEnvironment)
	}
	c, err := compression.GetCompressor(o.Compression)
	if err != nil {
		return errors.Mark(err, ErrUnsupportedEnvironment)
	}
	c.Close()
	return nil
}

// engineName returns the name recorded for the engine in the options string.
func engineName(e xdiff.Patcher) string {
	switch e.(type) {
	case nil, xdiff.Engine:
		return "xdiff"
	case xdiff.PatchOnly:
		return "patch-only"
	default:
		return fmt.Sprintf("%T", e)
	}
}

// String writes the options in an INI-like format that Parse reads back.
// Custom engines and checksum functions are recorded by name only.
func (o *Options) String() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "[Options]\n")
	fmt.Fprintf(&buf, "  compression=%s\n", o.Compression)
	fmt.Fprintf(&buf, "  engine=%s\n", engineName(o.Engine))
	fmt.Fprintf(&buf, "  max_count=%d\n", o.MaxCount)
	fmt.Fprintf(&buf, "  max_size=%d\n", o.MaxSize)
	fmt.Fprintf(&buf, "  serialization=%s\n", o.Serialization)
	fmt.Fprintf(&buf, "  small_factor=%s\n", strconv.FormatFloat(o.SmallFactor, 'g', -1, 64))
	fmt.Fprintf(&buf, "  verify_checksums=%t\n", !o.DisableChecksum)
	return buf.String()
}

// Parse parses the options from the specified string, as written by String.
// Blank lines and lines starting with ';' or '#' are ignored.
func (o *Options) Parse(s string) error {
	var section string
	var patchOnly bool
	for lineNum, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if len(line) == 0 || line[0] == ';' || line[0] == '#' {
			continue
		}
		n := len(line)
		if line[0] == '[' && line[n-1] == ']' {
			section = line[1 : n-1]
			if section != "Options" {
				return errors.Errorf("historyblob: unknown section: %q", errors.Safe(section))
			}
			continue
		}
		if section == "" {
			return errors.Errorf("historyblob: line %d: option outside of a section", errors.Safe(lineNum+1))
		}
		pos := strings.Index(line, "=")
		if pos < 0 {
			const maxLen = 50
			if len(line) > maxLen {
				line = line[:maxLen-3] + "..."
			}
			return errors.Errorf("historyblob: invalid key=value syntax: %q", errors.Safe(line))
		}
		key := strings.TrimSpace(line[:pos])
		value := strings.TrimSpace(line[pos+1:])

		var err error
		switch key {
		case "compression":
			o.Compression, err = compression.ParseAlgorithm(value)
		case "engine":
			switch value {
			case "xdiff":
				o.Engine, patchOnly = nil, false
			case "patch-only":
				patchOnly = true
			default:
				err = errors.Errorf("unknown engine %q", errors.Safe(value))
			}
		case "max_count":
			o.MaxCount, err = strconv.Atoi(value)
		case "max_size":
			o.MaxSize, err = strconv.ParseInt(value, 10, 64)
		case "serialization":
			o.Serialization, err = envelope.ParseFormat(value)
		case "small_factor":
			o.SmallFactor, err = strconv.ParseFloat(value, 64)
		case "verify_checksums":
			var verify bool
			verify, err = strconv.ParseBool(value)
			o.DisableChecksum = !verify
		default:
			return errors.Errorf("historyblob: unknown option: %s.%s",
				errors.Safe(section), errors.Safe(key))
		}
		if err != nil {
			return errors.Wrapf(err, "historyblob: invalid value for %s", errors.Safe(key))
		}
	}
	if patchOnly {
		var checksum xdiff.ChecksumFunc
		if !o.DisableChecksum {
			checksum = o.Checksum
			if checksum == nil {
				checksum = xdiff.Checksum
			}
		}
		o.Engine = xdiff.PatchOnly{Checksum: checksum}
	}
	return nil
}
