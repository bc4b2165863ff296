// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package envelope

import (
	"github.com/cockroachdb/errors"
	"github.com/fxamacker/cbor/v2"
	"github.com/histblob/historyblob/internal/base"
)

// The CBOR encoding sorts map keys by Core Deterministic Encoding (RFC 8949)
// so equal payloads produce equal bytes, and the decoder rejects duplicate
// and unknown keys.
var (
	cborEncOptions = cbor.EncOptions{
		IndefLength: cbor.IndefLengthForbidden,
		Sort:        cbor.SortCoreDeterministic,
		TagsMd:      cbor.TagsForbidden,
	}
	cborDecOptions = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
		IndefLength:       cbor.IndefLengthForbidden,
		MaxArrayElements:  2147483647,
		MaxMapPairs:       16,
		TagsMd:            cbor.TagsForbidden,
	}

	cborEncMode cbor.EncMode
	cborDecMode cbor.DecMode
)

func init() {
	var err error
	if cborEncMode, err = cborEncOptions.EncMode(); err != nil {
		panic(err)
	}
	if cborDecMode, err = cborDecOptions.DecMode(); err != nil {
		panic(err)
	}
}

// cborPayload mirrors the keyed shapes. Pointers distinguish an absent key
// from an empty value.
type cborPayload struct {
	Base    *[]byte  `cbor:"base,omitempty"`
	Diffs   [][]byte `cbor:"diffs"`
	Map     *string  `cbor:"map,omitempty"`
	Default *int     `cbor:"default,omitempty"`
}

func marshalCBOR(p *Payload) ([]byte, error) {
	var cp cborPayload
	switch p.Kind {
	case KindEmpty:
		return cborEncMode.Marshal(false)
	case KindModern:
		cp.Map = &p.Map
	case KindLegacy:
		b := p.Base
		if b == nil {
			b = []byte{}
		}
		cp.Base = &b
	default:
		return nil, errors.AssertionFailedf("envelope: cannot marshal payload of %s", p.Kind)
	}
	cp.Diffs = p.Diffs
	if cp.Diffs == nil {
		cp.Diffs = [][]byte{}
	}
	if p.HasDefault {
		d := p.Default
		cp.Default = &d
	}
	return cborEncMode.Marshal(&cp)
}

func unmarshalCBOR(data []byte) (Payload, error) {
	// An empty blob is the single value false.
	var nonEmpty bool
	if err := cborDecMode.Unmarshal(data, &nonEmpty); err == nil {
		if nonEmpty {
			return Payload{}, corruptf("cbor: top-level value is true")
		}
		return Payload{Kind: KindEmpty}, nil
	}

	var cp cborPayload
	if err := cborDecMode.Unmarshal(data, &cp); err != nil {
		return Payload{}, base.MarkCorruptionError(errors.Wrap(err, "envelope: cbor"))
	}
	p := Payload{Diffs: cp.Diffs}
	if cp.Default != nil {
		p.Default, p.HasDefault = *cp.Default, true
	}
	switch {
	case cp.Base != nil:
		if cp.Map != nil {
			return Payload{}, corruptf("cbor: payload has both %q and %q", keyBase, keyMap)
		}
		p.Kind = KindLegacy
		p.Base = *cp.Base
	case cp.Map != nil:
		p.Kind = KindModern
		p.Map = *cp.Map
	default:
		return Payload{}, corruptf("cbor: payload has neither %q nor %q", keyBase, keyMap)
	}
	return p, nil
}
