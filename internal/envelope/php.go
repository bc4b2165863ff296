// Copyright 2025 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package envelope

import (
	"bytes"
	"sort"
	"strconv"

	"github.com/cockroachdb/errors"
)

// The PHP serialize() grammar subset used by history blobs:
//
//	N;                 null
//	b:0; b:1;          boolean
//	i:<int>;           integer
//	s:<len>:"<bytes>"; byte string, <len> counts bytes
//	a:<n>:{<k><v>...}  ordered map with integer or string keys
//
// Objects, references and floats are rejected.

// maxPHPDepth bounds array nesting. A history blob needs two levels.
const maxPHPDepth = 8

func appendPHPString(b []byte, s []byte) []byte {
	b = append(b, "s:"...)
	b = strconv.AppendInt(b, int64(len(s)), 10)
	b = append(b, `:"`...)
	b = append(b, s...)
	return append(b, `";`...)
}

func appendPHPInt(b []byte, v int) []byte {
	b = append(b, "i:"...)
	b = strconv.AppendInt(b, int64(v), 10)
	return append(b, ';')
}

func appendPHPArrayHeader(b []byte, n int) []byte {
	b = append(b, "a:"...)
	b = strconv.AppendInt(b, int64(n), 10)
	return append(b, ":{"...)
}

func appendPHPDiffs(b []byte, diffs [][]byte) []byte {
	b = appendPHPString(b, []byte(keyDiffs))
	b = appendPHPArrayHeader(b, len(diffs))
	for i, d := range diffs {
		b = appendPHPInt(b, i)
		b = appendPHPString(b, d)
	}
	return append(b, '}')
}

func marshalPHP(p *Payload) ([]byte, error) {
	n := 0
	if p.HasDefault {
		n++
	}
	var b []byte
	switch p.Kind {
	case KindEmpty:
		return []byte("b:0;"), nil
	case KindModern:
		b = appendPHPArrayHeader(b, n+2)
		b = appendPHPDiffs(b, p.Diffs)
		b = appendPHPString(b, []byte(keyMap))
		b = appendPHPString(b, []byte(p.Map))
	case KindLegacy:
		b = appendPHPArrayHeader(b, n+2)
		b = appendPHPString(b, []byte(keyBase))
		b = appendPHPString(b, p.Base)
		b = appendPHPDiffs(b, p.Diffs)
	default:
		return nil, errors.AssertionFailedf("envelope: cannot marshal payload of %s", p.Kind)
	}
	if p.HasDefault {
		b = appendPHPString(b, []byte(keyDefault))
		b = appendPHPInt(b, p.Default)
	}
	return append(b, '}'), nil
}

type phpKind uint8

const (
	phpNull phpKind = iota
	phpBool
	phpInt
	phpString
	phpArray
)

var phpKindNames = [...]string{
	phpNull:   "null",
	phpBool:   "bool",
	phpInt:    "int",
	phpString: "string",
	phpArray:  "array",
}

func (k phpKind) String() string { return phpKindNames[k] }

type phpEntry struct {
	key phpValue
	val phpValue
}

type phpValue struct {
	kind phpKind
	i    int64 // phpBool, phpInt
	s    []byte
	arr  []phpEntry
}

// lookup returns the entry for the string key k. A repeated key overwrites
// earlier ones, as in PHP.
func (v *phpValue) lookup(k string) (phpValue, bool) {
	for i := len(v.arr) - 1; i >= 0; i-- {
		e := v.arr[i]
		if e.key.kind == phpString && string(e.key.s) == k {
			return e.val, true
		}
	}
	return phpValue{}, false
}

// asInt accepts integers and decimal strings, as PHP's loose typing does for
// array keys and numeric values.
func (v *phpValue) asInt() (int, bool) {
	switch v.kind {
	case phpInt:
		return int(v.i), true
	case phpString:
		n, err := strconv.Atoi(string(v.s))
		return n, err == nil
	}
	return 0, false
}

func (v *phpValue) falsy() bool {
	switch v.kind {
	case phpNull:
		return true
	case phpBool, phpInt:
		return v.i == 0
	case phpString:
		return len(v.s) == 0 || string(v.s) == "0"
	case phpArray:
		return len(v.arr) == 0
	}
	return false
}

type phpDecoder struct {
	data []byte
	pos  int
}

func (d *phpDecoder) errorf(format string, args ...interface{}) error {
	args = append([]interface{}{errors.Safe(d.pos)}, args...)
	return corruptf("php: at offset %d: "+format, args...)
}

func (d *phpDecoder) expect(c byte) error {
	if d.pos >= len(d.data) || d.data[d.pos] != c {
		return d.errorf("expected %q", errors.Safe(string(c)))
	}
	d.pos++
	return nil
}

// readInt reads a decimal integer terminated by term.
func (d *phpDecoder) readInt(term byte) (int64, error) {
	i := bytes.IndexByte(d.data[d.pos:], term)
	if i < 0 {
		return 0, d.errorf("unterminated integer")
	}
	v, err := strconv.ParseInt(string(d.data[d.pos:d.pos+i]), 10, 64)
	if err != nil {
		return 0, d.errorf("malformed integer")
	}
	d.pos += i + 1
	return v, nil
}

func (d *phpDecoder) value(depth int) (phpValue, error) {
	if d.pos+1 >= len(d.data) {
		return phpValue{}, d.errorf("unexpected end of input")
	}
	tag := d.data[d.pos]
	if tag == 'N' {
		d.pos++
		return phpValue{kind: phpNull}, d.expect(';')
	}
	d.pos++
	if err := d.expect(':'); err != nil {
		return phpValue{}, err
	}
	switch tag {
	case 'b':
		v, err := d.readInt(';')
		if err != nil {
			return phpValue{}, err
		}
		if v != 0 && v != 1 {
			return phpValue{}, d.errorf("malformed boolean")
		}
		return phpValue{kind: phpBool, i: v}, nil
	case 'i':
		v, err := d.readInt(';')
		return phpValue{kind: phpInt, i: v}, err
	case 's':
		n, err := d.readInt(':')
		if err != nil {
			return phpValue{}, err
		}
		if err := d.expect('"'); err != nil {
			return phpValue{}, err
		}
		if n < 0 || int64(len(d.data)-d.pos) < n {
			return phpValue{}, d.errorf("string length %d out of range", errors.Safe(n))
		}
		s := d.data[d.pos : d.pos+int(n) : d.pos+int(n)]
		d.pos += int(n)
		if err := d.expect('"'); err != nil {
			return phpValue{}, err
		}
		return phpValue{kind: phpString, s: s}, d.expect(';')
	case 'a':
		if depth >= maxPHPDepth {
			return phpValue{}, d.errorf("arrays nested too deeply")
		}
		n, err := d.readInt(':')
		if err != nil {
			return phpValue{}, err
		}
		// Every entry occupies several bytes, so the remaining input bounds
		// the count.
		if n < 0 || n > int64(len(d.data)-d.pos) {
			return phpValue{}, d.errorf("array length %d out of range", errors.Safe(n))
		}
		if err := d.expect('{'); err != nil {
			return phpValue{}, err
		}
		v := phpValue{kind: phpArray, arr: make([]phpEntry, 0, n)}
		for i := int64(0); i < n; i++ {
			k, err := d.value(depth + 1)
			if err != nil {
				return phpValue{}, err
			}
			if k.kind != phpInt && k.kind != phpString {
				return phpValue{}, d.errorf("array key of type %s", k.kind)
			}
			val, err := d.value(depth + 1)
			if err != nil {
				return phpValue{}, err
			}
			v.arr = append(v.arr, phpEntry{key: k, val: val})
		}
		return v, d.expect('}')
	default:
		return phpValue{}, d.errorf("unsupported value tag %q", errors.Safe(string(tag)))
	}
}

func unmarshalPHP(data []byte) (Payload, error) {
	d := phpDecoder{data: data}
	v, err := d.value(0)
	if err != nil {
		return Payload{}, err
	}
	if d.pos != len(data) {
		return Payload{}, d.errorf("%d trailing bytes", errors.Safe(len(data)-d.pos))
	}
	if v.falsy() {
		return Payload{Kind: KindEmpty}, nil
	}
	if v.kind != phpArray {
		return Payload{}, corruptf("php: top-level value is a %s", v.kind)
	}

	var p Payload
	if dv, ok := v.lookup(keyDefault); ok {
		if p.Default, ok = dv.asInt(); !ok {
			return Payload{}, corruptf("php: default key is a %s", dv.kind)
		}
		p.HasDefault = true
	}
	diffs, haveDiffs := v.lookup(keyDiffs)
	if haveDiffs {
		if p.Diffs, err = phpDiffs(diffs); err != nil {
			return Payload{}, err
		}
	}
	if bv, ok := v.lookup(keyBase); ok {
		if bv.kind != phpString {
			return Payload{}, corruptf("php: base is a %s", bv.kind)
		}
		p.Kind = KindLegacy
		p.Base = bv.s
		return p, nil
	}
	if !haveDiffs {
		return Payload{}, corruptf("php: missing %q", keyDiffs)
	}
	mv, ok := v.lookup(keyMap)
	if !ok {
		return Payload{}, corruptf("php: missing %q", keyMap)
	}
	switch mv.kind {
	case phpString:
		p.Map = string(mv.s)
	case phpInt:
		// A single-entry map can round-trip through PHP as an integer.
		p.Map = strconv.FormatInt(mv.i, 10)
	default:
		return Payload{}, corruptf("php: map is a %s", mv.kind)
	}
	p.Kind = KindModern
	return p, nil
}

// phpDiffs converts the diffs array into a slice indexed by its integer keys,
// which must be exactly 0 through n-1 in any order.
func phpDiffs(v phpValue) ([][]byte, error) {
	if v.kind != phpArray {
		if v.falsy() {
			return nil, nil
		}
		return nil, corruptf("php: diffs is a %s", v.kind)
	}
	type indexed struct {
		idx int
		d   []byte
	}
	entries := make([]indexed, len(v.arr))
	for i, e := range v.arr {
		idx, ok := e.key.asInt()
		if !ok {
			return nil, corruptf("php: diff key %q is not an integer", e.key.s)
		}
		if e.val.kind != phpString {
			return nil, corruptf("php: diff %d is a %s", errors.Safe(idx), e.val.kind)
		}
		entries[i] = indexed{idx: idx, d: e.val.s}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].idx < entries[j].idx })
	diffs := make([][]byte, len(entries))
	for i := range entries {
		if entries[i].idx != i {
			return nil, corruptf("php: diff keys are not contiguous from 0 (found %d at position %d)",
				errors.Safe(entries[i].idx), errors.Safe(i))
		}
		diffs[i] = entries[i].d
	}
	return diffs, nil
}
