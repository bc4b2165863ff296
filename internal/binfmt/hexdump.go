// Copyright 2024 The LevelDB-Go and Pebble Authors. All rights reserved. Use
// of this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package binfmt

import (
	"fmt"
	"io"
	"strconv"
)

// FHexDump writes a hex dump of the data to w, one line of width bytes at a
// time, each prefixed by its hexadecimal offset.
func FHexDump(w io.Writer, data []byte, width int) {
	offsetFormatStr := "%0" + strconv.Itoa(max(4, len(strconv.FormatInt(int64(len(data)), 16)))) + "x: "
	for i := 0; i < len(data); i += width {
		fmt.Fprintf(w, offsetFormatStr, i)
		for j := 0; j < width; j++ {
			if j%4 == 0 {
				fmt.Fprint(w, " ")
			}
			if i+j >= len(data) {
				fmt.Fprint(w, "  ")
			} else {
				fmt.Fprintf(w, "%02x", data[i+j])
			}
		}
		end := min(i+width, len(data))
		fmt.Fprintf(w, " | %s\n", asciiChars(data[i:end]))
	}
}
