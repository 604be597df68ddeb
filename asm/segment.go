// Copyright 2014-2018 Brett Vickers. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package asm

import "fmt"

// ReadImage parses a binary image previously produced by writeImage
// (spec §6.1), returning its segments and the startup PC recorded in
// the reserved 0xFFFE segment.
func ReadImage(data []byte) (segments []Segment, startupPC uint16, err error) {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xFF {
		return nil, 0, fmt.Errorf("missing image magic header")
	}
	count := int(data[2])<<8 | int(data[3])
	pos := 4
	for i := 0; i < count; i++ {
		if pos+4 > len(data) {
			return nil, 0, fmt.Errorf("truncated segment header")
		}
		start := uint16(data[pos])<<8 | uint16(data[pos+1])
		length := int(data[pos+2])<<8 | int(data[pos+3])
		pos += 4
		if pos+length > len(data) {
			return nil, 0, fmt.Errorf("truncated segment data")
		}
		words := make([]uint16, length/2)
		for j := range words {
			words[j] = uint16(data[pos])<<8 | uint16(data[pos+1])
			pos += 2
		}
		if start == 0xFFFE && len(words) == 1 {
			startupPC = words[0]
			continue
		}
		segments = append(segments, Segment{Start: start, Words: words})
	}
	return segments, startupPC, nil
}

// writeImage serializes a merged, sorted Segment list to the binary
// image format of spec §6.1: a magic header, segment count, then each
// segment's start address, byte length, and big-endian words.
func writeImage(segs []Segment) []byte {
	buf := make([]byte, 0, 4+len(segs)*4)
	buf = append(buf, 0xFF, 0xFF)
	buf = appendWord(buf, uint16(len(segs)))

	for _, s := range segs {
		buf = appendWord(buf, s.Start)
		buf = appendWord(buf, uint16(len(s.Words)*2))
		for _, w := range s.Words {
			buf = append(buf, wordToBytes(w)...)
		}
	}
	return buf
}

func appendWord(buf []byte, w uint16) []byte {
	return append(buf, wordToBytes(w)...)
}
