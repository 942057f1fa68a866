// Copyright (C) 2025 pubky-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

// Package zbase32 implements the human-friendly z-base-32 alphabet used
// to render public keys as text.
package zbase32

import "fmt"

const alphabet = "ybndrfg8ejkmcpqxot1uwisza345h769"

var decodeTable [256]int8

func init() {
	for i := range decodeTable {
		decodeTable[i] = -1
	}
	for i, c := range alphabet {
		decodeTable[byte(c)] = int8(i)
	}
}

// Encode returns the z-base-32 encoding of b, with no padding.
func Encode(b []byte) string {
	if len(b) == 0 {
		return ""
	}

	bitCount := len(b) * 8
	outLen := (bitCount + 4) / 5
	out := make([]byte, outLen)

	for i := 0; i < outLen; i++ {
		bitPos := i * 5
		bytePos := bitPos / 8
		bitOffset := bitPos % 8

		var val uint16
		val = uint16(b[bytePos]) << 8
		if bytePos+1 < len(b) {
			val |= uint16(b[bytePos+1])
		}

		val = (val >> (11 - uint16(bitOffset))) & 0x1f
		out[i] = alphabet[val]
	}

	return string(out)
}

// Decode parses a z-base-32 string back into bytes. It rejects characters
// outside the alphabet.
func Decode(s string) ([]byte, error) {
	if s == "" {
		return []byte{}, nil
	}

	bitCount := len(s) * 5
	outLen := bitCount / 8
	out := make([]byte, outLen)

	var buf uint32
	var bufBits int
	outPos := 0

	for i := 0; i < len(s); i++ {
		v := decodeTable[s[i]]
		if v < 0 {
			return nil, fmt.Errorf("zbase32: invalid character %q at position %d", s[i], i)
		}

		buf = (buf << 5) | uint32(v)
		bufBits += 5

		if bufBits >= 8 {
			bufBits -= 8
			out[outPos] = byte(buf >> uint(bufBits))
			outPos++
		}
	}

	return out[:outPos], nil
}
