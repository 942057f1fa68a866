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

package crypto

import "lukechampine.com/blake3"

// Blake3 returns the 32-byte Blake3 digest of b.
func Blake3(b []byte) [HashSize]byte {
	var out [HashSize]byte
	sum := blake3.Sum256(b)
	copy(out[:], sum[:])
	return out
}

// Hasher streams Blake3 digest computation for large/chunked writes (the
// blob and entry packages hash content incrementally as it streams
// through, rather than buffering the whole body).
type Hasher struct {
	h *blake3.Hasher
}

// NewHasher returns a streaming Blake3 hasher.
func NewHasher() *Hasher {
	return &Hasher{h: blake3.New(HashSize, nil)}
}

// Write implements io.Writer.
func (h *Hasher) Write(p []byte) (int, error) {
	return h.h.Write(p)
}

// Sum returns the current 32-byte digest without mutating hasher state.
func (h *Hasher) Sum() [HashSize]byte {
	var out [HashSize]byte
	copy(out[:], h.h.Sum(nil))
	return out
}
