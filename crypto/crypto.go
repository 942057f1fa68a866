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

// Package crypto holds the module's sole cryptographic primitives:
// Ed25519 keypairs, Blake3 hashing, domain-separated signing, and
// z-base-32 public-key encoding (in the crypto/zbase32 subpackage).
package crypto

import "errors"

var (
	// ErrInvalidSignature names a signature that fails to verify. The
	// Verify and VerifyWithTag helpers report failure as false and do
	// not return it.
	ErrInvalidSignature = errors.New("crypto: invalid signature")
	// ErrInvalidPublicKey is returned when a public key is malformed
	// (wrong length, unparseable encoding).
	ErrInvalidPublicKey = errors.New("crypto: invalid public key")
	// ErrInvalidSeed is returned when a signing seed is the wrong length.
	ErrInvalidSeed = errors.New("crypto: invalid seed")
)

const (
	// PublicKeySize is the length in bytes of an Ed25519 public key.
	PublicKeySize = 32
	// SeedSize is the length in bytes of an Ed25519 signing seed.
	SeedSize = 32
	// SignatureSize is the length in bytes of an Ed25519 signature.
	SignatureSize = 64
	// HashSize is the length in bytes of a Blake3 digest as used here.
	HashSize = 32
)
