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

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/subtle"

	"github.com/pubky-x-project/pkhost/crypto/zbase32"
)

// PublicKey is a 32-byte Ed25519 verifying key. Canonical textual form is
// z-base-32; equality is byte equality.
type PublicKey [PublicKeySize]byte

// String returns the z-base-32 encoding of the key.
func (pk PublicKey) String() string {
	return zbase32.Encode(pk[:])
}

// ParsePublicKey decodes a z-base-32 string into a PublicKey.
func ParsePublicKey(s string) (PublicKey, error) {
	var pk PublicKey
	b, err := zbase32.Decode(s)
	if err != nil {
		return pk, ErrInvalidPublicKey
	}
	if len(b) != PublicKeySize {
		return pk, ErrInvalidPublicKey
	}
	copy(pk[:], b)
	return pk, nil
}

// Keypair owns a 32-byte Ed25519 signing seed and derives its public key
// on demand. A Keypair is exclusively owned by whoever holds it; it is
// never serialized once the holder drops it.
type Keypair struct {
	seed    [SeedSize]byte
	private ed25519.PrivateKey
	public  PublicKey
}

// GenerateKeypair creates a new random Ed25519 keypair.
func GenerateKeypair() (Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Keypair{}, err
	}
	return keypairFromPrivate(priv, pub), nil
}

// KeypairFromSeed deterministically derives a Keypair from a 32-byte seed
// (e.g. the contents of storage_dir/keypair).
func KeypairFromSeed(seed []byte) (Keypair, error) {
	if len(seed) != SeedSize {
		return Keypair{}, ErrInvalidSeed
	}
	priv := ed25519.NewKeyFromSeed(seed)
	pub := priv.Public().(ed25519.PublicKey)
	return keypairFromPrivate(priv, pub), nil
}

func keypairFromPrivate(priv ed25519.PrivateKey, pub ed25519.PublicKey) Keypair {
	kp := Keypair{private: priv}
	copy(kp.seed[:], priv.Seed())
	copy(kp.public[:], pub)
	return kp
}

// Public returns the keypair's public key.
func (kp Keypair) Public() PublicKey { return kp.public }

// Seed returns the 32-byte signing seed. Callers persisting this to disk
// must write it with 0600 permissions (the storage_dir/keypair layout).
func (kp Keypair) Seed() [SeedSize]byte { return kp.seed }

// Sign produces a raw Ed25519 signature over msg with no domain
// separation. Higher layers MUST use SignWithTag instead; Sign is the
// primitive SignWithTag is built on. The BEP-44 record signer in pkdns
// also goes through SignWithTag, under its own mutable-item tag.
func (kp Keypair) Sign(msg []byte) [SignatureSize]byte {
	var sig [SignatureSize]byte
	copy(sig[:], ed25519.Sign(kp.private, msg))
	return sig
}

// Verify checks a raw Ed25519 signature with no domain separation.
func Verify(pk PublicKey, msg []byte, sig [SignatureSize]byte) bool {
	return ed25519.Verify(ed25519.PublicKey(pk[:]), msg, sig[:])
}

// SignWithTag is the single code path that produces domain-separated
// signatures. Every higher-layer signer in this module (auth.Token,
// pkdns.Sign for BEP-44 records) MUST call this instead of touching ed25519.Sign
// directly, so that namespace mixing is structurally impossible.
func SignWithTag(kp Keypair, tag string, msg []byte) [SignatureSize]byte {
	return kp.Sign(taggedMessage(tag, msg))
}

// VerifyWithTag verifies a signature produced by SignWithTag. Verifiers
// MUST reconstruct the exact tagged message.
func VerifyWithTag(pk PublicKey, tag string, msg []byte, sig [SignatureSize]byte) bool {
	return Verify(pk, taggedMessage(tag, msg), sig)
}

func taggedMessage(tag string, msg []byte) []byte {
	out := make([]byte, 0, len(tag)+len(msg))
	out = append(out, tag...)
	out = append(out, msg...)
	return out
}

// ConstantTimeEqual compares two byte slices without leaking timing
// information, for use wherever signatures or hashes are compared.
func ConstantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
