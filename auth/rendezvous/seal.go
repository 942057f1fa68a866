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

// Package rendezvous implements the AuthRequest relay protocol: a
// client displays a pubkyauth:// URL carrying an ephemeral shared
// secret, a signer app fetches it (e.g. via QR code), encrypts the
// issued capability Token under a key derived from that secret, and
// drops the ciphertext at a relay keyed by a channel id derived from
// the secret. The client long-polls the same channel and decrypts.
//
// The relay never sees the secret or the plaintext token, only the
// channel id and ciphertext.
package rendezvous

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/pubky-x-project/pkhost/pkherr"
)

const hkdfInfo = "pubky-auth-rendezvous/v1"

// deriveKey expands the raw shared secret into a ChaCha20-Poly1305 key.
// There is exactly one derived key per channel: the secret already
// binds signer and client, and the AEAD tag supplies authentication,
// so no separate signing key is needed.
func deriveKey(secret []byte) ([]byte, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	h := hkdf.New(sha256.New, secret, nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(h, key); err != nil {
		return nil, fmt.Errorf("derive rendezvous key: %w", err)
	}
	return key, nil
}

// Seal encrypts plaintext under a key derived from secret. Output
// format is nonce || ciphertext.
func Seal(secret, plaintext []byte) ([]byte, error) {
	key, err := deriveKey(secret)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("new aead: %w", err)
	}

	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	ciphertext := aead.Seal(nil, nonce, plaintext, nil)
	out := make([]byte, len(nonce)+len(ciphertext))
	copy(out, nonce)
	copy(out[len(nonce):], ciphertext)
	return out, nil
}

// Open decrypts data produced by Seal under the same secret.
func Open(secret, data []byte) ([]byte, error) {
	key, err := deriveKey(secret)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("new aead: %w", err)
	}

	if len(data) < chacha20poly1305.NonceSize {
		return nil, pkherr.New(pkherr.BadToken, "rendezvous payload too short")
	}
	nonce, ciphertext := data[:chacha20poly1305.NonceSize], data[chacha20poly1305.NonceSize:]

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, pkherr.Wrap(pkherr.InvalidSignature, "open rendezvous payload", err)
	}
	return plaintext, nil
}
