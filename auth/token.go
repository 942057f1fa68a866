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

// Package auth implements the capability-token protocol: signing and
// verifying AuthTokens, the signup/signin flow, and session
// authentication with longest-prefix capability matching.
package auth

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/pubky-x-project/pkhost/crypto"
	"github.com/pubky-x-project/pkhost/internal/metrics"
	"github.com/pubky-x-project/pkhost/pkherr"
)

// Namespace is the domain-separation tag every AuthToken is signed
// under.
const Namespace = "PUBKY:AUTH"

// TokenVersion is the current wire version of Token.
const TokenVersion = 1

// ClockSkewWindow bounds how far a token's timestamp may drift from
// the verifier's clock.
const ClockSkewWindow = 45 * time.Second

// ActionSet is a bitmask of the actions a Capability grants.
type ActionSet uint8

const (
	ActionRead  ActionSet = 1 << 0
	ActionWrite ActionSet = 1 << 1
)

// Has reports whether a includes action.
func (a ActionSet) Has(action ActionSet) bool {
	return a&action == action
}

// Capability grants actions over every path with the given scope as a
// prefix. Scope must be an absolute, namespace-rooted path; the action
// set must not be empty.
type Capability struct {
	Scope   string
	Actions ActionSet
}

func (c Capability) wellFormed() bool {
	if !strings.HasPrefix(c.Scope, "/") {
		return false
	}
	return c.Actions != 0
}

// Token is a short-lived, domain-separated signed claim of capabilities
// by a public key.
type Token struct {
	Namespace    string
	Version      uint8
	TimestampUS  uint64
	PublicKey    crypto.PublicKey
	Capabilities []Capability
	Sig          [crypto.SignatureSize]byte
}

// New builds and signs a Token over caps, timestamped now, under kp.
func New(kp crypto.Keypair, caps []Capability, now time.Time) Token {
	t := Token{
		Namespace:    Namespace,
		Version:      TokenVersion,
		TimestampUS:  uint64(now.UnixMicro()),
		PublicKey:    kp.Public(),
		Capabilities: caps,
	}
	t.Sig = crypto.SignWithTag(kp, Namespace, t.signedBytes())
	return t
}

// signedBytes is the exact byte sequence a Token's signature covers:
// version, timestamp, public key, then each capability's scope length,
// scope bytes, and action byte, in order.
func (t Token) signedBytes() []byte {
	buf := make([]byte, 0, 1+8+crypto.PublicKeySize+len(t.Capabilities)*16)
	buf = append(buf, t.Version)

	var tsBuf [8]byte
	binary.BigEndian.PutUint64(tsBuf[:], t.TimestampUS)
	buf = append(buf, tsBuf[:]...)

	buf = append(buf, t.PublicKey[:]...)

	for _, c := range t.Capabilities {
		var lenBuf [2]byte
		binary.BigEndian.PutUint16(lenBuf[:], uint16(len(c.Scope)))
		buf = append(buf, lenBuf[:]...)
		buf = append(buf, c.Scope...)
		buf = append(buf, byte(c.Actions))
	}
	return buf
}

// Verify checks namespace, version, signature, the clock-skew window
// around now, and that every capability is well-formed.
func (t Token) Verify(now time.Time) error {
	start := time.Now()
	err := t.verify(now)
	metrics.TokenVerifyDuration.Observe(time.Since(start).Seconds())
	metrics.TokenVerifications.WithLabelValues(verifyOutcome(err)).Inc()
	return err
}

func (t Token) verify(now time.Time) error {
	if t.Namespace != Namespace {
		return pkherr.New(pkherr.BadToken, "unexpected token namespace")
	}
	if t.Version != TokenVersion {
		return pkherr.New(pkherr.BadToken, "unsupported token version")
	}
	if len(t.Capabilities) == 0 {
		return pkherr.New(pkherr.BadCapability, "token must claim at least one capability")
	}
	for _, c := range t.Capabilities {
		if !c.wellFormed() {
			return pkherr.New(pkherr.BadCapability, "malformed capability").
				WithDetails("scope", c.Scope)
		}
	}

	ts := time.UnixMicro(int64(t.TimestampUS))
	skew := now.Sub(ts)
	if skew < 0 {
		skew = -skew
	}
	if skew > ClockSkewWindow {
		return pkherr.New(pkherr.TokenExpired, "token timestamp outside clock-skew window")
	}

	if !crypto.VerifyWithTag(t.PublicKey, Namespace, t.signedBytes(), t.Sig) {
		return pkherr.New(pkherr.InvalidSignature, "token signature verification failed")
	}
	return nil
}

func verifyOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case pkherr.Is(err, pkherr.TokenExpired):
		return "expired"
	case pkherr.Is(err, pkherr.InvalidSignature):
		return "invalid_signature"
	default:
		return "bad_token"
	}
}

// MarshalBinary encodes t as the wire bytes transmitted between a
// signer and a waiting client over the AuthRequest rendezvous: the
// same signed-bytes layout Verify checks, with the signature appended.
func (t Token) MarshalBinary() ([]byte, error) {
	buf := t.signedBytes()
	buf = append(buf, t.Sig[:]...)
	return buf, nil
}

// DecodeToken parses bytes produced by Token.MarshalBinary. It does
// not itself verify the signature; callers must call Verify.
func DecodeToken(data []byte) (Token, error) {
	const headerLen = 1 + 8 + crypto.PublicKeySize
	if len(data) < headerLen+crypto.SignatureSize {
		return Token{}, pkherr.New(pkherr.BadToken, "token too short")
	}

	t := Token{Namespace: Namespace, Version: data[0]}
	t.TimestampUS = binary.BigEndian.Uint64(data[1:9])
	copy(t.PublicKey[:], data[9:headerLen])

	body := data[headerLen : len(data)-crypto.SignatureSize]
	copy(t.Sig[:], data[len(data)-crypto.SignatureSize:])

	for len(body) > 0 {
		if len(body) < 2 {
			return Token{}, pkherr.New(pkherr.BadToken, "truncated capability length")
		}
		scopeLen := int(binary.BigEndian.Uint16(body[:2]))
		body = body[2:]
		if len(body) < scopeLen+1 {
			return Token{}, pkherr.New(pkherr.BadToken, "truncated capability")
		}
		scope := string(body[:scopeLen])
		actions := ActionSet(body[scopeLen])
		t.Capabilities = append(t.Capabilities, Capability{Scope: scope, Actions: actions})
		body = body[scopeLen+1:]
	}

	return t, nil
}

// RootCapability reports whether caps includes a capability scoped to
// the namespace root ("/") with write access, the claim signup
// requires.
func RootCapability(caps []Capability) bool {
	for _, c := range caps {
		if c.Scope == "/" && c.Actions.Has(ActionWrite) {
			return true
		}
	}
	return false
}
