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

// Package legacy decodes session cookies minted by the predecessor
// JWT-based session format. It is read-only and migration-only: a
// deployment upgrading onto the capability-token session format uses
// this package solely to recognize a still-live legacy cookie and force
// its holder to re-authenticate through the new flow. Nothing in this
// module ever mints a JWT.
package legacy

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pubky-x-project/pkhost/pkherr"
)

// LegacyClaims is the subset of the predecessor format's JWT claims the
// migration path cares about: who the session belonged to and when it
// was minted.
type LegacyClaims struct {
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// DecodeLegacySessionJWT parses and verifies a session cookie minted by
// the predecessor JWT-based session format. It accepts only EdDSA
// (Ed25519)-signed tokens; any other signing method is rejected outright
// rather than silently accepted, since the predecessor only ever used
// EdDSA.
func DecodeLegacySessionJWT(token string, pk ed25519.PublicKey) (*LegacyClaims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}
		return pk, nil
	}, jwt.WithValidMethods([]string{"EdDSA"}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, pkherr.New(pkherr.TokenExpired, "legacy session token expired")
		}
		return nil, pkherr.Wrap(pkherr.BadToken, "decode legacy session token", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, pkherr.New(pkherr.BadToken, "legacy session token has no claims")
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, pkherr.New(pkherr.BadToken, "legacy session token missing sub claim")
	}

	out := &LegacyClaims{UserID: sub}
	if iat, err := parsed.Claims.GetIssuedAt(); err == nil && iat != nil {
		out.IssuedAt = iat.Time
	}
	if exp, err := parsed.Claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	return out, nil
}
