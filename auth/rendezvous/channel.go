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

package rendezvous

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/pubky-x-project/pkhost/auth"
	"github.com/pubky-x-project/pkhost/crypto"
)

// ChannelID is the relay mailbox key both sides derive independently
// from the shared secret, so the relay can match a signer's drop to a
// client's poll without ever seeing the secret itself.
func ChannelID(secretPublic []byte) [32]byte {
	return crypto.Blake3(secretPublic)
}

// BuildURL builds the pubkyauth:// URL a client displays (typically as
// a QR code) for a signer app to scan. relay is the base relay URL the
// signer should POST its encrypted response to; secret is the raw
// ephemeral shared secret (never the channel id); caps are the
// capabilities the client is requesting.
func BuildURL(relay string, secret []byte, caps []auth.Capability) string {
	v := url.Values{}
	v.Set("relay", relay)
	v.Set("secret", base64.RawURLEncoding.EncodeToString(secret))
	v.Set("caps", encodeCaps(caps))
	return "pubkyauth://?" + v.Encode()
}

// ParseURL parses a pubkyauth:// URL back into its relay, secret, and
// requested capabilities, the inverse of BuildURL.
func ParseURL(raw string) (relay string, secret []byte, caps []auth.Capability, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", nil, nil, fmt.Errorf("parse pubkyauth url: %w", err)
	}
	q := u.Query()

	relay = q.Get("relay")
	if relay == "" {
		return "", nil, nil, fmt.Errorf("pubkyauth url missing relay")
	}

	secret, err = base64.RawURLEncoding.DecodeString(q.Get("secret"))
	if err != nil {
		return "", nil, nil, fmt.Errorf("decode secret: %w", err)
	}

	caps, err = decodeCaps(q.Get("caps"))
	if err != nil {
		return "", nil, nil, fmt.Errorf("decode caps: %w", err)
	}
	return relay, secret, caps, nil
}

// encodeCaps renders capabilities as "scope:actions,scope:actions",
// where actions is the decimal ActionSet bitmask.
func encodeCaps(caps []auth.Capability) string {
	parts := make([]string, len(caps))
	for i, c := range caps {
		parts[i] = fmt.Sprintf("%s:%d", c.Scope, c.Actions)
	}
	return strings.Join(parts, ",")
}

func decodeCaps(s string) ([]auth.Capability, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]auth.Capability, 0, len(parts))
	for _, p := range parts {
		scope, actionsStr, ok := strings.Cut(p, ":")
		if !ok {
			return nil, fmt.Errorf("malformed capability %q", p)
		}
		actions, err := strconv.ParseUint(actionsStr, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("malformed capability actions %q: %w", p, err)
		}
		out = append(out, auth.Capability{Scope: scope, Actions: auth.ActionSet(actions)})
	}
	return out, nil
}
