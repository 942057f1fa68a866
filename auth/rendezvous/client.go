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
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/pubky-x-project/pkhost/auth"
	"github.com/pubky-x-project/pkhost/internal/metrics"
	"github.com/pubky-x-project/pkhost/pkherr"
)

// secretSize is the length in bytes of the ephemeral shared secret
// (csk). 32 bytes matches the module's other key material sizes and
// gives the relay-side channel id full Blake3 preimage resistance.
const secretSize = 32

// Poller is the minimal transport a Client needs against a relay: a
// long-polling GET of a channel's ciphertext. RelayStore satisfies
// this directly for in-process use; an HTTP-backed implementation
// satisfies it for a real relay.
type Poller interface {
	Get(ctx context.Context, cid [32]byte) ([]byte, error)
}

// Client is the application side of the AuthRequest rendezvous: it
// generates an ephemeral secret, builds the pubkyauth:// URL for the
// signer to scan, then long-polls the relay for the encrypted Token.
type Client struct {
	relay  string
	caps   []auth.Capability
	secret []byte
	poller Poller
}

// NewClient generates a fresh ephemeral secret and prepares a Client
// that will request caps from whichever signer scans the resulting
// URL. poller is how this client reaches the relay named by relayURL
// (typically an http.Client wrapper; tests may pass a RelayStore
// directly for in-process round-trips).
func NewClient(relayURL string, caps []auth.Capability, poller Poller) (*Client, error) {
	secret := make([]byte, secretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate rendezvous secret: %w", err)
	}
	metrics.AuthRequestsStarted.Inc()
	return &Client{relay: relayURL, caps: caps, secret: secret, poller: poller}, nil
}

// URL returns the pubkyauth:// URL this client's secret authorizes.
func (c *Client) URL() string {
	return BuildURL(c.relay, c.secret, c.caps)
}

// ChannelID returns the relay mailbox key derived from this client's
// secret.
func (c *Client) ChannelID() [32]byte {
	return ChannelID(c.secret)
}

// Await long-polls the relay's mailbox for this client's channel,
// decrypts the ciphertext that arrives, decodes it as a Token, and
// verifies it against now. It returns pkherr.AuthTimeout if ctx expires
// first.
func (c *Client) Await(ctx context.Context, now time.Time) (auth.Token, error) {
	start := time.Now()
	tok, err := c.await(ctx, now)
	metrics.AuthRequestDuration.Observe(time.Since(start).Seconds())
	metrics.AuthRequestsCompleted.WithLabelValues(awaitOutcome(err)).Inc()
	return tok, err
}

func (c *Client) await(ctx context.Context, now time.Time) (auth.Token, error) {
	ciphertext, err := c.poller.Get(ctx, c.ChannelID())
	if err != nil {
		return auth.Token{}, err
	}

	plaintext, err := Open(c.secret, ciphertext)
	if err != nil {
		return auth.Token{}, err
	}

	tok, err := auth.DecodeToken(plaintext)
	if err != nil {
		return auth.Token{}, err
	}
	if err := tok.Verify(now); err != nil {
		return auth.Token{}, err
	}
	return tok, nil
}

func awaitOutcome(err error) string {
	switch {
	case err == nil:
		return "delivered"
	case pkherr.Is(err, pkherr.AuthTimeout):
		return "timeout"
	default:
		return "invalid"
	}
}

// Deliver encrypts tok under secret and PUTs it into the mailbox for
// ChannelID(secret) on store, the signer-side counterpart to
// Client.Await. It is exported for in-process signer implementations
// and tests; an HTTP-backed signer performs the equivalent POST against
// the relay's wire handler instead.
func Deliver(store *RelayStore, secret []byte, tok auth.Token) error {
	plaintext, err := tok.MarshalBinary()
	if err != nil {
		return err
	}
	ciphertext, err := Seal(secret, plaintext)
	if err != nil {
		return err
	}
	if err := store.Put(ChannelID(secret), ciphertext); err != nil {
		return err
	}
	metrics.TokensIssued.WithLabelValues("rendezvous").Inc()
	return nil
}
