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

// Package relay implements pkdns.Relay over plain net/http, the PKARR
// relay wire shape (GET/PUT /{z32pk} carrying the raw mutable-item body).
package relay

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pubky-x-project/pkhost/crypto"
	"github.com/pubky-x-project/pkhost/pkdns"
	"github.com/pubky-x-project/pkhost/pkherr"
)

// HTTPRelay is a pkdns.Relay backed by a single PKARR relay endpoint.
type HTTPRelay struct {
	baseURL string
	client  *http.Client
}

// New builds an HTTPRelay against baseURL (e.g. "https://relay.example.com")
// with a bounded per-request timeout.
func New(baseURL string, timeout time.Duration) *HTTPRelay {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPRelay{baseURL: baseURL, client: &http.Client{Timeout: timeout}}
}

// Get fetches the raw mutable-item body for pk and decodes it.
func (r *HTTPRelay) Get(ctx context.Context, pk crypto.PublicKey) (*pkdns.SignedRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url(pk), nil)
	if err != nil {
		return nil, pkherr.Wrap(pkherr.RelayUnavailable, "building relay request", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, pkherr.Wrap(pkherr.RelayUnavailable, "relay unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, pkherr.New(pkherr.RelayUnavailable, fmt.Sprintf("relay returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pkherr.Wrap(pkherr.RelayUnavailable, "reading relay response", err)
	}

	rec, err := pkdns.DecodeSignedRecord(body)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Put uploads rec's raw mutable-item body to the relay.
func (r *HTTPRelay) Put(ctx context.Context, rec pkdns.SignedRecord) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, r.url(rec.PublicKey), bytes.NewReader(rec.Encode()))
	if err != nil {
		return pkherr.Wrap(pkherr.RelayUnavailable, "building relay request", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return pkherr.Wrap(pkherr.RelayUnavailable, "relay unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return pkherr.New(pkherr.RelayUnavailable, fmt.Sprintf("relay rejected put with status %d", resp.StatusCode))
	}
	return nil
}

func (r *HTTPRelay) url(pk crypto.PublicKey) string {
	return r.baseURL + "/" + pk.String()
}
