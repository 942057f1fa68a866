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
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/pubky-x-project/pkhost/crypto/zbase32"
	"github.com/pubky-x-project/pkhost/pkherr"
)

// mailboxTTL is how long an unclaimed ciphertext sits in the relay
// before it is evicted.
const mailboxTTL = 5 * time.Minute

type mailbox struct {
	ciphertext []byte
	expiresAt  time.Time
	delivered  chan struct{}
}

// RelayStore is the relay's in-memory mailbox: a signer app PUTs one
// ciphertext per channel id, and a client GETs (long-polling) the same
// channel id once. It holds at most one pending ciphertext per channel
// at a time; an AuthRequest channel is single-shot.
type RelayStore struct {
	mu    sync.Mutex
	boxes map[[32]byte]*mailbox
	now   func() time.Time
}

// NewRelayStore builds an empty RelayStore.
func NewRelayStore() *RelayStore {
	return &RelayStore{
		boxes: make(map[[32]byte]*mailbox),
		now:   time.Now,
	}
}

// Put drops ciphertext into cid's mailbox. It fails with a Conflict
// error if a still-live, undelivered ciphertext already occupies the
// slot; callers should treat this the way an HTTP 409 would be
// treated.
func (r *RelayStore) Put(cid [32]byte, ciphertext []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.evictExpiredLocked()

	if existing, ok := r.boxes[cid]; ok {
		select {
		case <-existing.delivered:
			// already claimed; the slot is free to reuse.
		default:
			return pkherr.New(pkherr.Conflict, "rendezvous channel already has a pending message")
		}
	}

	r.boxes[cid] = &mailbox{
		ciphertext: ciphertext,
		expiresAt:  r.now().Add(mailboxTTL),
		delivered:  make(chan struct{}),
	}
	return nil
}

// Get long-polls cid's mailbox until a ciphertext arrives or ctx is
// done, returning a pkherr.AuthTimeout error if ctx expires
// first. On success, the mailbox is marked delivered and freed.
func (r *RelayStore) Get(ctx context.Context, cid [32]byte) ([]byte, error) {
	const pollInterval = 200 * time.Millisecond

	for {
		if ct, ok := r.tryClaim(cid); ok {
			return ct, nil
		}

		select {
		case <-ctx.Done():
			return nil, pkherr.New(pkherr.AuthTimeout, "rendezvous channel timed out waiting for signer")
		case <-time.After(pollInterval):
		}
	}
}

func (r *RelayStore) tryClaim(cid [32]byte) ([]byte, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	box, ok := r.boxes[cid]
	if !ok || r.now().After(box.expiresAt) {
		return nil, false
	}
	select {
	case <-box.delivered:
		return nil, false
	default:
	}

	close(box.delivered)
	delete(r.boxes, cid)
	return box.ciphertext, true
}

func (r *RelayStore) evictExpiredLocked() {
	now := r.now()
	for cid, box := range r.boxes {
		if now.After(box.expiresAt) {
			delete(r.boxes, cid)
		}
	}
}

// Handler exposes the relay's GET/POST wire surface as a convenience;
// mounting it on a real server (path, middleware, TLS) is the
// application's job.
func (r *RelayStore) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /{cid}", r.handlePut)
	mux.HandleFunc("GET /{cid}", r.handleGet)
	return mux
}

func (r *RelayStore) handlePut(w http.ResponseWriter, req *http.Request) {
	cid, err := parseChannelID(req.PathValue("cid"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(req.Body)
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	if err := r.Put(cid, body); err != nil {
		if pkherr.Is(err, pkherr.Conflict) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (r *RelayStore) handleGet(w http.ResponseWriter, req *http.Request) {
	cid, err := parseChannelID(req.PathValue("cid"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ciphertext, err := r.Get(req.Context(), cid)
	if err != nil {
		if pkherr.Is(err, pkherr.AuthTimeout) {
			http.Error(w, err.Error(), http.StatusRequestTimeout)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(ciphertext)
}

func parseChannelID(s string) ([32]byte, error) {
	decoded, err := zbase32.Decode(s)
	if err != nil || len(decoded) != 32 {
		return [32]byte{}, pkherr.New(pkherr.BadPath, "malformed rendezvous channel id")
	}
	var cid [32]byte
	copy(cid[:], decoded)
	return cid, nil
}
