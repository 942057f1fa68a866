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

package pkdns

import (
	"context"
	"sync"
	"time"

	"github.com/pubky-x-project/pkhost/crypto"
	"github.com/pubky-x-project/pkhost/internal/logger"
)

// keyPhase is the per-key republish state:
// Idle -> Publishing -> {Published|Failed} -> Idle (sleep interval).
type keyPhase int

const (
	phaseIdle keyPhase = iota
	phasePublishing
	phasePublished
	phaseFailed
)

// ValueProvider returns the current value that should be published for
// a given key (e.g. the server's own _pubky payload, or a tenant's).
type ValueProvider func(ctx context.Context) ([]byte, error)

// SignedRecordProvider returns the current already-signed record that
// should be re-announced for a key the republisher does not hold the
// private key for (e.g. a tenant user's own PKDNS record).
type SignedRecordProvider func(ctx context.Context) (SignedRecord, error)

type keyState struct {
	pk             crypto.PublicKey
	kp             crypto.Keypair
	hasKeypair     bool
	provider       ValueProvider
	signedProvider SignedRecordProvider
	phase          keyPhase
	backoff        time.Duration
	publishing     bool // coalescing guard, mirrors a per-key "rotating" flag
}

// Republisher periodically republishes every enrolled key's record,
// coalescing concurrent publish attempts for the same key.
type Republisher struct {
	publisher *Publisher
	interval  time.Duration
	logger    logger.Logger

	mu   sync.Mutex
	keys map[crypto.PublicKey]*keyState

	inflight sync.WaitGroup
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewRepublisher builds a Republisher that uses publisher to push
// records and republishes every interval (default 4h).
func NewRepublisher(publisher *Publisher, interval time.Duration) *Republisher {
	if interval <= 0 {
		interval = 4 * time.Hour
	}
	return &Republisher{
		publisher: publisher,
		interval:  interval,
		logger:    logger.GetDefaultLogger(),
		keys:      make(map[crypto.PublicKey]*keyState),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Enroll registers kp for periodic republishing with the given value
// provider. Re-enrolling the same key replaces its provider.
func (r *Republisher) Enroll(kp crypto.Keypair, provider ValueProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[kp.Public()] = &keyState{pk: kp.Public(), kp: kp, hasKeypair: true, provider: provider, phase: phaseIdle}
}

// EnrollSigned registers pk for periodic re-announcement of an
// already-signed record, for keys whose private key the process never
// holds (tenant users enrolled at signup). Re-enrolling
// the same key replaces its provider.
func (r *Republisher) EnrollSigned(pk crypto.PublicKey, provider SignedRecordProvider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[pk] = &keyState{pk: pk, signedProvider: provider, phase: phaseIdle}
}

// Remove unenrolls a key (e.g. on account deletion).
func (r *Republisher) Remove(pk crypto.PublicKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.keys, pk)
}

// IsEnrolled reports whether pk is currently enrolled for republishing.
func (r *Republisher) IsEnrolled(pk crypto.PublicKey) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, enrolled := r.keys[pk]
	return enrolled
}

// Run starts the background scheduler loop. It returns when ctx is
// cancelled or Shutdown is called.
func (r *Republisher) Run(ctx context.Context) {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.republishAll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.republishAll(ctx)
		}
	}
}

// Shutdown requests the scheduler stop and waits up to grace for any
// in-flight publishes to finish cleanly. Only shutdown cancels a
// republish; per-request deadlines never do.
func (r *Republisher) Shutdown(ctx context.Context, grace time.Duration) {
	close(r.stopCh)

	drained := make(chan struct{})
	go func() {
		<-r.doneCh
		r.inflight.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-time.After(grace):
	case <-ctx.Done():
	}
}

func (r *Republisher) republishAll(ctx context.Context) {
	r.mu.Lock()
	states := make([]*keyState, 0, len(r.keys))
	for _, st := range r.keys {
		states = append(states, st)
	}
	r.mu.Unlock()

	for _, st := range states {
		r.republishOne(ctx, st)
	}
}

func (r *Republisher) republishOne(ctx context.Context, st *keyState) {
	r.mu.Lock()
	if st.publishing {
		r.mu.Unlock()
		return
	}
	st.publishing = true
	st.phase = phasePublishing
	r.mu.Unlock()

	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()

		var err error
		if st.hasKeypair {
			var value []byte
			value, err = st.provider(ctx)
			if err == nil {
				_, err = r.publisher.Publish(ctx, st.kp, value)
			}
		} else {
			var rec SignedRecord
			rec, err = st.signedProvider(ctx)
			if err == nil {
				_, err = r.publisher.PublishSigned(ctx, rec)
			}
		}

		r.mu.Lock()
		st.publishing = false
		if err == nil {
			st.phase = phaseIdle
			st.backoff = 0
			r.mu.Unlock()
			return
		}

		st.phase = phaseFailed
		if st.backoff == 0 {
			st.backoff = time.Second
		} else if st.backoff < r.interval {
			st.backoff *= 2
			if st.backoff > r.interval {
				st.backoff = r.interval
			}
		}
		backoff := st.backoff
		r.mu.Unlock()

		r.logger.Warn("pkdns republish failed",
			logger.String("public_key", st.pk.String()),
			logger.Error(err),
			logger.Duration("backoff", backoff))

		r.retryAfter(ctx, st, backoff)
	}()
}

// retryAfter re-enters Publishing for a failed key once its backoff
// elapses, unless the key was unenrolled or the scheduler stopped.
func (r *Republisher) retryAfter(ctx context.Context, st *keyState, backoff time.Duration) {
	timer := time.NewTimer(backoff)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-r.stopCh:
		return
	case <-ctx.Done():
		return
	}

	r.mu.Lock()
	_, enrolled := r.keys[st.pk]
	r.mu.Unlock()
	if !enrolled {
		return
	}
	r.republishOne(ctx, st)
}

// CountKeyOnDHT streams get_mutable responses and counts distinct
// responders for pk, for operational telemetry. MutableStore
// implementations report one candidate per responding node, so the
// response count is the responder count.
func CountKeyOnDHT(ctx context.Context, dht MutableStore, pk crypto.PublicKey) (int, error) {
	recs, err := dht.GetMutable(ctx, pk)
	if err != nil {
		return 0, err
	}
	return len(recs), nil
}
