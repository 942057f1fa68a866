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

	"golang.org/x/sync/errgroup"

	"github.com/pubky-x-project/pkhost/crypto"
	"github.com/pubky-x-project/pkhost/internal/metrics"
	"github.com/pubky-x-project/pkhost/pkherr"
)

// PublisherConfig tunes the publish algorithm.
type PublisherConfig struct {
	MinDHTStorers   int           // default 10
	PublishDeadline time.Duration // default 30s
}

// DefaultPublisherConfig returns the default tuning.
func DefaultPublisherConfig() PublisherConfig {
	return PublisherConfig{MinDHTStorers: 10, PublishDeadline: 30 * time.Second}
}

// Publisher implements the publish side of the PKDNS actor: monotonic seq
// selection, domain-separated signing, and parallel fan-out to the DHT
// and every relay with a durability quorum.
type Publisher struct {
	cfg      PublisherConfig
	dht      MutableStore
	relays   []Relay
	resolver *Resolver

	mu       sync.Mutex
	lastSeq  map[crypto.PublicKey]uint64
	nowUnix  func() int64
}

// NewPublisher builds a Publisher over dht and relays, consulting
// resolver to learn the previous seq for a key before publishing.
func NewPublisher(dht MutableStore, relays []Relay, resolver *Resolver, cfg PublisherConfig) *Publisher {
	if cfg.MinDHTStorers <= 0 {
		cfg.MinDHTStorers = DefaultPublisherConfig().MinDHTStorers
	}
	if cfg.PublishDeadline <= 0 {
		cfg.PublishDeadline = DefaultPublisherConfig().PublishDeadline
	}
	return &Publisher{
		cfg:      cfg,
		dht:      dht,
		relays:   relays,
		resolver: resolver,
		lastSeq:  make(map[crypto.PublicKey]uint64),
		nowUnix:  func() int64 { return time.Now().Unix() },
	}
}

// Publish signs value under kp with the next monotonic seq and fans it
// out to the DHT and every relay. It waits until every target has
// answered or cfg.PublishDeadline elapses, then succeeds if any relay
// acked or the DHT reported at least cfg.MinDHTStorers storers.
func (p *Publisher) Publish(ctx context.Context, kp crypto.Keypair, value []byte) (SignedRecord, error) {
	seq := p.nextSeq(ctx, kp.Public())

	rec, err := Sign(kp, seq, value)
	if err != nil {
		return SignedRecord{}, err
	}

	if err := p.fanOut(ctx, rec); err != nil {
		return rec, err
	}
	p.recordSeq(kp.Public(), seq)
	return rec, nil
}

// PublishSigned re-announces an already-signed record without
// resigning it. This is how the homeserver keeps a tenant user's own
// PKDNS record alive on the DHT/relays: the user signs the record
// client-side (the homeserver never holds their private key), hands
// the signed bytes to the server once, and every subsequent republish
// interval just re-announces the identical (seq, v, sig) tuple; BEP-44
// re-announcement does not require a new signature unless the value
// itself changes.
func (p *Publisher) PublishSigned(ctx context.Context, rec SignedRecord) (SignedRecord, error) {
	if err := p.fanOut(ctx, rec); err != nil {
		return rec, err
	}
	p.recordSeq(rec.PublicKey, rec.Seq)
	return rec, nil
}

func (p *Publisher) fanOut(ctx context.Context, rec SignedRecord) error {
	start := time.Now()
	defer func() {
		metrics.PublishDuration.Observe(time.Since(start).Seconds())
	}()

	pctx, cancel := context.WithTimeout(ctx, p.cfg.PublishDeadline)
	defer cancel()

	var relayAcked bool
	var dhtStorers int
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(pctx)

	g.Go(func() error {
		if p.dht == nil {
			return nil
		}
		storers, err := p.dht.PutMutable(gctx, rec)
		if err != nil {
			return nil
		}
		mu.Lock()
		dhtStorers = storers
		mu.Unlock()
		return nil
	})

	for _, relay := range p.relays {
		relay := relay
		g.Go(func() error {
			if err := relay.Put(gctx, rec); err != nil {
				return nil
			}
			mu.Lock()
			relayAcked = true
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()

	metrics.DHTStorersObserved.Observe(float64(dhtStorers))
	if !relayAcked && dhtStorers < p.cfg.MinDHTStorers {
		metrics.PublishAttempts.WithLabelValues("insufficient_durability").Inc()
		return pkherr.NewInsufficientDurability(dhtStorers)
	}
	metrics.PublishAttempts.WithLabelValues("success").Inc()
	return nil
}

func (p *Publisher) nextSeq(ctx context.Context, pk crypto.PublicKey) uint64 {
	p.mu.Lock()
	prev := p.lastSeq[pk]
	p.mu.Unlock()

	if p.resolver != nil {
		if rec, err := p.resolver.Resolve(ctx, pk); err == nil && rec != nil && rec.Seq > prev {
			prev = rec.Seq
		}
	}

	now := uint64(p.nowUnix())
	if now > prev {
		return now + 1
	}
	return prev + 1
}

func (p *Publisher) recordSeq(pk crypto.PublicKey, seq uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastSeq[pk] = seq
}
