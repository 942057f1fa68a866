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
	"bytes"
	"container/list"
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pubky-x-project/pkhost/crypto"
	"github.com/pubky-x-project/pkhost/internal/metrics"
)

// ResolverConfig tunes the resolution algorithm.
type ResolverConfig struct {
	MaxRecordAge   time.Duration // default 1h
	NegativeCache  time.Duration // default 15s
	SoftDeadline   time.Duration // default 2s, after the first valid candidate
	CacheSize      int           // default 10000, LRU-evicted
}

// DefaultResolverConfig returns the default tuning.
func DefaultResolverConfig() ResolverConfig {
	return ResolverConfig{
		MaxRecordAge:  time.Hour,
		NegativeCache: 15 * time.Second,
		SoftDeadline:  2 * time.Second,
		CacheSize:     10000,
	}
}

type cacheEntry struct {
	record    *SignedRecord // nil means negative cache entry
	observed  time.Time
	key       crypto.PublicKey
	listElem  *list.Element
}

// Resolver implements the cached, fan-out resolution algorithm: per
// key, check the cache, else query the DHT and every relay
// concurrently, pick the highest-seq valid candidate, and cache it.
type Resolver struct {
	cfg     ResolverConfig
	dht     MutableStore
	relays  []Relay

	mu    sync.RWMutex
	cache map[crypto.PublicKey]*cacheEntry
	lru   *list.List
}

// NewResolver builds a Resolver over dht and relays.
func NewResolver(dht MutableStore, relays []Relay, cfg ResolverConfig) *Resolver {
	return &Resolver{
		cfg:    cfg,
		dht:    dht,
		relays: relays,
		cache:  make(map[crypto.PublicKey]*cacheEntry),
		lru:    list.New(),
	}
}

// Resolve returns the current record for pk, or nil if none is found.
func (r *Resolver) Resolve(ctx context.Context, pk crypto.PublicKey) (*SignedRecord, error) {
	if cached, ok := r.lookupCache(pk); ok {
		metrics.ResolveAttempts.WithLabelValues("cache", "hit").Inc()
		return cached, nil
	}

	start := time.Now()
	candidates := r.collectCandidates(ctx, pk)
	winner := pickWinner(pk, candidates)
	r.storeCache(pk, winner)

	metrics.ResolveDuration.WithLabelValues("network").Observe(time.Since(start).Seconds())
	if winner == nil {
		metrics.ResolveAttempts.WithLabelValues("network", "not_found").Inc()
	} else {
		metrics.ResolveAttempts.WithLabelValues("network", "hit").Inc()
	}
	return winner, nil
}

func (r *Resolver) lookupCache(pk crypto.PublicKey) (*SignedRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.cache[pk]
	if !ok {
		return nil, false
	}

	age := time.Since(e.observed)
	if e.record == nil {
		if age < r.cfg.NegativeCache {
			return nil, true
		}
		return nil, false
	}
	if age < r.cfg.MaxRecordAge {
		return e.record, true
	}
	return nil, false
}

func (r *Resolver) storeCache(pk crypto.PublicKey, rec *SignedRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.cache[pk]; ok {
		r.lru.Remove(existing.listElem)
	}

	entry := &cacheEntry{record: rec, observed: time.Now(), key: pk}
	entry.listElem = r.lru.PushFront(entry)
	r.cache[pk] = entry

	for r.lru.Len() > r.cfg.CacheSize {
		back := r.lru.Back()
		if back == nil {
			break
		}
		r.lru.Remove(back)
		delete(r.cache, back.Value.(*cacheEntry).key)
	}
}

// collectCandidates fans out to the DHT and every relay concurrently,
// stopping either when all transports have completed or a soft deadline
// elapses after the first valid candidate arrives.
func (r *Resolver) collectCandidates(ctx context.Context, pk crypto.PublicKey) []SignedRecord {
	fanCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan SignedRecord, 1+len(r.relays))
	g, gctx := errgroup.WithContext(fanCtx)

	send := func(rec SignedRecord) bool {
		select {
		case results <- rec:
			return true
		case <-gctx.Done():
			return false
		}
	}

	g.Go(func() error {
		if r.dht == nil {
			return nil
		}
		recs, err := r.dht.GetMutable(gctx, pk)
		if err != nil {
			return nil // transport errors don't fail the whole resolve
		}
		for _, rec := range recs {
			if !send(rec) {
				return nil
			}
		}
		return nil
	})

	for _, relay := range r.relays {
		relay := relay
		g.Go(func() error {
			rec, err := relay.Get(gctx, pk)
			if err != nil || rec == nil {
				return nil
			}
			send(*rec)
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	var candidates []SignedRecord
	var deadline <-chan time.Time

	for {
		select {
		case rec := <-results:
			candidates = append(candidates, rec)
			if deadline == nil && rec.PublicKey == pk && rec.Verify() {
				deadline = time.After(r.cfg.SoftDeadline)
			}
		case <-done:
			// Drain anything already buffered, then stop.
			for {
				select {
				case rec := <-results:
					candidates = append(candidates, rec)
				default:
					return candidates
				}
			}
		case <-deadline:
			return candidates
		case <-ctx.Done():
			return candidates
		}
	}
}

// pickWinner discards invalid candidates and returns the highest-seq
// survivor, ties broken by byte-lexicographic value.
func pickWinner(pk crypto.PublicKey, candidates []SignedRecord) *SignedRecord {
	var winner *SignedRecord
	for i := range candidates {
		c := candidates[i]
		if c.PublicKey != pk || !c.Verify() {
			continue
		}
		if winner == nil {
			winner = &c
			continue
		}
		if c.Seq > winner.Seq || (c.Seq == winner.Seq && bytes.Compare(c.Value, winner.Value) > 0) {
			winner = &c
		}
	}
	return winner
}
