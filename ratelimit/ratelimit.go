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

// Package ratelimit implements in-memory, per-key token-bucket rate
// limiting, keyed by whatever the caller chooses: client IP, session
// id, signup-code issuance. Buckets reset on process restart.
package ratelimit

import (
	"sync"
	"time"

	"github.com/pubky-x-project/pkhost/internal/metrics"
)

// Bucket is a single token bucket: it holds up to capacity tokens and
// refills at refillPerSecond tokens per second, lazily computed on each
// Allow call rather than via a background ticker.
type Bucket struct {
	capacity        float64
	refillPerSecond float64

	mu        sync.Mutex
	tokens    float64
	updatedAt time.Time
}

// NewBucket builds a Bucket starting full.
func NewBucket(capacity, refillPerSecond float64) *Bucket {
	return &Bucket{
		capacity:        capacity,
		refillPerSecond: refillPerSecond,
		tokens:          capacity,
		updatedAt:       time.Now(),
	}
}

// Allow reports whether a single token is available, consuming it if
// so.
func (b *Bucket) Allow() bool {
	return b.AllowN(time.Now(), 1)
}

// AllowN reports whether n tokens are available as of now, consuming
// them if so. Exposed for deterministic testing; Allow is the normal
// entry point.
func (b *Bucket) AllowN(now time.Time, n float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	elapsed := now.Sub(b.updatedAt).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * b.refillPerSecond
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
		b.updatedAt = now
	}

	if b.tokens < n {
		return false
	}
	b.tokens -= n
	return true
}

// idleEvictionFactor bounds how long an idle bucket is kept around
// before Limiter.evictIdleLocked reclaims it: once a bucket has had
// enough elapsed time to refill past capacity, its exact token count no
// longer matters and it can be safely dropped and recreated on next
// use.
const idleEvictionFactor = 4

// Limiter owns one Bucket per key, created lazily on first use and
// evicted once it has been idle long enough to have refilled well past
// capacity, the same "lazily created, mutex-guarded keyed map" shape
// the module uses for per-key locking elsewhere.
type Limiter struct {
	route           string
	capacity        float64
	refillPerSecond float64

	mu      sync.Mutex
	buckets map[string]*Bucket
	now     func() time.Time
}

// NewLimiter builds a Limiter whose buckets share capacity and
// refillPerSecond.
func NewLimiter(capacity, refillPerSecond float64) *Limiter {
	return &Limiter{
		capacity:        capacity,
		refillPerSecond: refillPerSecond,
		buckets:         make(map[string]*Bucket),
		now:             time.Now,
	}
}

// NewNamedLimiter builds a Limiter that reports rejections under route
// in the module metrics.
func NewNamedLimiter(route string, capacity, refillPerSecond float64) *Limiter {
	l := NewLimiter(capacity, refillPerSecond)
	l.route = route
	return l
}

// Allow reports whether key's bucket has a token available, consuming
// it if so.
func (l *Limiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = NewBucket(l.capacity, l.refillPerSecond)
		b.updatedAt = now
		l.buckets[key] = b
	}
	l.evictIdleLocked(now)
	l.mu.Unlock()

	allowed := b.AllowN(now, 1)
	if !allowed && l.route != "" {
		metrics.RateLimitRejections.WithLabelValues(l.route).Inc()
	}
	return allowed
}

func (l *Limiter) evictIdleLocked(now time.Time) {
	if l.refillPerSecond <= 0 {
		return
	}
	idleAfter := time.Duration(float64(time.Second) * idleEvictionFactor * l.capacity / l.refillPerSecond)
	for key, b := range l.buckets {
		b.mu.Lock()
		idle := now.Sub(b.updatedAt) > idleAfter
		b.mu.Unlock()
		if idle {
			delete(l.buckets, key)
		}
	}
}
