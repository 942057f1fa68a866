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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PublishAttempts tracks pkarr record republish attempts against the DHT.
	PublishAttempts = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pkdns",
			Name:      "publish_attempts_total",
			Help:      "Total number of DHT publish attempts for a pkarr record",
		},
		[]string{"outcome"}, // success, insufficient_durability, dht_unavailable
	)

	// PublishDuration tracks how long a DHT publish round takes.
	PublishDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pkdns",
			Name:      "publish_duration_seconds",
			Help:      "DHT publish round duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~205s
		},
	)

	// DHTStorersObserved tracks how many DHT nodes acknowledged storing a record.
	DHTStorersObserved = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pkdns",
			Name:      "dht_storers_observed",
			Help:      "Number of DHT nodes observed storing a published record",
			Buckets:   prometheus.LinearBuckets(0, 2, 15), // 0..28
		},
	)

	// ResolveAttempts tracks resolution lookups by source.
	ResolveAttempts = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pkdns",
			Name:      "resolve_attempts_total",
			Help:      "Total number of public key resolution attempts",
		},
		[]string{"source", "outcome"}, // cache/dht/relay, hit/miss/stale/not_found
	)

	// ResolveDuration tracks resolution latency.
	ResolveDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pkdns",
			Name:      "resolve_duration_seconds",
			Help:      "Public key resolution duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		},
		[]string{"source"},
	)
)
