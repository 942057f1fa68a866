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
	// TokensIssued tracks capability tokens minted by signup/signin.
	TokensIssued = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "tokens_issued_total",
			Help:      "Total number of capability tokens issued",
		},
		[]string{"flow"}, // signup, signin, rendezvous
	)

	// TokenVerifications tracks every Token.Verify call by outcome.
	TokenVerifications = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "token_verifications_total",
			Help:      "Total number of capability token verifications by outcome",
		},
		[]string{"outcome"}, // ok, expired, invalid_signature, bad_token, insufficient_capability
	)

	// TokenVerifyDuration tracks how long signature verification takes.
	TokenVerifyDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "token_verify_duration_seconds",
			Help:      "Capability token verification duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 12), // 10µs to 20ms
		},
	)

	// AuthRequestsStarted tracks rendezvous AuthRequest flows a client began.
	AuthRequestsStarted = promauto.With(Registry).NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "requests_started_total",
			Help:      "Total number of AuthRequest rendezvous flows started",
		},
	)

	// AuthRequestsCompleted tracks rendezvous AuthRequest flows by outcome.
	AuthRequestsCompleted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "requests_completed_total",
			Help:      "Total number of AuthRequest rendezvous flows completed by outcome",
		},
		[]string{"outcome"}, // delivered, timeout, denied
	)

	// AuthRequestDuration tracks wall-clock time spent waiting at the relay.
	AuthRequestDuration = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "request_duration_seconds",
			Help:      "AuthRequest rendezvous wait duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~102s
		},
	)

	// RateLimitRejections tracks requests turned away by the rate limiter.
	RateLimitRejections = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "rate_limit_rejections_total",
			Help:      "Total number of requests rejected by the rate limiter",
		},
		[]string{"route"},
	)
)
