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
	// StoreOperations tracks metadata/blob store calls by verb and outcome.
	StoreOperations = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "entries",
			Name:      "operations_total",
			Help:      "Total number of entry store operations",
		},
		[]string{"verb", "outcome"}, // put/get/delete/list, ok/not_found/quota_exceeded/conflict/error
	)

	// StoreOperationDuration tracks entry store call latency.
	StoreOperationDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "entries",
			Name:      "operation_duration_seconds",
			Help:      "Entry store operation duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 16), // 0.1ms to ~3.3s
		},
		[]string{"verb"},
	)

	// EntrySize tracks the size of blobs written through a put.
	EntrySize = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "entries",
			Name:      "size_bytes",
			Help:      "Size in bytes of entries written to the blob backend",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 12), // 64B to ~268MB
		},
	)

	// QuotaBytesUsed tracks per-user storage usage as reported after a write.
	QuotaBytesUsed = promauto.With(Registry).NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "entries",
			Name:      "quota_bytes_used",
			Help:      "Per-user storage usage observed at write time, in bytes",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 12), // 1KiB to 4GiB
		},
	)
)
