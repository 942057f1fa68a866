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

// Package memory implements pkdns.MutableStore in-process, for tests
// and single-node deployments that don't need a real DHT.
package memory

import (
	"context"
	"sync"

	"github.com/pubky-x-project/pkhost/crypto"
	"github.com/pubky-x-project/pkhost/pkdns"
)

// MutableStore is an in-memory pkdns.MutableStore. It keeps every
// record ever put per key (simulating multiple, possibly stale, DHT
// responders) so the resolver's highest-seq-wins logic has something
// real to exercise.
type MutableStore struct {
	mu      sync.RWMutex
	records map[crypto.PublicKey][]pkdns.SignedRecord
}

// New returns an empty MutableStore.
func New() *MutableStore {
	return &MutableStore{records: make(map[crypto.PublicKey][]pkdns.SignedRecord)}
}

// GetMutable returns every record stored for pk.
func (m *MutableStore) GetMutable(_ context.Context, pk crypto.PublicKey) ([]pkdns.SignedRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]pkdns.SignedRecord, len(m.records[pk]))
	copy(out, m.records[pk])
	return out, nil
}

// PutMutable appends rec and reports a storer count of 1 (itself).
func (m *MutableStore) PutMutable(_ context.Context, rec pkdns.SignedRecord) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.PublicKey] = append(m.records[rec.PublicKey], rec)
	return 1, nil
}
