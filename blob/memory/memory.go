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

// Package memory implements blob.Backend with a mutex-protected map,
// for tests.
package memory

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/pubky-x-project/pkhost/crypto"
	"github.com/pubky-x-project/pkhost/pkherr"
)

// Backend is an in-memory blob.Backend.
type Backend struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// New returns an empty Backend.
func New() *Backend {
	return &Backend{blobs: make(map[string][]byte)}
}

func (b *Backend) Write(ctx context.Context, key string, r io.Reader) ([32]byte, int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return [32]byte{}, 0, err
	}
	b.mu.Lock()
	b.blobs[key] = data
	b.mu.Unlock()
	return crypto.Blake3(data), int64(len(data)), nil
}

func (b *Backend) Read(ctx context.Context, key string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.blobs[key]
	if !ok {
		return nil, pkherr.New(pkherr.NotFound, "blob not found")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.blobs, key)
	return nil
}

func (b *Backend) Exists(ctx context.Context, key string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.blobs[key]
	return ok, nil
}
