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

package entry

import "sync"

// KeyedMutex serializes writes to the same (user_pk, path) key without
// blocking writes to unrelated keys or any reads, mirroring the
// republisher's per-key coalescing map.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refcountedMutex
}

type refcountedMutex struct {
	mu  sync.Mutex
	ref int
}

// NewKeyedMutex returns an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*refcountedMutex)}
}

// Lock blocks until key is free, then locks it. Callers must call
// Unlock with the same key exactly once.
func (k *KeyedMutex) Lock(key string) {
	k.mu.Lock()
	rm, ok := k.locks[key]
	if !ok {
		rm = &refcountedMutex{}
		k.locks[key] = rm
	}
	rm.ref++
	k.mu.Unlock()

	rm.mu.Lock()
}

// Unlock releases key, evicting its entry once no other goroutine is
// waiting on it so the map does not grow without bound.
func (k *KeyedMutex) Unlock(key string) {
	k.mu.Lock()
	rm, ok := k.locks[key]
	if !ok {
		k.mu.Unlock()
		return
	}
	rm.ref--
	if rm.ref == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()

	rm.mu.Unlock()
}
