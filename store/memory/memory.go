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

// Package memory implements store.Store with a mutex-protected map, for
// tests and single-node deployments.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pubky-x-project/pkhost/crypto"
	"github.com/pubky-x-project/pkhost/pkherr"
	"github.com/pubky-x-project/pkhost/store"
)

// Store is an in-memory store.Store. A single RWMutex linearizes
// writers, giving the "serialized writers, snapshot reads"
// requirement closely enough for tests and single-node use.
//
// Every exported method acquires s.mu itself and then delegates to an
// unexported, lock-free counterpart. A Tx obtained via BeginRead/
// BeginWrite holds s.mu for its whole lifetime and calls the same
// lock-free counterparts directly, so no method ever tries to acquire
// sync.RWMutex recursively.
type Store struct {
	mu sync.RWMutex

	users       map[crypto.PublicKey]*store.User
	sessions    map[string]*store.Session
	signupCodes map[[32]byte]*store.SignupCode
	entries     map[crypto.PublicKey]map[string]*store.Entry
	events      map[crypto.PublicKey][]*store.Event
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		users:       make(map[crypto.PublicKey]*store.User),
		sessions:    make(map[string]*store.Session),
		signupCodes: make(map[[32]byte]*store.SignupCode),
		entries:     make(map[crypto.PublicKey]map[string]*store.Entry),
		events:      make(map[crypto.PublicKey][]*store.Event),
	}
}

func (s *Store) Close() error                   { return nil }
func (s *Store) Ping(ctx context.Context) error { return nil }

// BeginWrite takes the store's write lock for the lifetime of the
// transaction; Commit/Rollback both release it (memory has nothing to
// roll back to, but the lock discipline still serializes writers).
func (s *Store) BeginWrite(ctx context.Context) (store.Tx, error) {
	s.mu.Lock()
	return &tx{s: s, write: true}, nil
}

// BeginRead takes the store's read lock, giving a consistent snapshot
// view for the transaction's lifetime.
func (s *Store) BeginRead(ctx context.Context) (store.Tx, error) {
	s.mu.RLock()
	return &tx{s: s, write: false}, nil
}

// tx is a transaction handle. Its methods call straight through to the
// Store's lock-free helpers since BeginRead/BeginWrite already hold the
// lock for the duration.
type tx struct {
	s     *Store
	write bool
	done  bool
}

func (t *tx) Commit(ctx context.Context) error   { return t.finish() }
func (t *tx) Rollback(ctx context.Context) error { return t.finish() }

func (t *tx) finish() error {
	if t.done {
		return nil
	}
	t.done = true
	if t.write {
		t.s.mu.Unlock()
	} else {
		t.s.mu.RUnlock()
	}
	return nil
}

func (t *tx) CreateUser(ctx context.Context, u *store.User) error { return t.s.createUser(u) }
func (t *tx) GetUser(ctx context.Context, pk crypto.PublicKey) (*store.User, error) {
	return t.s.getUser(pk)
}
func (t *tx) SetDisabled(ctx context.Context, pk crypto.PublicKey, disabled bool) error {
	return t.s.setDisabled(pk, disabled)
}
func (t *tx) AdjustQuota(ctx context.Context, pk crypto.PublicKey, delta int64) error {
	return t.s.adjustQuota(pk, delta)
}
func (t *tx) DeleteUser(ctx context.Context, pk crypto.PublicKey) error { return t.s.deleteUser(pk) }

func (t *tx) CreateSession(ctx context.Context, sess *store.Session) error {
	return t.s.createSession(sess)
}
func (t *tx) GetSession(ctx context.Context, id string) (*store.Session, error) {
	return t.s.getSession(id)
}
func (t *tx) TouchSession(ctx context.Context, id string, at time.Time) error {
	return t.s.touchSession(id, at)
}
func (t *tx) DeleteSession(ctx context.Context, id string) error { return t.s.deleteSession(id) }
func (t *tx) DeleteSessionsForUser(ctx context.Context, pk crypto.PublicKey) error {
	return t.s.deleteSessionsForUser(pk)
}

func (t *tx) CreateSignupCode(ctx context.Context, c *store.SignupCode) error {
	return t.s.createSignupCode(c)
}
func (t *tx) GetSignupCode(ctx context.Context, id [32]byte) (*store.SignupCode, error) {
	return t.s.getSignupCode(id)
}
func (t *tx) ConsumeSignupCode(ctx context.Context, id [32]byte, pk crypto.PublicKey) error {
	return t.s.consumeSignupCode(id, pk)
}

func (t *tx) UpsertEntry(ctx context.Context, e *store.Entry) error { return t.s.upsertEntry(e) }
func (t *tx) GetEntry(ctx context.Context, pk crypto.PublicKey, path string) (*store.Entry, error) {
	return t.s.getEntry(pk, path)
}
func (t *tx) DeleteEntry(ctx context.Context, pk crypto.PublicKey, path string) error {
	return t.s.deleteEntry(pk, path)
}
func (t *tx) ListEntries(ctx context.Context, pk crypto.PublicKey, prefix, cursor string, limit int, reverse bool) ([]*store.Entry, error) {
	return t.s.listEntries(pk, prefix, cursor, limit, reverse)
}

func (t *tx) AppendEvent(ctx context.Context, e *store.Event) error { return t.s.appendEvent(e) }
func (t *tx) ListEvents(ctx context.Context, pk crypto.PublicKey, afterCursor string, limit int) ([]*store.Event, error) {
	return t.s.listEvents(pk, afterCursor, limit)
}

// Exported Store methods: acquire the lock, then delegate.

func (s *Store) CreateUser(ctx context.Context, u *store.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createUser(u)
}

func (s *Store) GetUser(ctx context.Context, pk crypto.PublicKey) (*store.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getUser(pk)
}

func (s *Store) SetDisabled(ctx context.Context, pk crypto.PublicKey, disabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setDisabled(pk, disabled)
}

func (s *Store) AdjustQuota(ctx context.Context, pk crypto.PublicKey, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adjustQuota(pk, delta)
}

func (s *Store) DeleteUser(ctx context.Context, pk crypto.PublicKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteUser(pk)
}

func (s *Store) CreateSession(ctx context.Context, sess *store.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createSession(sess)
}

func (s *Store) GetSession(ctx context.Context, id string) (*store.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getSession(id)
}

func (s *Store) TouchSession(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touchSession(id, at)
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteSession(id)
}

func (s *Store) DeleteSessionsForUser(ctx context.Context, pk crypto.PublicKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteSessionsForUser(pk)
}

func (s *Store) CreateSignupCode(ctx context.Context, c *store.SignupCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createSignupCode(c)
}

func (s *Store) GetSignupCode(ctx context.Context, id [32]byte) (*store.SignupCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getSignupCode(id)
}

func (s *Store) ConsumeSignupCode(ctx context.Context, id [32]byte, pk crypto.PublicKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consumeSignupCode(id, pk)
}

func (s *Store) UpsertEntry(ctx context.Context, e *store.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertEntry(e)
}

func (s *Store) GetEntry(ctx context.Context, pk crypto.PublicKey, path string) (*store.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getEntry(pk, path)
}

func (s *Store) DeleteEntry(ctx context.Context, pk crypto.PublicKey, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteEntry(pk, path)
}

func (s *Store) ListEntries(ctx context.Context, pk crypto.PublicKey, prefix, cursor string, limit int, reverse bool) ([]*store.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listEntries(pk, prefix, cursor, limit, reverse)
}

func (s *Store) AppendEvent(ctx context.Context, e *store.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendEvent(e)
}

func (s *Store) ListEvents(ctx context.Context, pk crypto.PublicKey, afterCursor string, limit int) ([]*store.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listEvents(pk, afterCursor, limit)
}

// Lock-free helpers: callers must hold s.mu (read or write, as noted).

func (s *Store) createUser(u *store.User) error {
	if _, ok := s.users[u.PublicKey]; ok {
		return pkherr.New(pkherr.Conflict, "user already exists")
	}
	cp := *u
	s.users[u.PublicKey] = &cp
	return nil
}

func (s *Store) getUser(pk crypto.PublicKey) (*store.User, error) {
	u, ok := s.users[pk]
	if !ok {
		return nil, pkherr.New(pkherr.NotFound, "user not found")
	}
	cp := *u
	return &cp, nil
}

func (s *Store) setDisabled(pk crypto.PublicKey, disabled bool) error {
	u, ok := s.users[pk]
	if !ok {
		return pkherr.New(pkherr.NotFound, "user not found")
	}
	u.Disabled = disabled
	return nil
}

func (s *Store) adjustQuota(pk crypto.PublicKey, delta int64) error {
	u, ok := s.users[pk]
	if !ok {
		return pkherr.New(pkherr.NotFound, "user not found")
	}
	if delta < 0 && u.QuotaBytesUsed < -delta {
		u.QuotaBytesUsed = 0
		return nil
	}
	u.QuotaBytesUsed += delta
	return nil
}

func (s *Store) deleteUser(pk crypto.PublicKey) error {
	delete(s.users, pk)
	delete(s.entries, pk)
	delete(s.events, pk)
	for id, sess := range s.sessions {
		if sess.UserPK == pk {
			delete(s.sessions, id)
		}
	}
	return nil
}

func (s *Store) createSession(sess *store.Session) error {
	cp := *sess
	s.sessions[sess.ID] = &cp
	return nil
}

func (s *Store) getSession(id string) (*store.Session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, pkherr.New(pkherr.NotFound, "session not found")
	}
	cp := *sess
	return &cp, nil
}

func (s *Store) touchSession(id string, at time.Time) error {
	sess, ok := s.sessions[id]
	if !ok {
		return pkherr.New(pkherr.NotFound, "session not found")
	}
	sess.LastSeenAt = at
	return nil
}

func (s *Store) deleteSession(id string) error {
	delete(s.sessions, id)
	return nil
}

func (s *Store) deleteSessionsForUser(pk crypto.PublicKey) error {
	for id, sess := range s.sessions {
		if sess.UserPK == pk {
			delete(s.sessions, id)
		}
	}
	return nil
}

func (s *Store) createSignupCode(c *store.SignupCode) error {
	cp := *c
	s.signupCodes[c.ID] = &cp
	return nil
}

func (s *Store) getSignupCode(id [32]byte) (*store.SignupCode, error) {
	c, ok := s.signupCodes[id]
	if !ok {
		return nil, pkherr.New(pkherr.NotFound, "signup code not found")
	}
	cp := *c
	return &cp, nil
}

// consumeSignupCode is idempotent under the same pk, rejected under a
// different pk.
func (s *Store) consumeSignupCode(id [32]byte, pk crypto.PublicKey) error {
	c, ok := s.signupCodes[id]
	if !ok {
		return pkherr.New(pkherr.NotFound, "signup code not found")
	}
	if c.ConsumedBy == nil {
		cp := pk
		c.ConsumedBy = &cp
		return nil
	}
	if *c.ConsumedBy == pk {
		return nil
	}
	return pkherr.New(pkherr.SignupCodeAlreadyUsed, "signup code already consumed by a different key")
}

func (s *Store) upsertEntry(e *store.Entry) error {
	m, ok := s.entries[e.UserPK]
	if !ok {
		m = make(map[string]*store.Entry)
		s.entries[e.UserPK] = m
	}
	cp := *e
	m[e.Path] = &cp
	return nil
}

func (s *Store) getEntry(pk crypto.PublicKey, path string) (*store.Entry, error) {
	m, ok := s.entries[pk]
	if !ok {
		return nil, pkherr.New(pkherr.NotFound, "entry not found")
	}
	e, ok := m[path]
	if !ok {
		return nil, pkherr.New(pkherr.NotFound, "entry not found")
	}
	cp := *e
	return &cp, nil
}

func (s *Store) deleteEntry(pk crypto.PublicKey, path string) error {
	m, ok := s.entries[pk]
	if !ok {
		return pkherr.New(pkherr.NotFound, "entry not found")
	}
	if _, ok := m[path]; !ok {
		return pkherr.New(pkherr.NotFound, "entry not found")
	}
	delete(m, path)
	return nil
}

func (s *Store) listEntries(pk crypto.PublicKey, prefix, cursor string, limit int, reverse bool) ([]*store.Entry, error) {
	m := s.entries[pk]
	var matched []*store.Entry
	for path, e := range m {
		if strings.HasPrefix(path, prefix) {
			cp := *e
			matched = append(matched, &cp)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if reverse {
			return matched[i].Path > matched[j].Path
		}
		return matched[i].Path < matched[j].Path
	})

	out := make([]*store.Entry, 0, limit)
	for _, e := range matched {
		if cursor != "" {
			if reverse && e.Path >= cursor {
				continue
			}
			if !reverse && e.Path <= cursor {
				continue
			}
		}
		out = append(out, e)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Store) appendEvent(e *store.Event) error {
	cp := *e
	s.events[e.UserPK] = append(s.events[e.UserPK], &cp)
	return nil
}

func (s *Store) listEvents(pk crypto.PublicKey, afterCursor string, limit int) ([]*store.Event, error) {
	var out []*store.Event
	for _, e := range s.events[pk] {
		if e.Cursor <= afterCursor {
			continue
		}
		out = append(out, e)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}
