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

// Package store defines the transactional metadata store: users,
// sessions, signup codes, entries, and events.
package store

import (
	"context"
	"time"

	"github.com/pubky-x-project/pkhost/crypto"
)

// User is a registered account row.
type User struct {
	PublicKey      crypto.PublicKey
	CreatedAt      time.Time
	Disabled       bool
	QuotaBytesUsed int64
}

// Session is an authenticated session row. ID is opaque and never derivable
// from an AuthToken.
type Session struct {
	ID           string
	UserPK       crypto.PublicKey
	Capabilities []Capability
	CreatedAt    time.Time
	LastSeenAt   time.Time
	UserAgent    string
}

// Capability mirrors auth.Capability without importing the auth package
// (store has no business logic dependency on auth, only the shape).
type Capability struct {
	Scope   string
	Actions uint8
}

// SignupCode is an admin-issued, single-use signup code row.
type SignupCode struct {
	ID         [32]byte
	CreatedAt  time.Time
	ConsumedBy *crypto.PublicKey // nil until consumed
}

// Entry is a stored file's metadata row (bytes live in a blob
// backend, referenced by BlobKey).
type Entry struct {
	UserPK      crypto.PublicKey
	Path        string
	ContentHash [32]byte
	SizeBytes   int64
	ContentType string
	CreatedAt   time.Time
	ModifiedAt  time.Time
	BlobKey     string
}

// EventKind is put or del.
type EventKind string

const (
	EventPut EventKind = "put"
	EventDel EventKind = "del"
)

// Event is an append-only change-log row.
type Event struct {
	Cursor string
	UserPK crypto.PublicKey
	Kind   EventKind
	Path   string
	At     time.Time
}

// UserStore is the users table's CRUD surface.
type UserStore interface {
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, pk crypto.PublicKey) (*User, error)
	SetDisabled(ctx context.Context, pk crypto.PublicKey, disabled bool) error
	AdjustQuota(ctx context.Context, pk crypto.PublicKey, delta int64) error
	DeleteUser(ctx context.Context, pk crypto.PublicKey) error
}

// SessionStore is the sessions table's CRUD surface.
type SessionStore interface {
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	TouchSession(ctx context.Context, id string, at time.Time) error
	DeleteSession(ctx context.Context, id string) error
	DeleteSessionsForUser(ctx context.Context, pk crypto.PublicKey) error
}

// SignupCodeStore is the signup_codes table's CRUD surface.
type SignupCodeStore interface {
	CreateSignupCode(ctx context.Context, c *SignupCode) error
	GetSignupCode(ctx context.Context, id [32]byte) (*SignupCode, error)
	ConsumeSignupCode(ctx context.Context, id [32]byte, pk crypto.PublicKey) error
}

// EntryStore is the entries table's CRUD surface.
type EntryStore interface {
	UpsertEntry(ctx context.Context, e *Entry) error
	GetEntry(ctx context.Context, pk crypto.PublicKey, path string) (*Entry, error)
	DeleteEntry(ctx context.Context, pk crypto.PublicKey, path string) error
	ListEntries(ctx context.Context, pk crypto.PublicKey, prefix, cursor string, limit int, reverse bool) ([]*Entry, error)
}

// EventStore is the events table's append-only surface.
type EventStore interface {
	AppendEvent(ctx context.Context, e *Event) error
	ListEvents(ctx context.Context, pk crypto.PublicKey, afterCursor string, limit int) ([]*Event, error)
}

// Tx is a single write (or read) transaction exposing every sub-store.
// Callers obtain one via BeginWrite/BeginRead and must Commit or
// Rollback it.
type Tx interface {
	UserStore
	SessionStore
	SignupCodeStore
	EntryStore
	EventStore

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store composes every sub-store plus transaction boundaries with
// snapshot isolation and serialized writers.
type Store interface {
	UserStore
	SessionStore
	SignupCodeStore
	EntryStore
	EventStore

	BeginRead(ctx context.Context) (Tx, error)
	BeginWrite(ctx context.Context) (Tx, error)

	Close() error
	Ping(ctx context.Context) error
}
