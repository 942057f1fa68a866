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

// Package migrate applies the relational metadata store's schema in
// order and, once, imports rows out of the predecessor's embedded-KV
// dump.
package migrate

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pubky-x-project/pkhost/pkherr"
	"github.com/pubky-x-project/pkhost/store"
	"github.com/pubky-x-project/pkhost/store/legacykv"
)

// LegacyImportTarget is the narrow slice of store.Store that
// ImportLegacyKV writes into.
type LegacyImportTarget interface {
	CreateUser(ctx context.Context, u *store.User) error
	UpsertEntry(ctx context.Context, e *store.Entry) error
}

// Migration is one forward-only schema step.
type Migration struct {
	Version int
	Name    string
	Up      func(ctx context.Context, tx pgx.Tx) error
}

// Migrations is the ordered, append-only schema history. Never edit a
// released entry; add a new one instead.
var Migrations = []Migration{
	{1, "create_users", func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			CREATE TABLE IF NOT EXISTS users (
				public_key       BYTEA PRIMARY KEY,
				created_at       TIMESTAMPTZ NOT NULL,
				disabled         BOOLEAN NOT NULL DEFAULT FALSE,
				quota_bytes_used BIGINT NOT NULL DEFAULT 0
			)
		`)
		return err
	}},
	{2, "create_sessions", func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			CREATE TABLE IF NOT EXISTS sessions (
				id            TEXT PRIMARY KEY,
				user_pk       BYTEA NOT NULL REFERENCES users(public_key) ON DELETE CASCADE,
				capabilities  JSONB NOT NULL,
				created_at    TIMESTAMPTZ NOT NULL,
				last_seen_at  TIMESTAMPTZ NOT NULL,
				user_agent    TEXT NOT NULL DEFAULT ''
			);
			CREATE INDEX IF NOT EXISTS sessions_user_pk_idx ON sessions(user_pk);
		`)
		return err
	}},
	{3, "create_signup_codes", func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			CREATE TABLE IF NOT EXISTS signup_codes (
				id          BYTEA PRIMARY KEY,
				created_at  TIMESTAMPTZ NOT NULL,
				consumed_by BYTEA REFERENCES users(public_key) ON DELETE SET NULL
			)
		`)
		return err
	}},
	{4, "create_entries", func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			CREATE TABLE IF NOT EXISTS entries (
				user_pk      BYTEA NOT NULL REFERENCES users(public_key) ON DELETE CASCADE,
				path         TEXT NOT NULL,
				content_hash BYTEA NOT NULL,
				size_bytes   BIGINT NOT NULL,
				content_type TEXT NOT NULL DEFAULT '',
				created_at   TIMESTAMPTZ NOT NULL,
				modified_at  TIMESTAMPTZ NOT NULL,
				blob_key     TEXT NOT NULL,
				PRIMARY KEY (user_pk, path)
			);
			CREATE INDEX IF NOT EXISTS entries_user_pk_path_idx ON entries(user_pk, path);
		`)
		return err
	}},
	{5, "create_events", func(ctx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			CREATE TABLE IF NOT EXISTS events (
				cursor  TEXT PRIMARY KEY,
				user_pk BYTEA NOT NULL REFERENCES users(public_key) ON DELETE CASCADE,
				kind    TEXT NOT NULL,
				path    TEXT NOT NULL,
				at      TIMESTAMPTZ NOT NULL
			);
			CREATE INDEX IF NOT EXISTS events_user_pk_cursor_idx ON events(user_pk, cursor);
		`)
		return err
	}},
}

// Migrator applies Migrations against a pool, tracking progress in a
// schema_migrations table.
type Migrator struct {
	pool *pgxpool.Pool
}

// New returns a Migrator bound to pool.
func New(pool *pgxpool.Pool) *Migrator {
	return &Migrator{pool: pool}
}

// Apply runs every migration whose version is newer than the highest
// one recorded, in order, each in its own transaction. It refuses to
// run against a database that already records a version newer than
// the newest Migration this binary knows about.
func (m *Migrator) Apply(ctx context.Context) error {
	if _, err := m.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`); err != nil {
		return pkherr.Wrap(pkherr.MigrationFailed, "create schema_migrations table", err)
	}

	current, err := m.currentVersion(ctx)
	if err != nil {
		return pkherr.Wrap(pkherr.MigrationFailed, "read current schema version", err)
	}

	latestKnown := 0
	for _, mig := range Migrations {
		if mig.Version > latestKnown {
			latestKnown = mig.Version
		}
	}
	if current > latestKnown {
		return pkherr.New(pkherr.MigrationFailed, fmt.Sprintf(
			"database schema version %d is newer than this binary's newest known migration %d", current, latestKnown))
	}

	for _, mig := range Migrations {
		if mig.Version <= current {
			continue
		}
		if err := m.applyOne(ctx, mig); err != nil {
			return pkherr.Wrap(pkherr.MigrationFailed, fmt.Sprintf("apply migration %d (%s)", mig.Version, mig.Name), err)
		}
	}
	return nil
}

func (m *Migrator) currentVersion(ctx context.Context) (int, error) {
	var version int
	err := m.pool.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version)
	return version, err
}

func (m *Migrator) applyOne(ctx context.Context, mig Migration) error {
	tx, err := m.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := mig.Up(ctx, tx); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, mig.Version, mig.Name); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ImportLegacyKV copies every row out of a frozen predecessor
// embedded-KV dump into the relational store, once. It is idempotent:
// re-running against an already-imported user/entry is a no-op because
// CreateUser/UpsertEntry both tolerate (or overwrite) existing rows.
func ImportLegacyKV(ctx context.Context, r *legacykv.Reader, dst LegacyImportTarget) (ImportSummary, error) {
	var summary ImportSummary

	users, err := r.Users()
	if err != nil {
		return summary, pkherr.Wrap(pkherr.MigrationFailed, "read legacy users", err)
	}
	for _, u := range users {
		if err := dst.CreateUser(ctx, u); err != nil && !pkherr.Is(err, pkherr.Conflict) {
			return summary, pkherr.Wrap(pkherr.MigrationFailed, "import legacy user", err)
		}
		summary.Users++
	}

	entries, err := r.Entries()
	if err != nil {
		return summary, pkherr.Wrap(pkherr.MigrationFailed, "read legacy entries", err)
	}
	for _, e := range entries {
		if err := dst.UpsertEntry(ctx, e); err != nil {
			return summary, pkherr.Wrap(pkherr.MigrationFailed, "import legacy entry", err)
		}
		summary.Entries++
	}

	return summary, nil
}

// ImportSummary reports how much of a legacy dump was migrated.
type ImportSummary struct {
	Users   int
	Entries int
}
