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

// Package postgres implements store.Store against PostgreSQL via pgx.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pubky-x-project/pkhost/store"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so every query
// method in this package is written once against it and shared by the
// top-level Store and by a transaction handle.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Config holds PostgreSQL connection configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// Store implements store.Store against a pgxpool.Pool.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store and verifies connectivity.
func New(ctx context.Context, cfg *Config) (*Store, error) {
	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	return newFromConnString(ctx, connString)
}

// NewFromDSN creates a Store from a single libpq-style connection string,
// the form carried by config.StoreConfig.PostgresDSN.
func NewFromDSN(ctx context.Context, dsn string) (*Store, error) {
	return newFromConnString(ctx, dsn)
}

func newFromConnString(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Pool exposes the underlying connection pool for callers that need to
// run schema migrations (store/migrate.New) against the same database.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

func (s *Store) Close() error                   { s.pool.Close(); return nil }
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) db() querier { return s.pool }

// BeginWrite opens a read-write transaction; pgx serializes conflicting
// writers at the row level under the default READ COMMITTED isolation.
func (s *Store) BeginWrite(ctx context.Context) (store.Tx, error) {
	t, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin write tx: %w", err)
	}
	return &tx{pgxTx: t}, nil
}

// BeginRead opens a read-only transaction, giving a consistent
// snapshot view for its lifetime.
func (s *Store) BeginRead(ctx context.Context) (store.Tx, error) {
	t, err := s.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly, IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return nil, fmt.Errorf("begin read tx: %w", err)
	}
	return &tx{pgxTx: t}, nil
}

type tx struct {
	pgxTx pgx.Tx
}

func (t *tx) db() querier { return t.pgxTx }

func (t *tx) Commit(ctx context.Context) error   { return t.pgxTx.Commit(ctx) }
func (t *tx) Rollback(ctx context.Context) error { return t.pgxTx.Rollback(ctx) }
