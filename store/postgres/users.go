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

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pubky-x-project/pkhost/crypto"
	"github.com/pubky-x-project/pkhost/pkherr"
	"github.com/pubky-x-project/pkhost/store"
)

func createUser(ctx context.Context, db querier, u *store.User) error {
	query := `
		INSERT INTO users (public_key, created_at, disabled, quota_bytes_used)
		VALUES ($1, $2, $3, $4)
	`
	_, err := db.Exec(ctx, query, u.PublicKey[:], u.CreatedAt, u.Disabled, u.QuotaBytesUsed)
	if err != nil {
		if isUniqueViolation(err) {
			return pkherr.New(pkherr.Conflict, "user already exists")
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func getUser(ctx context.Context, db querier, pk crypto.PublicKey) (*store.User, error) {
	query := `
		SELECT public_key, created_at, disabled, quota_bytes_used
		FROM users
		WHERE public_key = $1
	`
	var u store.User
	var rawPK []byte
	err := db.QueryRow(ctx, query, pk[:]).Scan(&rawPK, &u.CreatedAt, &u.Disabled, &u.QuotaBytesUsed)
	if err == pgx.ErrNoRows {
		return nil, pkherr.New(pkherr.NotFound, "user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	copy(u.PublicKey[:], rawPK)
	return &u, nil
}

func setDisabled(ctx context.Context, db querier, pk crypto.PublicKey, disabled bool) error {
	query := `UPDATE users SET disabled = $1 WHERE public_key = $2`
	tag, err := db.Exec(ctx, query, disabled, pk[:])
	if err != nil {
		return fmt.Errorf("set disabled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pkherr.New(pkherr.NotFound, "user not found")
	}
	return nil
}

func adjustQuota(ctx context.Context, db querier, pk crypto.PublicKey, delta int64) error {
	query := `
		UPDATE users
		SET quota_bytes_used = GREATEST(0, quota_bytes_used + $1)
		WHERE public_key = $2
	`
	tag, err := db.Exec(ctx, query, delta, pk[:])
	if err != nil {
		return fmt.Errorf("adjust quota: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pkherr.New(pkherr.NotFound, "user not found")
	}
	return nil
}

func deleteUser(ctx context.Context, db querier, pk crypto.PublicKey) error {
	tag, err := db.Exec(ctx, `DELETE FROM users WHERE public_key = $1`, pk[:])
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pkherr.New(pkherr.NotFound, "user not found")
	}
	return nil
}

func (s *Store) CreateUser(ctx context.Context, u *store.User) error { return createUser(ctx, s.db(), u) }
func (s *Store) GetUser(ctx context.Context, pk crypto.PublicKey) (*store.User, error) {
	return getUser(ctx, s.db(), pk)
}
func (s *Store) SetDisabled(ctx context.Context, pk crypto.PublicKey, disabled bool) error {
	return setDisabled(ctx, s.db(), pk, disabled)
}
func (s *Store) AdjustQuota(ctx context.Context, pk crypto.PublicKey, delta int64) error {
	return adjustQuota(ctx, s.db(), pk, delta)
}
func (s *Store) DeleteUser(ctx context.Context, pk crypto.PublicKey) error {
	return deleteUser(ctx, s.db(), pk)
}

func (t *tx) CreateUser(ctx context.Context, u *store.User) error { return createUser(ctx, t.db(), u) }
func (t *tx) GetUser(ctx context.Context, pk crypto.PublicKey) (*store.User, error) {
	return getUser(ctx, t.db(), pk)
}
func (t *tx) SetDisabled(ctx context.Context, pk crypto.PublicKey, disabled bool) error {
	return setDisabled(ctx, t.db(), pk, disabled)
}
func (t *tx) AdjustQuota(ctx context.Context, pk crypto.PublicKey, delta int64) error {
	return adjustQuota(ctx, t.db(), pk, delta)
}
func (t *tx) DeleteUser(ctx context.Context, pk crypto.PublicKey) error {
	return deleteUser(ctx, t.db(), pk)
}
