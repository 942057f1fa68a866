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

func createSignupCode(ctx context.Context, db querier, c *store.SignupCode) error {
	query := `INSERT INTO signup_codes (id, created_at, consumed_by) VALUES ($1, $2, $3)`
	var consumedBy []byte
	if c.ConsumedBy != nil {
		consumedBy = c.ConsumedBy[:]
	}
	_, err := db.Exec(ctx, query, c.ID[:], c.CreatedAt, consumedBy)
	if err != nil {
		return fmt.Errorf("create signup code: %w", err)
	}
	return nil
}

func getSignupCode(ctx context.Context, db querier, id [32]byte) (*store.SignupCode, error) {
	query := `SELECT id, created_at, consumed_by FROM signup_codes WHERE id = $1`
	var c store.SignupCode
	var rawID, consumedBy []byte
	err := db.QueryRow(ctx, query, id[:]).Scan(&rawID, &c.CreatedAt, &consumedBy)
	if err == pgx.ErrNoRows {
		return nil, pkherr.New(pkherr.NotFound, "signup code not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get signup code: %w", err)
	}
	copy(c.ID[:], rawID)
	if consumedBy != nil {
		var pk crypto.PublicKey
		copy(pk[:], consumedBy)
		c.ConsumedBy = &pk
	}
	return &c, nil
}

// consumeSignupCode is idempotent under the same pk, rejected under a
// different pk. The UPDATE only fires the first
// time (consumed_by IS NULL); the conflict check happens by re-reading
// the row, keeping the whole operation inside one round trip for the
// common case.
func consumeSignupCode(ctx context.Context, db querier, id [32]byte, pk crypto.PublicKey) error {
	query := `
		UPDATE signup_codes
		SET consumed_by = $1
		WHERE id = $2 AND consumed_by IS NULL
	`
	tag, err := db.Exec(ctx, query, pk[:], id[:])
	if err != nil {
		return fmt.Errorf("consume signup code: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	existing, err := getSignupCode(ctx, db, id)
	if err != nil {
		return err
	}
	if existing.ConsumedBy != nil && *existing.ConsumedBy == pk {
		return nil
	}
	return pkherr.New(pkherr.SignupCodeAlreadyUsed, "signup code already consumed by a different key")
}

func (s *Store) CreateSignupCode(ctx context.Context, c *store.SignupCode) error {
	return createSignupCode(ctx, s.db(), c)
}
func (s *Store) GetSignupCode(ctx context.Context, id [32]byte) (*store.SignupCode, error) {
	return getSignupCode(ctx, s.db(), id)
}
func (s *Store) ConsumeSignupCode(ctx context.Context, id [32]byte, pk crypto.PublicKey) error {
	return consumeSignupCode(ctx, s.db(), id, pk)
}

func (t *tx) CreateSignupCode(ctx context.Context, c *store.SignupCode) error {
	return createSignupCode(ctx, t.db(), c)
}
func (t *tx) GetSignupCode(ctx context.Context, id [32]byte) (*store.SignupCode, error) {
	return getSignupCode(ctx, t.db(), id)
}
func (t *tx) ConsumeSignupCode(ctx context.Context, id [32]byte, pk crypto.PublicKey) error {
	return consumeSignupCode(ctx, t.db(), id, pk)
}
