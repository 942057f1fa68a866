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
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pubky-x-project/pkhost/crypto"
	"github.com/pubky-x-project/pkhost/pkherr"
	"github.com/pubky-x-project/pkhost/store"
)

func createSession(ctx context.Context, db querier, sess *store.Session) error {
	caps, err := json.Marshal(sess.Capabilities)
	if err != nil {
		return fmt.Errorf("marshal capabilities: %w", err)
	}

	query := `
		INSERT INTO sessions (id, user_pk, capabilities, created_at, last_seen_at, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = db.Exec(ctx, query, sess.ID, sess.UserPK[:], caps, sess.CreatedAt, sess.LastSeenAt, sess.UserAgent)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func getSession(ctx context.Context, db querier, id string) (*store.Session, error) {
	query := `
		SELECT id, user_pk, capabilities, created_at, last_seen_at, user_agent
		FROM sessions
		WHERE id = $1
	`
	var sess store.Session
	var rawPK, caps []byte
	err := db.QueryRow(ctx, query, id).Scan(&sess.ID, &rawPK, &caps, &sess.CreatedAt, &sess.LastSeenAt, &sess.UserAgent)
	if err == pgx.ErrNoRows {
		return nil, pkherr.New(pkherr.NotFound, "session not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	copy(sess.UserPK[:], rawPK)
	if len(caps) > 0 {
		if err := json.Unmarshal(caps, &sess.Capabilities); err != nil {
			return nil, fmt.Errorf("unmarshal capabilities: %w", err)
		}
	}
	return &sess, nil
}

func touchSession(ctx context.Context, db querier, id string, at time.Time) error {
	tag, err := db.Exec(ctx, `UPDATE sessions SET last_seen_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pkherr.New(pkherr.NotFound, "session not found")
	}
	return nil
}

func deleteSession(ctx context.Context, db querier, id string) error {
	tag, err := db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pkherr.New(pkherr.NotFound, "session not found")
	}
	return nil
}

func deleteSessionsForUser(ctx context.Context, db querier, pk crypto.PublicKey) error {
	_, err := db.Exec(ctx, `DELETE FROM sessions WHERE user_pk = $1`, pk[:])
	if err != nil {
		return fmt.Errorf("delete sessions for user: %w", err)
	}
	return nil
}

func (s *Store) CreateSession(ctx context.Context, sess *store.Session) error {
	return createSession(ctx, s.db(), sess)
}
func (s *Store) GetSession(ctx context.Context, id string) (*store.Session, error) {
	return getSession(ctx, s.db(), id)
}
func (s *Store) TouchSession(ctx context.Context, id string, at time.Time) error {
	return touchSession(ctx, s.db(), id, at)
}
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	return deleteSession(ctx, s.db(), id)
}
func (s *Store) DeleteSessionsForUser(ctx context.Context, pk crypto.PublicKey) error {
	return deleteSessionsForUser(ctx, s.db(), pk)
}

func (t *tx) CreateSession(ctx context.Context, sess *store.Session) error {
	return createSession(ctx, t.db(), sess)
}
func (t *tx) GetSession(ctx context.Context, id string) (*store.Session, error) {
	return getSession(ctx, t.db(), id)
}
func (t *tx) TouchSession(ctx context.Context, id string, at time.Time) error {
	return touchSession(ctx, t.db(), id, at)
}
func (t *tx) DeleteSession(ctx context.Context, id string) error {
	return deleteSession(ctx, t.db(), id)
}
func (t *tx) DeleteSessionsForUser(ctx context.Context, pk crypto.PublicKey) error {
	return deleteSessionsForUser(ctx, t.db(), pk)
}
