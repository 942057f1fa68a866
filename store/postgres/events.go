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

	"github.com/pubky-x-project/pkhost/crypto"
	"github.com/pubky-x-project/pkhost/store"
)

func appendEvent(ctx context.Context, db querier, e *store.Event) error {
	query := `
		INSERT INTO events (cursor, user_pk, kind, path, at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := db.Exec(ctx, query, e.Cursor, e.UserPK[:], string(e.Kind), e.Path, e.At)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

func listEvents(ctx context.Context, db querier, pk crypto.PublicKey, afterCursor string, limit int) ([]*store.Event, error) {
	query := `
		SELECT cursor, user_pk, kind, path, at
		FROM events
		WHERE user_pk = $1 AND cursor > $2
		ORDER BY cursor ASC
		LIMIT $3
	`
	rows, err := db.Query(ctx, query, pk[:], afterCursor, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []*store.Event
	for rows.Next() {
		var ev store.Event
		var rawPK []byte
		var kind string
		if err := rows.Scan(&ev.Cursor, &rawPK, &kind, &ev.Path, &ev.At); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		copy(ev.UserPK[:], rawPK)
		ev.Kind = store.EventKind(kind)
		out = append(out, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

func (s *Store) AppendEvent(ctx context.Context, e *store.Event) error { return appendEvent(ctx, s.db(), e) }
func (s *Store) ListEvents(ctx context.Context, pk crypto.PublicKey, afterCursor string, limit int) ([]*store.Event, error) {
	return listEvents(ctx, s.db(), pk, afterCursor, limit)
}

func (t *tx) AppendEvent(ctx context.Context, e *store.Event) error { return appendEvent(ctx, t.db(), e) }
func (t *tx) ListEvents(ctx context.Context, pk crypto.PublicKey, afterCursor string, limit int) ([]*store.Event, error) {
	return listEvents(ctx, t.db(), pk, afterCursor, limit)
}
