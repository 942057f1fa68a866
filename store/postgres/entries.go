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

func upsertEntry(ctx context.Context, db querier, e *store.Entry) error {
	query := `
		INSERT INTO entries (user_pk, path, content_hash, size_bytes, content_type, created_at, modified_at, blob_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_pk, path) DO UPDATE SET
			content_hash = EXCLUDED.content_hash,
			size_bytes = EXCLUDED.size_bytes,
			content_type = EXCLUDED.content_type,
			modified_at = EXCLUDED.modified_at,
			blob_key = EXCLUDED.blob_key
	`
	_, err := db.Exec(ctx, query,
		e.UserPK[:], e.Path, e.ContentHash[:], e.SizeBytes, e.ContentType,
		e.CreatedAt, e.ModifiedAt, e.BlobKey,
	)
	if err != nil {
		return fmt.Errorf("upsert entry: %w", err)
	}
	return nil
}

func getEntry(ctx context.Context, db querier, pk crypto.PublicKey, path string) (*store.Entry, error) {
	query := `
		SELECT user_pk, path, content_hash, size_bytes, content_type, created_at, modified_at, blob_key
		FROM entries
		WHERE user_pk = $1 AND path = $2
	`
	e, err := scanEntry(db.QueryRow(ctx, query, pk[:], path))
	if err == pgx.ErrNoRows {
		return nil, pkherr.New(pkherr.NotFound, "entry not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return e, nil
}

func deleteEntry(ctx context.Context, db querier, pk crypto.PublicKey, path string) error {
	tag, err := db.Exec(ctx, `DELETE FROM entries WHERE user_pk = $1 AND path = $2`, pk[:], path)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pkherr.New(pkherr.NotFound, "entry not found")
	}
	return nil
}

// listEntries filters by a literal path prefix using left(path, n) = n
// rather than LIKE, so '%'/'_' in user-chosen paths are never treated
// as wildcards.
func listEntries(ctx context.Context, db querier, pk crypto.PublicKey, prefix, cursor string, limit int, reverse bool) ([]*store.Entry, error) {
	order := "ASC"
	cmp := ">"
	if reverse {
		order = "DESC"
		cmp = "<"
	}

	query := fmt.Sprintf(`
		SELECT user_pk, path, content_hash, size_bytes, content_type, created_at, modified_at, blob_key
		FROM entries
		WHERE user_pk = $1
		  AND left(path, length($2)) = $2
		  AND ($3 = '' OR path %s $3)
		ORDER BY path %s
		LIMIT $4
	`, cmp, order)

	rows, err := db.Query(ctx, query, pk[:], prefix, cursor, limit)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []*store.Entry
	for rows.Next() {
		e, err := scanEntryRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return out, nil
}

func scanEntry(row pgx.Row) (*store.Entry, error) {
	var e store.Entry
	var rawPK, rawHash []byte
	if err := row.Scan(&rawPK, &e.Path, &rawHash, &e.SizeBytes, &e.ContentType, &e.CreatedAt, &e.ModifiedAt, &e.BlobKey); err != nil {
		return nil, err
	}
	copy(e.UserPK[:], rawPK)
	copy(e.ContentHash[:], rawHash)
	return &e, nil
}

func scanEntryRow(rows pgx.Rows) (*store.Entry, error) {
	var e store.Entry
	var rawPK, rawHash []byte
	if err := rows.Scan(&rawPK, &e.Path, &rawHash, &e.SizeBytes, &e.ContentType, &e.CreatedAt, &e.ModifiedAt, &e.BlobKey); err != nil {
		return nil, err
	}
	copy(e.UserPK[:], rawPK)
	copy(e.ContentHash[:], rawHash)
	return &e, nil
}

func (s *Store) UpsertEntry(ctx context.Context, e *store.Entry) error { return upsertEntry(ctx, s.db(), e) }
func (s *Store) GetEntry(ctx context.Context, pk crypto.PublicKey, path string) (*store.Entry, error) {
	return getEntry(ctx, s.db(), pk, path)
}
func (s *Store) DeleteEntry(ctx context.Context, pk crypto.PublicKey, path string) error {
	return deleteEntry(ctx, s.db(), pk, path)
}
func (s *Store) ListEntries(ctx context.Context, pk crypto.PublicKey, prefix, cursor string, limit int, reverse bool) ([]*store.Entry, error) {
	return listEntries(ctx, s.db(), pk, prefix, cursor, limit, reverse)
}

func (t *tx) UpsertEntry(ctx context.Context, e *store.Entry) error { return upsertEntry(ctx, t.db(), e) }
func (t *tx) GetEntry(ctx context.Context, pk crypto.PublicKey, path string) (*store.Entry, error) {
	return getEntry(ctx, t.db(), pk, path)
}
func (t *tx) DeleteEntry(ctx context.Context, pk crypto.PublicKey, path string) error {
	return deleteEntry(ctx, t.db(), pk, path)
}
func (t *tx) ListEntries(ctx context.Context, pk crypto.PublicKey, prefix, cursor string, limit int, reverse bool) ([]*store.Entry, error) {
	return listEntries(ctx, t.db(), pk, prefix, cursor, limit, reverse)
}
