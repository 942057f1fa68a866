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

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pubky-x-project/pkhost/blob"
	"github.com/pubky-x-project/pkhost/crypto"
	"github.com/pubky-x-project/pkhost/internal/metrics"
	"github.com/pubky-x-project/pkhost/pkherr"
	"github.com/pubky-x-project/pkhost/store"
)

const (
	defaultListLimit    = 100
	defaultListLimitMax = 1000
)

// Engine ties the metadata store and a blob backend together into the
// entry operations: put, get, delete, list, events. Every write to a
// given (user_pk, path) is serialized by an in-memory keyed mutex;
// reads never block on it.
type Engine struct {
	store store.Store
	blob  blob.Backend
	locks *KeyedMutex

	quotaLimitBytes int64
	listLimitDefault int
	listLimitMax     int
}

// Options configures an Engine. Zero values fall back to the documented defaults.
type Options struct {
	QuotaLimitBytes  int64
	ListLimitDefault int
	ListLimitMax     int
}

// New returns an Engine backed by st and bb.
func New(st store.Store, bb blob.Backend, opts Options) *Engine {
	e := &Engine{
		store:            st,
		blob:             bb,
		locks:            NewKeyedMutex(),
		quotaLimitBytes:  opts.QuotaLimitBytes,
		listLimitDefault: opts.ListLimitDefault,
		listLimitMax:     opts.ListLimitMax,
	}
	if e.listLimitDefault <= 0 {
		e.listLimitDefault = defaultListLimit
	}
	if e.listLimitMax <= 0 {
		e.listLimitMax = defaultListLimitMax
	}
	return e
}

func lockKey(p Path) string {
	return p.UserKey.String() + ":" + p.Rest
}

func randomBlobKey() (string, error) {
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("generate blob key: %w", err)
	}
	return hex.EncodeToString(buf[:]), nil
}

// Put validates and authorizes nothing itself (the HTTP layer does
// that); it streams body to the blob backend while hashing, then
// commits the entry row, quota delta, and put event in one
// transaction. On any failure before commit it rolls back and deletes
// any newly written blob, leaving quota untouched.
func (e *Engine) Put(ctx context.Context, p Path, contentType string, body io.Reader) (*store.Entry, error) {
	start := time.Now()
	entryRow, err := e.put(ctx, p, contentType, body)
	metrics.StoreOperationDuration.WithLabelValues("put").Observe(time.Since(start).Seconds())
	metrics.StoreOperations.WithLabelValues("put", opOutcome(err)).Inc()
	if err == nil {
		metrics.EntrySize.Observe(float64(entryRow.SizeBytes))
	}
	return entryRow, err
}

func (e *Engine) put(ctx context.Context, p Path, contentType string, body io.Reader) (*store.Entry, error) {
	e.locks.Lock(lockKey(p))
	defer e.locks.Unlock(lockKey(p))

	user, err := e.store.GetUser(ctx, p.UserKey)
	if err != nil {
		return nil, err
	}
	if user.Disabled {
		return nil, pkherr.New(pkherr.UserDisabled, "user account is disabled")
	}

	existing, err := e.store.GetEntry(ctx, p.UserKey, p.Rest)
	if err != nil && !pkherr.Is(err, pkherr.NotFound) {
		return nil, err
	}
	var existingSize int64
	var createdAt time.Time
	if existing != nil {
		existingSize = existing.SizeBytes
		createdAt = existing.CreatedAt
	}

	blobKey, err := randomBlobKey()
	if err != nil {
		return nil, err
	}

	hash, size, err := e.blob.Write(ctx, blobKey, body)
	if err != nil {
		return nil, pkherr.Wrap(pkherr.BlobBackendFailure, "write blob", err)
	}

	entryRow, putErr := e.commitPut(ctx, p, contentType, blobKey, hash, size, existingSize, createdAt)
	if putErr != nil {
		_ = e.blob.Delete(ctx, blobKey)
		return nil, putErr
	}

	if existing != nil && existing.BlobKey != blobKey {
		_ = e.blob.Delete(ctx, existing.BlobKey)
	}
	return entryRow, nil
}

func (e *Engine) commitPut(ctx context.Context, p Path, contentType, blobKey string, hash [32]byte, size, existingSize int64, createdAt time.Time) (*store.Entry, error) {
	tx, err := e.store.BeginWrite(ctx)
	if err != nil {
		return nil, err
	}

	user, err := tx.GetUser(ctx, p.UserKey)
	if err != nil {
		tx.Rollback(ctx)
		return nil, err
	}

	// QuotaLimitBytes <= 0 means no quota is enforced.
	delta := size - existingSize
	if e.quotaLimitBytes > 0 && user.QuotaBytesUsed+delta > e.quotaLimitBytes {
		tx.Rollback(ctx)
		return nil, pkherr.New(pkherr.QuotaExceeded, "entry write would exceed quota")
	}

	now := time.Now()
	if createdAt.IsZero() {
		createdAt = now
	}
	entryRow := &store.Entry{
		UserPK:      p.UserKey,
		Path:        p.Rest,
		ContentHash: hash,
		SizeBytes:   size,
		ContentType: contentType,
		CreatedAt:   createdAt,
		ModifiedAt:  now,
		BlobKey:     blobKey,
	}

	if err := tx.UpsertEntry(ctx, entryRow); err != nil {
		tx.Rollback(ctx)
		return nil, err
	}
	if delta != 0 {
		if err := tx.AdjustQuota(ctx, p.UserKey, delta); err != nil {
			tx.Rollback(ctx)
			return nil, err
		}
	}
	evt := &store.Event{
		Cursor: store.NewCursor(now.UnixMicro(), store.NextCursorSeq()),
		UserPK: p.UserKey,
		Kind:   store.EventPut,
		Path:   entryRow.Path,
		At:     now,
	}
	if err := tx.AppendEvent(ctx, evt); err != nil {
		tx.Rollback(ctx)
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	metrics.QuotaBytesUsed.Observe(float64(user.QuotaBytesUsed + delta))
	return entryRow, nil
}

// Get opens a read stream for p's current content. The caller is
// responsible for authorization; Get itself performs no capability
// check.
func (e *Engine) Get(ctx context.Context, p Path) (*store.Entry, io.ReadCloser, error) {
	entry, err := e.store.GetEntry(ctx, p.UserKey, p.Rest)
	if err != nil {
		metrics.StoreOperations.WithLabelValues("get", opOutcome(err)).Inc()
		return nil, nil, err
	}
	rc, err := e.blob.Read(ctx, entry.BlobKey)
	if err != nil {
		metrics.StoreOperations.WithLabelValues("get", "error").Inc()
		return nil, nil, err
	}
	metrics.StoreOperations.WithLabelValues("get", "ok").Inc()
	return entry, rc, nil
}

// Delete removes the entry row, appends a del event, and decrements
// quota in one transaction, then queues the underlying blob for
// deletion (best-effort, after commit; losing the blob itself is not
// fatal, the entry row is the source of truth for what exists).
func (e *Engine) Delete(ctx context.Context, p Path) error {
	start := time.Now()
	err := e.delete(ctx, p)
	metrics.StoreOperationDuration.WithLabelValues("delete").Observe(time.Since(start).Seconds())
	metrics.StoreOperations.WithLabelValues("delete", opOutcome(err)).Inc()
	return err
}

func (e *Engine) delete(ctx context.Context, p Path) error {
	e.locks.Lock(lockKey(p))
	defer e.locks.Unlock(lockKey(p))

	tx, err := e.store.BeginWrite(ctx)
	if err != nil {
		return err
	}

	existing, err := tx.GetEntry(ctx, p.UserKey, p.Rest)
	if err != nil {
		tx.Rollback(ctx)
		return err
	}

	if err := tx.DeleteEntry(ctx, p.UserKey, p.Rest); err != nil {
		tx.Rollback(ctx)
		return err
	}
	if existing.SizeBytes != 0 {
		if err := tx.AdjustQuota(ctx, p.UserKey, -existing.SizeBytes); err != nil {
			tx.Rollback(ctx)
			return err
		}
	}
	now := time.Now()
	evt := &store.Event{
		Cursor: store.NewCursor(now.UnixMicro(), store.NextCursorSeq()),
		UserPK: p.UserKey,
		Kind:   store.EventDel,
		Path:   p.Rest,
		At:     now,
	}
	if err := tx.AppendEvent(ctx, evt); err != nil {
		tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	_ = e.blob.Delete(ctx, existing.BlobKey)
	return nil
}

// ListItem is one row of a List response: either a full Entry, or (when
// Dir is true, under shallow=true) a collapsed first-segment group with
// no Entry payload.
type ListItem struct {
	Path  string
	Dir   bool
	Entry *store.Entry
}

func (e *Engine) clampLimit(limit int) int {
	if limit <= 0 {
		return e.listLimitDefault
	}
	if limit > e.listLimitMax {
		return e.listLimitMax
	}
	return limit
}

// List enumerates entries under prefix in lexicographic order (or
// descending, if reverse). cursor is an exclusive bound. When shallow
// is true, descendants beyond prefix's first path segment are
// collapsed into a single directory-like ListItem, reported once.
func (e *Engine) List(ctx context.Context, pk crypto.PublicKey, prefix, cursor string, limit int, reverse, shallow bool) ([]ListItem, error) {
	defer func(start time.Time) {
		metrics.StoreOperationDuration.WithLabelValues("list").Observe(time.Since(start).Seconds())
	}(time.Now())
	limit = e.clampLimit(limit)
	if !shallow {
		entries, err := e.store.ListEntries(ctx, pk, prefix, cursor, limit, reverse)
		if err != nil {
			return nil, err
		}
		items := make([]ListItem, len(entries))
		for i, ent := range entries {
			items[i] = ListItem{Path: ent.Path, Entry: ent}
		}
		return items, nil
	}
	return e.listShallow(ctx, pk, prefix, cursor, limit, reverse)
}

// listShallow fetches raw entries in batches, advancing cursor past
// every raw row it has seen, and collapses consecutive rows that share
// a first-segment-under-prefix group into a single item.
func (e *Engine) listShallow(ctx context.Context, pk crypto.PublicKey, prefix, cursor string, limit int, reverse bool) ([]ListItem, error) {
	const maxRounds = 64
	batchSize := limit * 4
	if batchSize < limit {
		batchSize = limit
	}

	var items []ListItem
	seenGroups := make(map[string]bool)

	for round := 0; round < maxRounds && len(items) < limit; round++ {
		batch, err := e.store.ListEntries(ctx, pk, prefix, cursor, batchSize, reverse)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		for _, ent := range batch {
			cursor = ent.Path
			group, isGroup := shallowGroup(prefix, ent.Path)
			if isGroup {
				if seenGroups[group] {
					continue
				}
				seenGroups[group] = true
				items = append(items, ListItem{Path: group, Dir: true})
			} else {
				items = append(items, ListItem{Path: ent.Path, Entry: ent})
			}
			if len(items) >= limit {
				break
			}
		}
		if len(batch) < batchSize {
			break
		}
	}
	return items, nil
}

// shallowGroup reports the collapsed first-segment-under-prefix label
// for path, and whether path actually has a descendant segment beyond
// prefix (isGroup false means path is itself a direct child, reported
// as-is).
func shallowGroup(prefix, path string) (string, bool) {
	rest := strings.TrimPrefix(path, prefix)
	idx := strings.Index(rest, "/")
	if idx < 0 {
		return "", false
	}
	return prefix + rest[:idx+1], true
}

// Events returns events for pk with cursor strictly greater than
// afterCursor, in ascending order.
func (e *Engine) Events(ctx context.Context, pk crypto.PublicKey, afterCursor string, limit int) ([]*store.Event, error) {
	limit = e.clampLimit(limit)
	return e.store.ListEvents(ctx, pk, afterCursor, limit)
}

func opOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case pkherr.Is(err, pkherr.NotFound):
		return "not_found"
	case pkherr.Is(err, pkherr.QuotaExceeded):
		return "quota_exceeded"
	case pkherr.Is(err, pkherr.Conflict):
		return "conflict"
	default:
		return "error"
	}
}
