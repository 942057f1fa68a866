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

// Package gcs implements blob.Backend against a Google Cloud Storage
// bucket, for the `google_bucket` blob backend choice.
package gcs

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"

	"github.com/pubky-x-project/pkhost/crypto"
	"github.com/pubky-x-project/pkhost/pkherr"
)

// Backend stores blobs as objects in a single GCS bucket, one object
// per key, optionally under a shared prefix.
type Backend struct {
	client *storage.Client
	bucket string
	prefix string
}

// New returns a Backend against bucket, using client for all calls.
// Callers own client's lifecycle (Close it on shutdown).
func New(client *storage.Client, bucket, prefix string) *Backend {
	return &Backend{client: client, bucket: bucket, prefix: prefix}
}

func (b *Backend) objectName(key string) string {
	if b.prefix == "" {
		return key
	}
	return b.prefix + "/" + key
}

func (b *Backend) object(key string) *storage.ObjectHandle {
	return b.client.Bucket(b.bucket).Object(b.objectName(key))
}

func (b *Backend) Write(ctx context.Context, key string, r io.Reader) ([32]byte, int64, error) {
	w := b.object(key).NewWriter(ctx)
	hasher := crypto.NewHasher()
	n, err := io.Copy(io.MultiWriter(w, hasher), r)
	if err != nil {
		w.Close()
		return [32]byte{}, 0, fmt.Errorf("write blob to gcs: %w", err)
	}
	if err := w.Close(); err != nil {
		return [32]byte{}, 0, fmt.Errorf("finalize gcs object: %w", err)
	}
	return hasher.Sum(), n, nil
}

func (b *Backend) Read(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := b.object(key).NewReader(ctx)
	if err == storage.ErrObjectNotExist {
		return nil, pkherr.New(pkherr.NotFound, "blob not found")
	}
	if err != nil {
		return nil, fmt.Errorf("open gcs object: %w", err)
	}
	return rc, nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	err := b.object(key).Delete(ctx)
	if err != nil && err != storage.ErrObjectNotExist {
		return fmt.Errorf("delete gcs object: %w", err)
	}
	return nil
}

func (b *Backend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := b.object(key).Attrs(ctx)
	if err == storage.ErrObjectNotExist {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat gcs object: %w", err)
	}
	return true, nil
}
