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

// Package filesystem implements blob.Backend on local disk, storing each
// blob under the key the caller passes, fanned into a two-level
// directory layout so no single directory accumulates every blob in the
// store. Blobs are not addressed by their content hash: the file name is
// the key, and the Blake3 hash Write reports is not used for placement.
package filesystem

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pubky-x-project/pkhost/crypto"
	"github.com/pubky-x-project/pkhost/pkherr"
)

// Backend stores blobs under root, one file per key.
type Backend struct {
	root string
}

// New returns a Backend rooted at dir, creating it if necessary.
func New(dir string) (*Backend, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &Backend{root: dir}, nil
}

// path fans a key out across two levels of subdirectory using its
// first four characters, so a store with millions of blobs never puts
// more than a few thousand files in one directory.
func (b *Backend) path(key string) string {
	if len(key) < 4 {
		return filepath.Join(b.root, "_short", key)
	}
	return filepath.Join(b.root, key[0:2], key[2:4], key)
}

func (b *Backend) Write(ctx context.Context, key string, r io.Reader) ([32]byte, int64, error) {
	dst := b.path(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o700); err != nil {
		return [32]byte{}, 0, fmt.Errorf("create blob directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return [32]byte{}, 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	hasher := crypto.NewHasher()
	n, err := io.Copy(io.MultiWriter(tmp, hasher), r)
	if err != nil {
		tmp.Close()
		return [32]byte{}, 0, fmt.Errorf("write blob contents: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return [32]byte{}, 0, fmt.Errorf("sync blob contents: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return [32]byte{}, 0, fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		return [32]byte{}, 0, fmt.Errorf("rename blob into place: %w", err)
	}
	return hasher.Sum(), n, nil
}

func (b *Backend) Read(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(b.path(key))
	if os.IsNotExist(err) {
		return nil, pkherr.New(pkherr.NotFound, "blob not found")
	}
	if err != nil {
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	err := os.Remove(b.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

func (b *Backend) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(b.path(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat blob: %w", err)
	}
	return true, nil
}
