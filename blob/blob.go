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

// Package blob defines the pluggable content-addressed byte storage
// backend that sits underneath the relational entry metadata.
package blob

import (
	"context"
	"io"
)

// Backend stores and serves opaque byte blobs keyed by a caller-chosen
// string (entry.Engine uses a random hex key per write, not a content
// hash). Implementations need not deduplicate; the entry layer above
// decides whether a write is necessary.
type Backend interface {
	// Write stores the full contents of r under key, replacing any
	// existing blob at that key, and reports the Blake3 hash and byte
	// count actually written.
	Write(ctx context.Context, key string, r io.Reader) (hash [32]byte, size int64, err error)

	// Read returns a stream of the blob's contents. The caller must
	// Close it.
	Read(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the blob at key. Deleting a missing key is not an
	// error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether a blob is stored at key.
	Exists(ctx context.Context, key string) (bool, error)
}
