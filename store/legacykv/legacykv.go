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

// Package legacykv decodes the predecessor homeserver's embedded-KV
// dump format. It is read-only and frozen: the format never changes
// underneath it, so there is no writer and no store.Store
// implementation here, only a one-shot Reader for store/migrate to
// drain into the relational store.
package legacykv

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/pubky-x-project/pkhost/store"
)

// The dump is a flat sequence of fixed-shape records, one table's rows
// after another, each prefixed with a one-byte table tag and a
// four-byte little-endian length. This mirrors the named-table layout
// of the predecessor's embedded-KV store (users/sessions/entries/blobs)
// flattened into a single export stream rather than a live
// multi-table environment, since the only remaining use for this format
// is a one-time read.
const (
	tagUser  byte = 1
	tagEntry byte = 2
)

// Reader decodes one legacy dump file into in-memory rows.
type Reader struct {
	r *bufio.Reader
}

// NewReader wraps r as a legacy dump reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Users decodes every user record in the dump.
func (d *Reader) Users() ([]*store.User, error) {
	var out []*store.User
	err := d.scan(tagUser, func(body []byte) error {
		u, err := decodeUser(body)
		if err != nil {
			return err
		}
		out = append(out, u)
		return nil
	})
	return out, err
}

// Entries decodes every entry record in the dump.
func (d *Reader) Entries() ([]*store.Entry, error) {
	var out []*store.Entry
	err := d.scan(tagEntry, func(body []byte) error {
		e, err := decodeEntry(body)
		if err != nil {
			return err
		}
		out = append(out, e)
		return nil
	})
	return out, err
}

// scan walks the whole dump once, invoking fn for every record whose
// tag matches want and skipping the rest.
func (d *Reader) scan(want byte, fn func(body []byte) error) error {
	for {
		tag, err := d.r.ReadByte()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read record tag: %w", err)
		}

		var length uint32
		if err := binary.Read(d.r, binary.LittleEndian, &length); err != nil {
			return fmt.Errorf("read record length: %w", err)
		}

		body := make([]byte, length)
		if _, err := io.ReadFull(d.r, body); err != nil {
			return fmt.Errorf("read record body: %w", err)
		}

		if tag != want {
			continue
		}
		if err := fn(body); err != nil {
			return err
		}
	}
}

// decodeUser reads: [public_key:32][created_at_unix:8][disabled:1][quota_bytes_used:8].
func decodeUser(body []byte) (*store.User, error) {
	const want = 32 + 8 + 1 + 8
	if len(body) != want {
		return nil, fmt.Errorf("legacy user record: want %d bytes, got %d", want, len(body))
	}
	var u store.User
	copy(u.PublicKey[:], body[0:32])
	u.CreatedAt = time.Unix(int64(binary.LittleEndian.Uint64(body[32:40])), 0).UTC()
	u.Disabled = body[40] != 0
	u.QuotaBytesUsed = int64(binary.LittleEndian.Uint64(body[41:49]))
	return &u, nil
}

// decodeEntry reads:
// [public_key:32][content_hash:32][size_bytes:8][created_at_unix:8]
// [modified_at_unix:8][path_len:2][path][content_type_len:2][content_type][blob_key_len:2][blob_key]
func decodeEntry(body []byte) (*store.Entry, error) {
	const fixed = 32 + 32 + 8 + 8 + 8
	if len(body) < fixed+2 {
		return nil, fmt.Errorf("legacy entry record: too short (%d bytes)", len(body))
	}

	var e store.Entry
	copy(e.UserPK[:], body[0:32])
	copy(e.ContentHash[:], body[32:64])
	e.SizeBytes = int64(binary.LittleEndian.Uint64(body[64:72]))
	e.CreatedAt = time.Unix(int64(binary.LittleEndian.Uint64(body[72:80])), 0).UTC()
	e.ModifiedAt = time.Unix(int64(binary.LittleEndian.Uint64(body[80:88])), 0).UTC()

	off := fixed
	var err error
	e.Path, off, err = readLengthPrefixed(body, off)
	if err != nil {
		return nil, err
	}
	e.ContentType, off, err = readLengthPrefixed(body, off)
	if err != nil {
		return nil, err
	}
	e.BlobKey, _, err = readLengthPrefixed(body, off)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func readLengthPrefixed(body []byte, off int) (string, int, error) {
	if off+2 > len(body) {
		return "", 0, fmt.Errorf("legacy record: truncated length prefix at offset %d", off)
	}
	n := int(binary.LittleEndian.Uint16(body[off : off+2]))
	off += 2
	if off+n > len(body) {
		return "", 0, fmt.Errorf("legacy record: truncated field at offset %d", off)
	}
	return string(body[off : off+n]), off + n, nil
}
