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

// Package entry implements the blob/entry engine: path validation,
// streaming put/get against a blob backend, quota accounting and event
// emission transactional with the metadata store.
package entry

import (
	"strings"

	"github.com/pubky-x-project/pkhost/crypto"
	"github.com/pubky-x-project/pkhost/pkherr"
)

// publicPrefix is the entry path prefix that is world-readable without
// a matching session capability.
const publicPrefix = "pub/"

// Path is a validated WebDavPath scoped to a user: a normalized UTF-8
// path with no ".." segments, no empty segments, and no trailing slash.
type Path struct {
	UserKey crypto.PublicKey
	Rest    string
}

// ParseWebDavPath validates and normalizes raw into a clean relative
// path, rejecting ".." segments, empty segments, and a trailing slash.
func ParseWebDavPath(raw string) (string, error) {
	if raw == "" {
		return "", pkherr.New(pkherr.BadPath, "path must not be empty")
	}
	p := strings.TrimPrefix(raw, "/")
	if p == "" {
		return "", pkherr.New(pkherr.BadPath, "path must not be empty")
	}
	if strings.HasSuffix(p, "/") {
		return "", pkherr.New(pkherr.BadPath, "path must not have a trailing slash")
	}

	segments := strings.Split(p, "/")
	for _, seg := range segments {
		switch seg {
		case "":
			return "", pkherr.New(pkherr.BadPath, "path must not contain empty segments")
		case ".", "..":
			return "", pkherr.New(pkherr.BadPath, "path must not contain . or .. segments")
		}
	}
	if !isValidUTF8(p) {
		return "", pkherr.New(pkherr.BadPath, "path must be valid UTF-8")
	}
	return p, nil
}

func isValidUTF8(s string) bool {
	return strings.ToValidUTF8(s, "�") == s
}

// NewPath validates raw and returns a Path scoped to userKey.
func NewPath(userKey crypto.PublicKey, raw string) (Path, error) {
	clean, err := ParseWebDavPath(raw)
	if err != nil {
		return Path{}, err
	}
	return Path{UserKey: userKey, Rest: clean}, nil
}

// IsPublic reports whether p falls under the world-readable /pub/
// prefix: entries under /pub/ require no session capability
// to read.
func (p Path) IsPublic() bool {
	return p.Rest == "pub" || strings.HasPrefix(p.Rest, publicPrefix)
}

// String renders the path with its leading slash, as used in entry
// rows and event records.
func (p Path) String() string {
	return "/" + p.Rest
}
