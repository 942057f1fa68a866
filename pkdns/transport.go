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

package pkdns

import (
	"context"

	"github.com/pubky-x-project/pkhost/crypto"
)

// MutableStore is the minimal DHT transport the core consumes. The
// underlying DHT node itself is an external collaborator; this
// interface is the entire surface pkdns needs from it.
type MutableStore interface {
	// GetMutable fetches every candidate SignedRecord responders return
	// for pk. Implementations may return zero, one, or many candidates.
	GetMutable(ctx context.Context, pk crypto.PublicKey) ([]SignedRecord, error)
	// PutMutable stores rec and reports how many distinct nodes accepted
	// it (the "storer count" used for durability acceptance).
	PutMutable(ctx context.Context, rec SignedRecord) (storers int, err error)
}

// Relay is an HTTP intermediary proxying PKARR mutable-item bodies
// (GET/PUT /{z32pk} carrying the raw mutable-item body).
type Relay interface {
	Get(ctx context.Context, pk crypto.PublicKey) (*SignedRecord, error)
	Put(ctx context.Context, rec SignedRecord) error
}
