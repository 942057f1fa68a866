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

package auth

import (
	"context"
	"time"

	"github.com/pubky-x-project/pkhost/internal/metrics"
	"github.com/pubky-x-project/pkhost/pkdns"
	"github.com/pubky-x-project/pkhost/pkherr"
	"github.com/pubky-x-project/pkhost/store"
)

// SignupMode selects whether a signup code is required.
type SignupMode string

const (
	SignupOpen          SignupMode = "open"
	SignupTokenRequired SignupMode = "token_required"
)

// SignupRequest carries everything a signup call needs beyond the
// verified Token: the code the client claims (token_required mode
// only), the client's own already-signed PKDNS record so the server
// can enroll it in the republisher without ever holding the user's
// private key, and the request's user agent for the session row.
type SignupRequest struct {
	Token        Token
	SignupCodeID *[32]byte
	Record       *pkdns.SignedRecord
	UserAgent    string
}

// SignupService implements the one-write-transaction signup flow.
type SignupService struct {
	store       store.Store
	republisher *pkdns.Republisher
	mode        SignupMode
	now         func() time.Time
}

// NewSignupService builds a SignupService. republisher may be nil,
// which skips enrollment (useful for tests that don't exercise PKDNS).
func NewSignupService(st store.Store, republisher *pkdns.Republisher, mode SignupMode) *SignupService {
	return &SignupService{store: st, republisher: republisher, mode: mode, now: time.Now}
}

// Signup validates req.Token, validates and consumes the signup code
// (per s.mode), creates the User, issues a Session, and enrolls the new
// pk in the republisher, all in one write transaction except the final
// enrollment (which only happens after a successful commit).
func (s *SignupService) Signup(ctx context.Context, req SignupRequest) (*store.Session, error) {
	now := s.now()
	if err := req.Token.Verify(now); err != nil {
		return nil, err
	}
	if !RootCapability(req.Token.Capabilities) {
		return nil, pkherr.New(pkherr.BadCapability, "signup token must claim write on the namespace root")
	}
	pk := req.Token.PublicKey

	tx, err := s.store.BeginWrite(ctx)
	if err != nil {
		return nil, err
	}

	if s.mode == SignupTokenRequired {
		if req.SignupCodeID == nil {
			tx.Rollback(ctx)
			return nil, pkherr.New(pkherr.SignupCodeRequired, "signup requires a code in token_required mode")
		}
		if _, err := tx.GetSignupCode(ctx, *req.SignupCodeID); err != nil {
			tx.Rollback(ctx)
			if pkherr.Is(err, pkherr.NotFound) {
				return nil, pkherr.New(pkherr.SignupCodeRequired, "signup code not found")
			}
			return nil, err
		}
		if err := tx.ConsumeSignupCode(ctx, *req.SignupCodeID, pk); err != nil {
			tx.Rollback(ctx)
			return nil, err
		}
	}

	// A repeat signup by an already-registered key is a no-op on the
	// user row; the caller still gets a fresh session, so repeating
	// a signup with the same key and code succeeds.
	if err := tx.CreateUser(ctx, &store.User{PublicKey: pk, CreatedAt: now}); err != nil && !pkherr.Is(err, pkherr.Conflict) {
		tx.Rollback(ctx)
		return nil, err
	}

	session, err := newSession(pk, req.Token.Capabilities, req.UserAgent, now)
	if err != nil {
		tx.Rollback(ctx)
		return nil, err
	}
	if err := tx.CreateSession(ctx, session); err != nil {
		tx.Rollback(ctx)
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		metrics.SessionsCreated.WithLabelValues("failure").Inc()
		return nil, err
	}
	metrics.SessionsCreated.WithLabelValues("success").Inc()
	metrics.SessionsActive.Inc()

	if s.republisher != nil && req.Record != nil {
		rec := *req.Record
		s.republisher.EnrollSigned(pk, func(context.Context) (pkdns.SignedRecord, error) {
			return rec, nil
		})
	}

	return session, nil
}
