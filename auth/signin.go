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
	"github.com/pubky-x-project/pkhost/pkherr"
	"github.com/pubky-x-project/pkhost/store"
)

// SigninService implements the signin flow: validate the
// token, confirm the user exists and is not disabled, issue a Session.
type SigninService struct {
	store store.Store
	now   func() time.Time
}

// NewSigninService builds a SigninService.
func NewSigninService(st store.Store) *SigninService {
	return &SigninService{store: st, now: time.Now}
}

// Signin validates token and, if the claimed user exists and is not
// disabled, issues a new Session.
func (s *SigninService) Signin(ctx context.Context, token Token, userAgent string) (*store.Session, error) {
	now := s.now()
	if err := token.Verify(now); err != nil {
		return nil, err
	}

	user, err := s.store.GetUser(ctx, token.PublicKey)
	if err != nil {
		return nil, err
	}
	if user.Disabled {
		return nil, pkherr.New(pkherr.UserDisabled, "user account is disabled")
	}

	session, err := newSession(token.PublicKey, token.Capabilities, userAgent, now)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		metrics.SessionsCreated.WithLabelValues("failure").Inc()
		return nil, err
	}
	metrics.SessionsCreated.WithLabelValues("success").Inc()
	metrics.SessionsActive.Inc()
	return session, nil
}
