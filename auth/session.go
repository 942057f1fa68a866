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
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pubky-x-project/pkhost/crypto"
	"github.com/pubky-x-project/pkhost/internal/metrics"
	"github.com/pubky-x-project/pkhost/pkherr"
	"github.com/pubky-x-project/pkhost/store"
)

// DefaultIdleTimeout and DefaultTouchWindow tune session liveness: a
// session goes stale after 30 minutes of inactivity, and last_seen_at
// is persisted at most once per minute of activity.
const (
	DefaultIdleTimeout = 30 * time.Minute
	DefaultTouchWindow = time.Minute
)

func newSession(pk crypto.PublicKey, caps []Capability, userAgent string, now time.Time) (*store.Session, error) {
	return &store.Session{
		ID:           uuid.NewString(),
		UserPK:       pk,
		Capabilities: capsToStore(caps),
		CreatedAt:    now,
		LastSeenAt:   now,
		UserAgent:    userAgent,
	}, nil
}

func capsToStore(caps []Capability) []store.Capability {
	out := make([]store.Capability, len(caps))
	for i, c := range caps {
		out[i] = store.Capability{Scope: c.Scope, Actions: uint8(c.Actions)}
	}
	return out
}

func capsFromStore(caps []store.Capability) []Capability {
	out := make([]Capability, len(caps))
	for i, c := range caps {
		out[i] = Capability{Scope: c.Scope, Actions: ActionSet(c.Actions)}
	}
	return out
}

// SessionAuthenticator looks up opaque session ids, enforces the idle
// timeout, persists last_seen_at at most once per sliding window, and
// performs longest-prefix capability matching for authorization.
type SessionAuthenticator struct {
	store       store.Store
	idleTimeout time.Duration
	touchWindow time.Duration
	now         func() time.Time
}

// NewSessionAuthenticator builds a SessionAuthenticator. Zero timeouts
// fall back to the documented defaults.
func NewSessionAuthenticator(st store.Store, idleTimeout, touchWindow time.Duration) *SessionAuthenticator {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	if touchWindow <= 0 {
		touchWindow = DefaultTouchWindow
	}
	return &SessionAuthenticator{store: st, idleTimeout: idleTimeout, touchWindow: touchWindow, now: time.Now}
}

// Authenticate looks up sessionID, rejects it as expired if idle too
// long, and otherwise touches last_seen_at if the touch window has
// elapsed since the last touch.
func (a *SessionAuthenticator) Authenticate(ctx context.Context, sessionID string) (*store.Session, error) {
	session, err := a.store.GetSession(ctx, sessionID)
	if err != nil {
		if pkherr.Is(err, pkherr.NotFound) {
			return nil, pkherr.New(pkherr.SessionExpired, "session not found")
		}
		return nil, err
	}

	now := a.now()
	if now.After(session.LastSeenAt.Add(a.idleTimeout)) {
		metrics.SessionsExpired.Inc()
		metrics.SessionsActive.Dec()
		metrics.SessionDuration.Observe(session.LastSeenAt.Sub(session.CreatedAt).Seconds())
		_ = a.store.DeleteSession(ctx, sessionID)
		return nil, pkherr.New(pkherr.SessionExpired, "session idle timeout exceeded")
	}

	if now.Sub(session.LastSeenAt) >= a.touchWindow {
		if err := a.store.TouchSession(ctx, sessionID, now); err != nil {
			return nil, err
		}
		session.LastSeenAt = now
	}
	return session, nil
}

// Signout destroys the session row for sessionID. Signing out an
// already-destroyed session is a no-op.
func (a *SessionAuthenticator) Signout(ctx context.Context, sessionID string) error {
	session, err := a.store.GetSession(ctx, sessionID)
	if err != nil {
		if pkherr.Is(err, pkherr.NotFound) {
			return nil
		}
		return err
	}
	if err := a.store.DeleteSession(ctx, sessionID); err != nil {
		return err
	}
	metrics.SessionsClosed.Inc()
	metrics.SessionsActive.Dec()
	metrics.SessionDuration.Observe(a.now().Sub(session.CreatedAt).Seconds())
	return nil
}

// SessionCapabilities returns session's capabilities in the auth
// package's typed form, for callers that want ActionSet helpers instead
// of the store's raw uint8 bitmask.
func SessionCapabilities(session *store.Session) []Capability {
	return capsFromStore(session.Capabilities)
}

// Authorize checks path+action against session's capabilities using
// longest-prefix matching: among every capability whose scope is a
// prefix of path, the one with the longest scope must include action.
func Authorize(session *store.Session, path string, action ActionSet) error {
	var best *store.Capability
	for i := range session.Capabilities {
		c := session.Capabilities[i]
		if !strings.HasPrefix(path, c.Scope) {
			continue
		}
		if best == nil || len(c.Scope) > len(best.Scope) {
			best = &c
		}
	}
	if best == nil || !ActionSet(best.Actions).Has(action) {
		return pkherr.New(pkherr.InsufficientCapability, "no capability grants the requested action").
			WithDetails("path", path)
	}
	return nil
}
