package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pubky-x-project/pkhost/crypto"
	"github.com/pubky-x-project/pkhost/pkherr"
	"github.com/pubky-x-project/pkhost/store"
	storemem "github.com/pubky-x-project/pkhost/store/memory"
)

func newTestSession(t *testing.T, st store.Store, caps []store.Capability) *store.Session {
	t.Helper()
	kp, err := crypto.GenerateKeypair()
	require.NoError(t, err)
	require.NoError(t, st.CreateUser(context.Background(), &store.User{PublicKey: kp.Public(), CreatedAt: time.Now()}))

	session := &store.Session{
		ID:           "sess1",
		UserPK:       kp.Public(),
		Capabilities: caps,
		CreatedAt:    time.Now(),
		LastSeenAt:   time.Now(),
	}
	require.NoError(t, st.CreateSession(context.Background(), session))
	return session
}

func TestAuthenticateRejectsExpiredSession(t *testing.T) {
	st := storemem.New()
	session := newTestSession(t, st, nil)

	auth := NewSessionAuthenticator(st, time.Millisecond, time.Millisecond)
	auth.now = func() time.Time { return session.LastSeenAt.Add(time.Hour) }

	_, err := auth.Authenticate(context.Background(), session.ID)
	require.True(t, pkherr.Is(err, pkherr.SessionExpired))
}

func TestAuthenticateTouchesSessionAfterWindow(t *testing.T) {
	st := storemem.New()
	session := newTestSession(t, st, nil)

	auth := NewSessionAuthenticator(st, time.Hour, time.Millisecond)
	later := session.LastSeenAt.Add(time.Second)
	auth.now = func() time.Time { return later }

	got, err := auth.Authenticate(context.Background(), session.ID)
	require.NoError(t, err)
	require.Equal(t, later, got.LastSeenAt)

	fromStore, err := st.GetSession(context.Background(), session.ID)
	require.NoError(t, err)
	require.Equal(t, later, fromStore.LastSeenAt)
}

func TestAuthorizeLongestPrefixMatch(t *testing.T) {
	session := &store.Session{
		Capabilities: []store.Capability{
			{Scope: "/", Actions: uint8(ActionRead)},
			{Scope: "/pub/", Actions: uint8(ActionRead | ActionWrite)},
		},
	}

	require.NoError(t, Authorize(session, "/pub/x.txt", ActionWrite))
	require.Error(t, Authorize(session, "/priv/x.txt", ActionWrite))
	require.NoError(t, Authorize(session, "/priv/x.txt", ActionRead))
}

func TestAuthorizeDeniesWithNoMatchingScope(t *testing.T) {
	session := &store.Session{Capabilities: []store.Capability{{Scope: "/pub/", Actions: uint8(ActionRead)}}}
	err := Authorize(session, "/priv/x.txt", ActionRead)
	require.True(t, pkherr.Is(err, pkherr.InsufficientCapability))
}

func TestSignoutDestroysSession(t *testing.T) {
	st := storemem.New()
	session := newTestSession(t, st, nil)

	auth := NewSessionAuthenticator(st, time.Hour, time.Minute)
	require.NoError(t, auth.Signout(context.Background(), session.ID))

	_, err := st.GetSession(context.Background(), session.ID)
	require.True(t, pkherr.Is(err, pkherr.NotFound))

	// Repeat signout of a gone session is a no-op.
	require.NoError(t, auth.Signout(context.Background(), session.ID))
}
