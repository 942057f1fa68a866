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

func TestSigninIssuesSessionForExistingUser(t *testing.T) {
	st := storemem.New()
	kp, err := crypto.GenerateKeypair()
	require.NoError(t, err)
	require.NoError(t, st.CreateUser(context.Background(), &store.User{PublicKey: kp.Public(), CreatedAt: time.Now()}))

	svc := NewSigninService(st)
	now := time.Now()
	tok := New(kp, []Capability{{Scope: "/pub/", Actions: ActionRead}}, now)

	session, err := svc.Signin(context.Background(), tok, "ua")
	require.NoError(t, err)
	require.Equal(t, kp.Public(), session.UserPK)
}

func TestSigninRejectsDisabledUser(t *testing.T) {
	st := storemem.New()
	kp, err := crypto.GenerateKeypair()
	require.NoError(t, err)
	require.NoError(t, st.CreateUser(context.Background(), &store.User{PublicKey: kp.Public(), CreatedAt: time.Now()}))
	require.NoError(t, st.SetDisabled(context.Background(), kp.Public(), true))

	svc := NewSigninService(st)
	now := time.Now()
	tok := New(kp, []Capability{{Scope: "/pub/", Actions: ActionRead}}, now)

	_, err = svc.Signin(context.Background(), tok, "ua")
	require.True(t, pkherr.Is(err, pkherr.UserDisabled))
}

func TestSigninRejectsUnknownUser(t *testing.T) {
	st := storemem.New()
	svc := NewSigninService(st)

	kp, err := crypto.GenerateKeypair()
	require.NoError(t, err)
	now := time.Now()
	tok := New(kp, []Capability{{Scope: "/pub/", Actions: ActionRead}}, now)

	_, err = svc.Signin(context.Background(), tok, "ua")
	require.True(t, pkherr.Is(err, pkherr.NotFound))
}
