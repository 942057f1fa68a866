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

func rootToken(t *testing.T, kp crypto.Keypair, now time.Time) Token {
	t.Helper()
	return New(kp, []Capability{{Scope: "/", Actions: ActionRead | ActionWrite}}, now)
}

func TestSignupOpenModeCreatesUserAndSession(t *testing.T) {
	st := storemem.New()
	svc := NewSignupService(st, nil, SignupOpen)

	kp, err := crypto.GenerateKeypair()
	require.NoError(t, err)
	now := time.Now()

	session, err := svc.Signup(context.Background(), SignupRequest{
		Token:     rootToken(t, kp, now),
		UserAgent: "test-agent",
	})
	require.NoError(t, err)
	require.Equal(t, kp.Public(), session.UserPK)

	user, err := st.GetUser(context.Background(), kp.Public())
	require.NoError(t, err)
	require.False(t, user.Disabled)
}

func TestSignupTokenRequiredWithoutCodeFails(t *testing.T) {
	st := storemem.New()
	svc := NewSignupService(st, nil, SignupTokenRequired)

	kp, err := crypto.GenerateKeypair()
	require.NoError(t, err)
	now := time.Now()

	_, err = svc.Signup(context.Background(), SignupRequest{Token: rootToken(t, kp, now)})
	require.True(t, pkherr.Is(err, pkherr.SignupCodeRequired))
}

func TestSignupTokenRequiredConsumesCodeIdempotently(t *testing.T) {
	st := storemem.New()
	svc := NewSignupService(st, nil, SignupTokenRequired)

	codeID := [32]byte{1, 2, 3}
	require.NoError(t, st.CreateSignupCode(context.Background(), &store.SignupCode{ID: codeID, CreatedAt: time.Now()}))

	kp, err := crypto.GenerateKeypair()
	require.NoError(t, err)
	now := time.Now()

	_, err = svc.Signup(context.Background(), SignupRequest{
		Token:        rootToken(t, kp, now),
		SignupCodeID: &codeID,
	})
	require.NoError(t, err)

	code, err := st.GetSignupCode(context.Background(), codeID)
	require.NoError(t, err)
	require.NotNil(t, code.ConsumedBy)
	require.Equal(t, kp.Public(), *code.ConsumedBy)
}

func TestSignupRejectsNonRootCapability(t *testing.T) {
	st := storemem.New()
	svc := NewSignupService(st, nil, SignupOpen)

	kp, err := crypto.GenerateKeypair()
	require.NoError(t, err)
	now := time.Now()
	tok := New(kp, []Capability{{Scope: "/pub/", Actions: ActionRead}}, now)

	_, err = svc.Signup(context.Background(), SignupRequest{Token: tok})
	require.True(t, pkherr.Is(err, pkherr.BadCapability))
}

func TestSignupCodeRejectedUnderDifferentKey(t *testing.T) {
	st := storemem.New()
	svc := NewSignupService(st, nil, SignupTokenRequired)

	codeID := [32]byte{9, 9, 9}
	require.NoError(t, st.CreateSignupCode(context.Background(), &store.SignupCode{ID: codeID, CreatedAt: time.Now()}))

	kp1, err := crypto.GenerateKeypair()
	require.NoError(t, err)
	kp2, err := crypto.GenerateKeypair()
	require.NoError(t, err)
	now := time.Now()

	_, err = svc.Signup(context.Background(), SignupRequest{
		Token:        rootToken(t, kp1, now),
		SignupCodeID: &codeID,
	})
	require.NoError(t, err)

	_, err = svc.Signup(context.Background(), SignupRequest{
		Token:        rootToken(t, kp2, now),
		SignupCodeID: &codeID,
	})
	require.True(t, pkherr.Is(err, pkherr.SignupCodeAlreadyUsed))
}

func TestSignupRepeatWithSameKeySucceeds(t *testing.T) {
	st := storemem.New()
	svc := NewSignupService(st, nil, SignupTokenRequired)

	codeID := [32]byte{7}
	require.NoError(t, st.CreateSignupCode(context.Background(), &store.SignupCode{ID: codeID, CreatedAt: time.Now()}))

	kp, err := crypto.GenerateKeypair()
	require.NoError(t, err)
	now := time.Now()

	first, err := svc.Signup(context.Background(), SignupRequest{
		Token:        rootToken(t, kp, now),
		SignupCodeID: &codeID,
	})
	require.NoError(t, err)

	second, err := svc.Signup(context.Background(), SignupRequest{
		Token:        rootToken(t, kp, now),
		SignupCodeID: &codeID,
	})
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)
}
