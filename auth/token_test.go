package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pubky-x-project/pkhost/crypto"
	"github.com/pubky-x-project/pkhost/pkherr"
)

func TestTokenVerifyRoundTrip(t *testing.T) {
	kp, err := crypto.GenerateKeypair()
	require.NoError(t, err)

	now := time.Now()
	tok := New(kp, []Capability{{Scope: "/pub/", Actions: ActionRead}}, now)
	require.NoError(t, tok.Verify(now.Add(time.Second)))
}

func TestTokenVerifyRejectsTamperedSignature(t *testing.T) {
	kp, err := crypto.GenerateKeypair()
	require.NoError(t, err)

	now := time.Now()
	tok := New(kp, []Capability{{Scope: "/pub/", Actions: ActionRead}}, now)
	tok.Sig[0] ^= 0xff

	err = tok.Verify(now)
	require.True(t, pkherr.Is(err, pkherr.InvalidSignature))
}

func TestTokenVerifyRejectsExpiredTimestamp(t *testing.T) {
	kp, err := crypto.GenerateKeypair()
	require.NoError(t, err)

	now := time.Now()
	tok := New(kp, []Capability{{Scope: "/pub/", Actions: ActionRead}}, now)

	err = tok.Verify(now.Add(time.Minute))
	require.True(t, pkherr.Is(err, pkherr.TokenExpired))
}

func TestTokenVerifyRejectsEmptyActionSet(t *testing.T) {
	kp, err := crypto.GenerateKeypair()
	require.NoError(t, err)

	now := time.Now()
	tok := New(kp, []Capability{{Scope: "/pub/", Actions: 0}}, now)

	err = tok.Verify(now)
	require.True(t, pkherr.Is(err, pkherr.BadCapability))
}

func TestTokenMarshalBinaryRoundTrip(t *testing.T) {
	kp, err := crypto.GenerateKeypair()
	require.NoError(t, err)

	now := time.Now()
	tok := New(kp, []Capability{
		{Scope: "/pub/", Actions: ActionRead},
		{Scope: "/priv/app/", Actions: ActionRead | ActionWrite},
	}, now)

	data, err := tok.MarshalBinary()
	require.NoError(t, err)

	got, err := DecodeToken(data)
	require.NoError(t, err)
	require.Equal(t, tok.PublicKey, got.PublicKey)
	require.Equal(t, tok.Capabilities, got.Capabilities)
	require.Equal(t, tok.Sig, got.Sig)
	require.NoError(t, got.Verify(now))
}

func TestDecodeTokenRejectsTruncatedData(t *testing.T) {
	_, err := DecodeToken([]byte{1, 2, 3})
	require.True(t, pkherr.Is(err, pkherr.BadToken))
}

func TestRootCapability(t *testing.T) {
	require.True(t, RootCapability([]Capability{{Scope: "/", Actions: ActionWrite}}))
	require.False(t, RootCapability([]Capability{{Scope: "/pub/", Actions: ActionWrite}}))
	require.False(t, RootCapability([]Capability{{Scope: "/", Actions: ActionRead}}))
}
