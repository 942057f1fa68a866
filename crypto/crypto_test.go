package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	kp, err := GenerateKeypair()
	require.NoError(t, err)

	msg := []byte("hello pubky")
	sig := kp.Sign(msg)
	require.True(t, Verify(kp.Public(), msg, sig))
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	kp, err := GenerateKeypair()
	require.NoError(t, err)

	msg := []byte("hello pubky")
	sig := kp.Sign(msg)

	tampered := append([]byte{}, msg...)
	tampered[0] ^= 0x01
	require.False(t, Verify(kp.Public(), tampered, sig))
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	kp, err := GenerateKeypair()
	require.NoError(t, err)

	msg := []byte("hello pubky")
	sig := kp.Sign(msg)
	sig[0] ^= 0x01
	require.False(t, Verify(kp.Public(), msg, sig))
}

func TestPublicKeyZ32RoundTrip(t *testing.T) {
	kp, err := GenerateKeypair()
	require.NoError(t, err)

	s := kp.Public().String()
	require.Len(t, s, 52)

	parsed, err := ParsePublicKey(s)
	require.NoError(t, err)
	require.Equal(t, kp.Public(), parsed)
}

func TestSignWithTagDomainSeparation(t *testing.T) {
	kp, err := GenerateKeypair()
	require.NoError(t, err)

	msg := []byte("capabilities")
	sig := SignWithTag(kp, "PUBKY:AUTH", msg)
	require.True(t, VerifyWithTag(kp.Public(), "PUBKY:AUTH", msg, sig))
	require.False(t, VerifyWithTag(kp.Public(), "OTHER:TAG", msg, sig))
}

func TestKeypairFromSeedDeterministic(t *testing.T) {
	seed := make([]byte, SeedSize)
	for i := range seed {
		seed[i] = byte(i)
	}

	kp1, err := KeypairFromSeed(seed)
	require.NoError(t, err)
	kp2, err := KeypairFromSeed(seed)
	require.NoError(t, err)
	require.Equal(t, kp1.Public(), kp2.Public())
}

func TestBlake3Deterministic(t *testing.T) {
	in := []byte("hi")
	require.Equal(t, Blake3(in), Blake3(in))
	require.NotEqual(t, Blake3(in), Blake3([]byte("hj")))
}

func TestHasherMatchesBlake3(t *testing.T) {
	in := []byte("streamed content")
	h := NewHasher()
	_, err := h.Write(in[:5])
	require.NoError(t, err)
	_, err = h.Write(in[5:])
	require.NoError(t, err)
	require.Equal(t, Blake3(in), h.Sum())
}
