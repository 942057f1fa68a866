package pkdns

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pubky-x-project/pkhost/crypto"
)

func TestSignedRecordRoundTrip(t *testing.T) {
	kp, err := crypto.GenerateKeypair()
	require.NoError(t, err)

	rec, err := Sign(kp, 1, []byte("hello"))
	require.NoError(t, err)
	require.True(t, rec.Verify())

	encoded := rec.Encode()
	decoded, err := DecodeSignedRecord(encoded)
	require.NoError(t, err)
	require.Equal(t, rec.PublicKey, decoded.PublicKey)
	require.Equal(t, rec.Seq, decoded.Seq)
	require.Equal(t, rec.Value, decoded.Value)
	require.Equal(t, rec.Sig, decoded.Sig)
	require.True(t, decoded.Verify())
}

func TestSignedRecordRejectsTamperedValue(t *testing.T) {
	kp, err := crypto.GenerateKeypair()
	require.NoError(t, err)

	rec, err := Sign(kp, 1, []byte("hello"))
	require.NoError(t, err)

	rec.Value = []byte("hellp")
	require.False(t, rec.Verify())
}

func TestSignRejectsOversizedValue(t *testing.T) {
	kp, err := crypto.GenerateKeypair()
	require.NoError(t, err)

	_, err = Sign(kp, 1, make([]byte, MaxRecordValueSize+1))
	require.Error(t, err)
}

func TestPubkyRecordRoundTrip(t *testing.T) {
	kp, err := crypto.GenerateKeypair()
	require.NoError(t, err)

	rec := NewPubkyRecord(kp.Public())
	rec.Params[ReservedParamHTTPPort] = []byte{0x1f, 0x90}
	rec.Params[9999] = []byte("future-extension")

	encoded, err := rec.Encode()
	require.NoError(t, err)
	require.LessOrEqual(t, len(encoded), MaxRecordValueSize)

	decoded, err := DecodePubkyRecord(encoded)
	require.NoError(t, err)
	require.Equal(t, rec.HomeserverKey, decoded.HomeserverKey)
	require.Equal(t, rec.Params[ReservedParamHTTPPort], decoded.Params[ReservedParamHTTPPort])
	require.Equal(t, rec.Params[9999], decoded.Params[9999])
}

func TestDecodePubkyRecordRejectsVersionZero(t *testing.T) {
	kp, err := crypto.GenerateKeypair()
	require.NoError(t, err)
	rec := NewPubkyRecord(kp.Public())
	encoded, err := rec.Encode()
	require.NoError(t, err)

	encoded[0] = 0
	_, err = DecodePubkyRecord(encoded)
	require.Error(t, err)
}

func TestDecodePubkyRecordRejectsFutureVersion(t *testing.T) {
	kp, err := crypto.GenerateKeypair()
	require.NoError(t, err)
	rec := NewPubkyRecord(kp.Public())
	encoded, err := rec.Encode()
	require.NoError(t, err)

	encoded[0] = currentRecordVersion + 1
	_, err = DecodePubkyRecord(encoded)
	require.Error(t, err)
}
