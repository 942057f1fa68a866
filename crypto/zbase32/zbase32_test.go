package zbase32

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{0x00},
		{0xff},
		{0x01, 0x02, 0x03, 0x04, 0x05},
		make([]byte, 32),
	}
	for i := range cases[4] {
		cases[4][i] = byte(i)
	}

	for _, in := range cases {
		enc := Encode(in)
		out, err := Decode(enc)
		require.NoError(t, err)
		require.Equal(t, in, out)
	}
}

func TestPublicKeyLength(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i * 7)
	}
	enc := Encode(key)
	require.Len(t, enc, 52)
}

func TestDecodeRejectsInvalidCharacter(t *testing.T) {
	_, err := Decode("not-a-valid-zbase32-string!!")
	require.Error(t, err)
}
