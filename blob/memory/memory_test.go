package memory

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pubky-x-project/pkhost/crypto"
	"github.com/pubky-x-project/pkhost/pkherr"
)

func TestWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	b := New()

	hash, size, err := b.Write(ctx, "k1", bytes.NewReader([]byte("hello")))
	require.NoError(t, err)
	require.Equal(t, int64(5), size)
	require.Equal(t, crypto.Blake3([]byte("hello")), hash)

	rc, err := b.Read(ctx, "k1")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
}

func TestReadMissingKey(t *testing.T) {
	ctx := context.Background()
	b := New()
	_, err := b.Read(ctx, "missing")
	require.True(t, pkherr.Is(err, pkherr.NotFound))
}

func TestDeleteThenExists(t *testing.T) {
	ctx := context.Background()
	b := New()
	_, _, err := b.Write(ctx, "k1", bytes.NewReader([]byte("x")))
	require.NoError(t, err)

	ok, err := b.Exists(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, b.Delete(ctx, "k1"))
	ok, err = b.Exists(ctx, "k1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestWriteOverwritesExisting(t *testing.T) {
	ctx := context.Background()
	b := New()
	_, _, err := b.Write(ctx, "k1", bytes.NewReader([]byte("old")))
	require.NoError(t, err)
	_, _, err = b.Write(ctx, "k1", bytes.NewReader([]byte("new")))
	require.NoError(t, err)

	rc, err := b.Read(ctx, "k1")
	require.NoError(t, err)
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	require.Equal(t, "new", string(data))
}
