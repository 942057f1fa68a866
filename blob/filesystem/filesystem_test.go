package filesystem

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pubky-x-project/pkhost/crypto"
	"github.com/pubky-x-project/pkhost/pkherr"
)

func TestWriteReadRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b, err := New(dir)
	require.NoError(t, err)

	hash, size, err := b.Write(ctx, "abcd1234", bytes.NewReader([]byte("payload")))
	require.NoError(t, err)
	require.Equal(t, int64(7), size)
	require.Equal(t, crypto.Blake3([]byte("payload")), hash)

	rc, err := b.Read(ctx, "abcd1234")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "payload", string(data))
}

func TestReadMissingKey(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b, err := New(dir)
	require.NoError(t, err)

	_, err = b.Read(ctx, "nope1234")
	require.True(t, pkherr.Is(err, pkherr.NotFound))
}

func TestShortKeyFallsBackToFlatDirectory(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b, err := New(dir)
	require.NoError(t, err)

	_, _, err = b.Write(ctx, "ab", bytes.NewReader([]byte("x")))
	require.NoError(t, err)
	ok, err := b.Exists(ctx, "ab")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestDeleteMissingKeyIsNotError(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b, err := New(dir)
	require.NoError(t, err)
	require.NoError(t, b.Delete(ctx, "nothinghere"))
}

func TestWriteLeavesNoTempFilesBehind(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b, err := New(dir)
	require.NoError(t, err)
	_, _, err = b.Write(ctx, "deadbeef", bytes.NewReader([]byte("x")))
	require.NoError(t, err)

	shardDir := filepath.Dir(b.path("deadbeef"))
	entries, err := os.ReadDir(shardDir)
	require.NoError(t, err)
	for _, e := range entries {
		require.NotContains(t, e.Name(), ".tmp-")
	}
}
