package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pubky-x-project/pkhost/crypto"
	"github.com/pubky-x-project/pkhost/pkherr"
	"github.com/pubky-x-project/pkhost/store"
)

func testPK(t *testing.T) crypto.PublicKey {
	kp, err := crypto.GenerateKeypair()
	require.NoError(t, err)
	return kp.Public()
}

func TestCreateAndGetUser(t *testing.T) {
	ctx := context.Background()
	s := New()
	pk := testPK(t)

	require.NoError(t, s.CreateUser(ctx, &store.User{PublicKey: pk, CreatedAt: time.Now()}))
	u, err := s.GetUser(ctx, pk)
	require.NoError(t, err)
	require.Equal(t, pk, u.PublicKey)

	err = s.CreateUser(ctx, &store.User{PublicKey: pk})
	require.True(t, pkherr.Is(err, pkherr.Conflict))
}

func TestAdjustQuotaFloorsAtZero(t *testing.T) {
	ctx := context.Background()
	s := New()
	pk := testPK(t)
	require.NoError(t, s.CreateUser(ctx, &store.User{PublicKey: pk}))

	require.NoError(t, s.AdjustQuota(ctx, pk, 100))
	require.NoError(t, s.AdjustQuota(ctx, pk, -500))

	u, err := s.GetUser(ctx, pk)
	require.NoError(t, err)
	require.Equal(t, int64(0), u.QuotaBytesUsed)
}

func TestConsumeSignupCodeIdempotentThenConflict(t *testing.T) {
	ctx := context.Background()
	s := New()
	var id [32]byte
	id[0] = 7
	require.NoError(t, s.CreateSignupCode(ctx, &store.SignupCode{ID: id, CreatedAt: time.Now()}))

	pkA := testPK(t)
	pkB := testPK(t)

	require.NoError(t, s.ConsumeSignupCode(ctx, id, pkA))
	require.NoError(t, s.ConsumeSignupCode(ctx, id, pkA))

	err := s.ConsumeSignupCode(ctx, id, pkB)
	require.True(t, pkherr.Is(err, pkherr.SignupCodeAlreadyUsed))
}

func TestListEntriesPrefixAndCursor(t *testing.T) {
	ctx := context.Background()
	s := New()
	pk := testPK(t)

	paths := []string{"/pub/a", "/pub/b", "/pub/c", "/priv/x"}
	for _, p := range paths {
		require.NoError(t, s.UpsertEntry(ctx, &store.Entry{UserPK: pk, Path: p}))
	}

	out, err := s.ListEntries(ctx, pk, "/pub/", "", 10, false)
	require.NoError(t, err)
	require.Len(t, out, 3)

	out, err = s.ListEntries(ctx, pk, "/pub/", "/pub/a", 10, false)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "/pub/b", out[0].Path)
}

func TestTransactionCommitIsVisible(t *testing.T) {
	ctx := context.Background()
	s := New()
	pk := testPK(t)

	tx, err := s.BeginWrite(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateUser(ctx, &store.User{PublicKey: pk}))
	require.NoError(t, tx.Commit(ctx))

	_, err = s.GetUser(ctx, pk)
	require.NoError(t, err)
}

func TestEventsOrderedByCursor(t *testing.T) {
	ctx := context.Background()
	s := New()
	pk := testPK(t)

	require.NoError(t, s.AppendEvent(ctx, &store.Event{Cursor: "0000000000001", UserPK: pk, Kind: store.EventPut, Path: "/a"}))
	require.NoError(t, s.AppendEvent(ctx, &store.Event{Cursor: "0000000000002", UserPK: pk, Kind: store.EventPut, Path: "/b"}))

	out, err := s.ListEvents(ctx, pk, "0000000000001", 10)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "/b", out[0].Path)
}
