package rendezvous

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pubky-x-project/pkhost/pkherr"
)

func TestRelayStorePutThenGet(t *testing.T) {
	rs := NewRelayStore()
	cid := [32]byte{1, 2, 3}

	require.NoError(t, rs.Put(cid, []byte("ciphertext")))

	got, err := rs.Get(context.Background(), cid)
	require.NoError(t, err)
	require.Equal(t, []byte("ciphertext"), got)
}

func TestRelayStorePutRejectsOccupiedSlot(t *testing.T) {
	rs := NewRelayStore()
	cid := [32]byte{1, 2, 3}

	require.NoError(t, rs.Put(cid, []byte("first")))
	err := rs.Put(cid, []byte("second"))
	require.True(t, pkherr.Is(err, pkherr.Conflict))
}

func TestRelayStorePutAllowsReuseAfterDelivery(t *testing.T) {
	rs := NewRelayStore()
	cid := [32]byte{1, 2, 3}

	require.NoError(t, rs.Put(cid, []byte("first")))
	_, err := rs.Get(context.Background(), cid)
	require.NoError(t, err)

	require.NoError(t, rs.Put(cid, []byte("second")))
	got, err := rs.Get(context.Background(), cid)
	require.NoError(t, err)
	require.Equal(t, []byte("second"), got)
}

func TestRelayStoreGetTimesOutWhenEmpty(t *testing.T) {
	rs := NewRelayStore()
	cid := [32]byte{9, 9, 9}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := rs.Get(ctx, cid)
	require.True(t, pkherr.Is(err, pkherr.AuthTimeout))
}

func TestRelayStoreEvictsExpiredMailbox(t *testing.T) {
	rs := NewRelayStore()
	cid := [32]byte{4, 5, 6}
	start := time.Now()
	rs.now = func() time.Time { return start }

	require.NoError(t, rs.Put(cid, []byte("stale")))

	rs.now = func() time.Time { return start.Add(mailboxTTL + time.Second) }
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := rs.Get(ctx, cid)
	require.True(t, pkherr.Is(err, pkherr.AuthTimeout))
}
