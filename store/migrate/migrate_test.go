package migrate

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	memorystore "github.com/pubky-x-project/pkhost/store/memory"
	"github.com/pubky-x-project/pkhost/store/legacykv"
)

func TestImportLegacyKVIsIdempotent(t *testing.T) {
	var pk [32]byte
	pk[0] = 1

	var buf bytes.Buffer
	buf.WriteByte(1) // tagUser
	body := make([]byte, 49)
	copy(body[0:32], pk[:])
	binary.LittleEndian.PutUint64(body[41:49], 256)
	var length [4]byte
	binary.LittleEndian.PutUint32(length[:], uint32(len(body)))
	buf.Write(length[:])
	buf.Write(body)

	r := legacykv.NewReader(&buf)
	dst := memorystore.New()

	summary, err := ImportLegacyKV(context.Background(), r, dst)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Users)

	r2 := legacykv.NewReader(bytes.NewReader(func() []byte {
		var b2 bytes.Buffer
		b2.WriteByte(1)
		b2.Write(length[:])
		b2.Write(body)
		return b2.Bytes()
	}()))
	summary2, err := ImportLegacyKV(context.Background(), r2, dst)
	require.NoError(t, err)
	require.Equal(t, 1, summary2.Users)
}
