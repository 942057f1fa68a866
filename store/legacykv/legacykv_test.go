package legacykv

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeRecord(buf *bytes.Buffer, tag byte, body []byte) {
	buf.WriteByte(tag)
	var length [4]byte
	binary.LittleEndian.PutUint32(length[:], uint32(len(body)))
	buf.Write(length[:])
	buf.Write(body)
}

func encodeUserBody(pk [32]byte, createdAtUnix int64, disabled bool, quota int64) []byte {
	body := make([]byte, 49)
	copy(body[0:32], pk[:])
	binary.LittleEndian.PutUint64(body[32:40], uint64(createdAtUnix))
	if disabled {
		body[40] = 1
	}
	binary.LittleEndian.PutUint64(body[41:49], uint64(quota))
	return body
}

func TestReaderDecodesUsers(t *testing.T) {
	var pk [32]byte
	pk[0] = 9

	var buf bytes.Buffer
	writeRecord(&buf, tagUser, encodeUserBody(pk, 1700000000, false, 1024))

	r := NewReader(&buf)
	users, err := r.Users()
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, pk, [32]byte(users[0].PublicKey))
	require.Equal(t, int64(1024), users[0].QuotaBytesUsed)
	require.False(t, users[0].Disabled)
}

func encodeEntryBody(pk, hash [32]byte, size, createdAt, modifiedAt int64, path, contentType, blobKey string) []byte {
	var buf bytes.Buffer
	buf.Write(pk[:])
	buf.Write(hash[:])
	var n8 [8]byte
	binary.LittleEndian.PutUint64(n8[:], uint64(size))
	buf.Write(n8[:])
	binary.LittleEndian.PutUint64(n8[:], uint64(createdAt))
	buf.Write(n8[:])
	binary.LittleEndian.PutUint64(n8[:], uint64(modifiedAt))
	buf.Write(n8[:])

	writeField := func(s string) {
		var n2 [2]byte
		binary.LittleEndian.PutUint16(n2[:], uint16(len(s)))
		buf.Write(n2[:])
		buf.WriteString(s)
	}
	writeField(path)
	writeField(contentType)
	writeField(blobKey)
	return buf.Bytes()
}

func TestReaderDecodesEntries(t *testing.T) {
	var pk, hash [32]byte
	pk[1] = 3
	hash[2] = 4

	var buf bytes.Buffer
	writeRecord(&buf, tagEntry, encodeEntryBody(pk, hash, 512, 1700000000, 1700000100, "/pub/readme.txt", "text/plain", "blob-1"))

	r := NewReader(&buf)
	entries, err := r.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "/pub/readme.txt", entries[0].Path)
	require.Equal(t, "text/plain", entries[0].ContentType)
	require.Equal(t, "blob-1", entries[0].BlobKey)
	require.Equal(t, int64(512), entries[0].SizeBytes)
}

func TestReaderSkipsUnrelatedTags(t *testing.T) {
	var pk [32]byte
	var buf bytes.Buffer
	writeRecord(&buf, tagEntry, encodeEntryBody(pk, pk, 1, 0, 0, "/x", "", ""))
	writeRecord(&buf, tagUser, encodeUserBody(pk, 0, false, 0))

	r := NewReader(&buf)
	users, err := r.Users()
	require.NoError(t, err)
	require.Len(t, users, 1)
}
