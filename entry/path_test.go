package entry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pubky-x-project/pkhost/crypto"
)

func TestParseWebDavPathRejectsDotDot(t *testing.T) {
	_, err := ParseWebDavPath("a/../b")
	require.Error(t, err)
}

func TestParseWebDavPathRejectsEmptySegment(t *testing.T) {
	_, err := ParseWebDavPath("a//b")
	require.Error(t, err)
}

func TestParseWebDavPathRejectsTrailingSlash(t *testing.T) {
	_, err := ParseWebDavPath("a/b/")
	require.Error(t, err)
}

func TestParseWebDavPathStripsLeadingSlash(t *testing.T) {
	clean, err := ParseWebDavPath("/pub/profile.json")
	require.NoError(t, err)
	require.Equal(t, "pub/profile.json", clean)
}

func TestPathIsPublic(t *testing.T) {
	kp, err := crypto.GenerateKeypair()
	require.NoError(t, err)

	pub, err := NewPath(kp.Public(), "/pub/profile.json")
	require.NoError(t, err)
	require.True(t, pub.IsPublic())

	priv, err := NewPath(kp.Public(), "/private/notes.txt")
	require.NoError(t, err)
	require.False(t, priv.IsPublic())
}
