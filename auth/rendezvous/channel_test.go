package rendezvous

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pubky-x-project/pkhost/auth"
)

func TestChannelIDDeterministic(t *testing.T) {
	secret := []byte("some shared secret bytes")
	require.Equal(t, ChannelID(secret), ChannelID(secret))
	require.NotEqual(t, ChannelID(secret), ChannelID([]byte("other secret bytes")))
}

func TestBuildAndParseURLRoundTrip(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcde")
	caps := []auth.Capability{
		{Scope: "/pub/", Actions: auth.ActionRead},
		{Scope: "/priv/app/", Actions: auth.ActionRead | auth.ActionWrite},
	}

	url := BuildURL("https://relay.example", secret, caps)
	relay, gotSecret, gotCaps, err := ParseURL(url)
	require.NoError(t, err)
	require.Equal(t, "https://relay.example", relay)
	require.Equal(t, secret, gotSecret)
	require.Equal(t, caps, gotCaps)
}

func TestParseURLRejectsMissingRelay(t *testing.T) {
	_, _, _, err := ParseURL("pubkyauth://?secret=AAAA")
	require.Error(t, err)
}
