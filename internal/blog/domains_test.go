package blog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDomainFilter(t *testing.T) {
	t.Parallel()

	f := NewDomainFilter([]string{" YouTube.com ", "*.gov", ".reddit.com", "*.gov", ""})
	require.NotNil(t, f)

	cases := []struct {
		host string
		want bool
	}{
		{"youtube.com", true},
		{"www.youtube.com", true},
		{"m.youtube.com", false},
		{"energy.gov", true},
		{"gov", true},
		{"old.reddit.com", true},
		{"reddit.com:443", true},
		{"roofquote.example", false},
		{"", false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, f.MatchHost(tc.host), tc.host)
	}

	require.True(t, f.MatchURL("https://www.youtube.com/watch?v=1"))
	require.False(t, f.MatchURL("https://a.example/metal"))
	require.False(t, f.MatchURL("://bad"))
}

func TestDomainFilterNil(t *testing.T) {
	t.Parallel()

	f := NewDomainFilter([]string{" ", "*."})
	require.Nil(t, f)
	require.False(t, f.MatchHost("example.com"))
	require.False(t, f.MatchURL("https://example.com"))
}
