package diaspora

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionPodURL(t *testing.T) {
	tests := []struct {
		name   string
		secure bool
		path   string
		want   string
	}{
		{name: "EmptyPath", secure: true, path: "", want: "https://pod.example.org"},
		{name: "BareSlash", secure: true, path: "/", want: "https://pod.example.org"},
		{name: "PlainPath", secure: true, path: "a", want: "https://pod.example.org/a"},
		{name: "LeadingSlash", secure: true, path: "/a", want: "https://pod.example.org/a"},
		{name: "TrailingSlash", secure: true, path: "a/", want: "https://pod.example.org/a"},
		{name: "DoubleTrailingSlash", secure: true, path: "a//", want: "https://pod.example.org/a"},
		{name: "NestedPath", secure: true, path: "/posts/123/", want: "https://pod.example.org/posts/123"},
		{name: "InsecureScheme", secure: false, path: "a", want: "http://pod.example.org/a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession("pod.example.org", tt.secure)
			require.Equal(t, tt.want, s.podURL(tt.path))
		})
	}
}

func TestSessionAbsorb(t *testing.T) {
	s := newSession("pod.example.org", true)
	s.cookies["old"] = "1"

	s.absorb(&exchange{
		StatusCode: 200,
		Status:     "200 OK",
		Body:       `<meta name="csrf-token" content="tok-new" />`,
		Cookies:    map[string]string{"_diaspora_session": "abc", "old": "2"},
	})

	require.Equal(t, "tok-new", s.token)
	require.Equal(t, map[string]string{"old": "2", "_diaspora_session": "abc"}, s.cookies)

	// A body without a token keeps the previous one.
	s.absorb(&exchange{StatusCode: 302, Status: "302 Found", Body: "redirecting"})
	require.Equal(t, "tok-new", s.token)
}

func TestSessionSetErrorMergesExchangeStatus(t *testing.T) {
	s := newSession("pod.example.org", true)

	err := s.setError(KindPostFailed, "boom", helpTag("post_failed"))
	require.Equal(t, KindPostFailed, err.Kind)
	require.Equal(t, "post_failed", err.Aux["help_tag"])
	require.NotContains(t, err.Aux, "status_code")

	s.lastExchange = &exchange{StatusCode: 422, Status: "422 Unprocessable Entity"}
	err = s.setError(KindPostFailed, "boom", nil)
	require.Equal(t, "422", err.Aux["status_code"])
	require.Equal(t, "422 Unprocessable Entity", err.Aux["status_message"])
	require.Same(t, err, s.lastError)
}

func TestSessionLogoutKeepsTokenAndCookies(t *testing.T) {
	s := newSession("pod.example.org", true)
	s.token = "tok1"
	s.cookies["_diaspora_session"] = "abc"
	s.loggedIn = true
	s.username = "alice"
	s.password = "secret"
	s.aspects = map[string]string{"public": "Public"}
	s.services = map[string]string{"twitter": "Twitter"}

	s.logout()

	require.False(t, s.loggedIn)
	require.Empty(t, s.username)
	require.Empty(t, s.password)
	require.Nil(t, s.aspects)
	require.Nil(t, s.services)
	require.Equal(t, "tok1", s.token)
	require.Equal(t, "abc", s.cookies["_diaspora_session"])
}

func TestSessionDeinitResetsEverything(t *testing.T) {
	s := newSession("pod.example.org", true)
	s.token = "tok1"
	s.cookies["_diaspora_session"] = "abc"
	s.loggedIn = true
	s.lastError = &OpError{Kind: KindPostFailed, Message: "boom"}
	s.lastExchange = &exchange{StatusCode: 500}

	s.deinit()

	require.False(t, s.loggedIn)
	require.Empty(t, s.token)
	require.Empty(t, s.cookies)
	require.Nil(t, s.lastError)
	require.Nil(t, s.lastExchange)
}
