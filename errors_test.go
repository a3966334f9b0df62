package diaspora

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpErrorFormatting(t *testing.T) {
	err := &OpError{Kind: KindLoginFailed, Message: "login to pod failed"}
	require.Equal(t, "diaspora: login_failed: login to pod failed", err.Error())

	var nilErr *OpError
	require.Equal(t, "", nilErr.Error())
}

func TestOpErrorKindMatching(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &OpError{Kind: KindDeleteFailed, Message: "nope"})

	require.True(t, errors.Is(err, &OpError{Kind: KindDeleteFailed}))
	require.False(t, errors.Is(err, &OpError{Kind: KindPostFailed}))

	var opErr *OpError
	require.True(t, errors.As(err, &opErr))
	require.Equal(t, KindDeleteFailed, opErr.Kind)
}

func TestServerMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "ErrorKey", body: `{"error":"text is blank"}`, want: "text is blank"},
		{name: "MessageKey", body: `{"message":"nope"}`, want: "nope"},
		{name: "DetailKey", body: `{"detail":"bad request"}`, want: "bad request"},
		{name: "ErrorKeyWins", body: `{"error":"first","message":"second"}`, want: "first"},
		{name: "EmptyString", body: `{"error":"  "}`, want: unknownErrorMessage},
		{name: "NonStringValue", body: `{"error":{"code":1}}`, want: unknownErrorMessage},
		{name: "NotJSON", body: `<html>teapot</html>`, want: unknownErrorMessage},
		{name: "EmptyBody", body: "", want: unknownErrorMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, serverMessage(tt.body))
		})
	}
}

func TestTitlecase(t *testing.T) {
	require.Equal(t, "Twitter", titlecase("twitter"))
	require.Equal(t, "", titlecase(""))
	require.Equal(t, "X", titlecase("x"))
}
