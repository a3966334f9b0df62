package diaspora

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingPod = errors.New("pod domain is required. Provide it or set DIASPORA_POD")
	ErrInvalidPod = errors.New("pod must be a bare domain without scheme or path")
)

// ErrorKind classifies client operation failures.
type ErrorKind string

const (
	KindNotInitialized      ErrorKind = "not_initialized"
	KindInitFailed          ErrorKind = "init_failed"
	KindInvalidCredentials  ErrorKind = "invalid_credentials"
	KindLoginFailed         ErrorKind = "login_failed"
	KindNotLoggedIn         ErrorKind = "not_logged_in"
	KindPostFailed          ErrorKind = "post_failed"
	KindDeleteFailed        ErrorKind = "delete_failed"
	KindAspectsFetchFailed  ErrorKind = "aspects_fetch_failed"
	KindServicesFetchFailed ErrorKind = "services_fetch_failed"
)

// OpError is the failure type returned by every Client operation. Aux
// carries auxiliary string data for the caller's UI layer: the status
// of the most recent exchange under "status_code"/"status_message"
// and a contextual-help tag under "help_tag".
type OpError struct {
	Kind    ErrorKind
	Message string
	Aux     map[string]string
}

func (e *OpError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("diaspora: %s: %s", e.Kind, e.Message)
}

// Is reports kind equality, so callers can match operation failures
// with errors.Is against an &OpError{Kind: ...} sentinel.
func (e *OpError) Is(target error) bool {
	var other *OpError
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}

const unknownErrorMessage = "an unknown error occurred"

// serverMessage extracts the pod's own error text from a JSON response
// body, falling back to a generic message. Pods report errors under
// different keys across versions.
func serverMessage(body string) string {
	var parsed map[string]any
	if err := json.Unmarshal([]byte(body), &parsed); err == nil {
		for _, key := range []string{"error", "message", "detail"} {
			if v, ok := parsed[key]; ok {
				if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
					return s
				}
			}
		}
	}
	return unknownErrorMessage
}

func helpTag(tag string) map[string]string {
	return map[string]string{"help_tag": tag}
}
