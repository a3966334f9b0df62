package diaspora

import (
	"fmt"
	"strconv"
	"strings"
)

// session is the single source of truth for one pod connection: the
// pod identity, the CSRF token and cookies the pod has issued, the
// caller's credentials, and the cached aspect/service lists. It
// performs no network I/O.
//
// A session is owned by exactly one Client and is not safe for
// concurrent use. Callers needing parallel connections use one Client
// per in-flight pod.
type session struct {
	pod    string
	secure bool

	token   string
	cookies map[string]string

	loggedIn bool
	username string
	password string

	aspects  map[string]string
	services map[string]string

	lastError    *OpError
	lastExchange *exchange
}

func newSession(pod string, secure bool) *session {
	return &session{
		pod:     pod,
		secure:  secure,
		cookies: map[string]string{},
	}
}

// podURL builds scheme://pod/path. Leading and trailing slashes in
// path are normalized away, so "a", "/a", "a/" and "a//" all yield
// the same URL; "" and "/" yield the bare pod root.
func (s *session) podURL(path string) string {
	scheme := "https"
	if !s.secure {
		scheme = "http"
	}
	path = strings.Trim(path, "/")
	if path != "" {
		path = "/" + path
	}
	return fmt.Sprintf("%s://%s%s", scheme, s.pod, path)
}

// absorb folds a completed exchange into the session: cookies are
// merged and the token is refreshed when the body carries one. This
// runs after every round trip regardless of the operation's own
// outcome, so a later call is never penalized by an earlier call's
// logical failure.
func (s *session) absorb(ex *exchange) {
	if ex == nil {
		return
	}
	s.lastExchange = ex
	for name, value := range ex.Cookies {
		s.cookies[name] = value
	}
	if token := parseToken(ex.Body); token != "" {
		s.token = token
	}
}

// setError records the sticky last error, merging in the status of
// the most recent exchange when one exists. It returns the error so
// failure paths read as a single statement.
func (s *session) setError(kind ErrorKind, message string, aux map[string]string) *OpError {
	merged := map[string]string{}
	for k, v := range aux {
		merged[k] = v
	}
	if s.lastExchange != nil {
		merged["status_code"] = strconv.Itoa(s.lastExchange.StatusCode)
		merged["status_message"] = s.lastExchange.Status
	}
	err := &OpError{Kind: kind, Message: message, Aux: merged}
	s.lastError = err
	return err
}

func (s *session) clearError() {
	s.lastError = nil
}

// logout drops the credentials and the lists derived from them. The
// token and cookies survive: logging out is not disconnecting, and the
// session can log back in without another token bootstrap.
func (s *session) logout() {
	s.loggedIn = false
	s.username = ""
	s.password = ""
	s.aspects = nil
	s.services = nil
}

// deinit resets the session to a fresh unauthenticated state,
// including the token and cookies.
func (s *session) deinit() {
	s.logout()
	s.token = ""
	s.cookies = map[string]string{}
	s.lastError = nil
	s.lastExchange = nil
}
