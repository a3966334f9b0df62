package diaspora

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Wire endpoints on the pod. The sign-in page doubles as the token
// source; the bookmarklet is only served to authenticated sessions
// and embeds the aspect and service lists.
const (
	signInPath         = "users/sign_in"
	bookmarkletPath    = "bookmarklet"
	statusMessagesPath = "status_messages"
)

// Init establishes the connection to the configured pod by fetching a
// CSRF token from its sign-in page. A token already on hand is reused;
// call InitPod with a different pod or scheme to force a refetch.
// Init must succeed before Login.
func (c *Client) Init(ctx context.Context) error {
	return c.InitPod(ctx, c.session.pod, c.session.secure)
}

// InitPod is Init with an explicit pod and scheme. Supplying a pod or
// scheme different from the session's discards the cached token and
// bootstraps a fresh one.
func (c *Client) InitPod(ctx context.Context, pod string, secure bool) error {
	c.session.clearError()

	if pod != c.session.pod || secure != c.session.secure {
		c.session.pod = pod
		c.session.secure = secure
		c.session.token = ""
		// Cookies are scoped to the previous pod; never replay them
		// against the new one.
		c.session.cookies = map[string]string{}
	}

	if _, err := c.fetchToken(ctx, false); err != nil {
		return c.session.setError(KindInitFailed,
			fmt.Sprintf("failed to initialize connection to %s: %v", c.session.pod, err),
			helpTag("troubleshooting"))
	}
	return nil
}

// Login authenticates against the pod with the given credentials. It
// requires a prior successful Init. Logging in again with the same
// credentials is a no-op; use LoginForce to redo the handshake.
func (c *Client) Login(ctx context.Context, username, password string) error {
	return c.LoginForce(ctx, username, password, false)
}

// LoginForce is Login with an explicit force flag.
func (c *Client) LoginForce(ctx context.Context, username, password string, force bool) error {
	if c.session.token == "" {
		c.session.logout()
		return c.session.setError(KindNotInitialized,
			"connection not initialized, call Init before Login", helpTag("not_initialized"))
	}
	if username == "" || password == "" {
		c.session.logout()
		return c.session.setError(KindInvalidCredentials,
			"username and password are required", helpTag("invalid_credentials"))
	}
	if !force && c.session.loggedIn && username == c.session.username && password == c.session.password {
		c.session.clearError()
		return nil
	}

	c.session.loggedIn = false
	c.session.username = username
	c.session.password = password

	token, err := c.fetchToken(ctx, false)
	if err != nil {
		c.session.logout()
		return c.session.setError(KindLoginFailed,
			fmt.Sprintf("login to %s failed: %v", c.session.pod, err), helpTag("login_failed"))
	}

	form := url.Values{}
	form.Set("user[username]", username)
	form.Set("user[password]", password)
	form.Set("authenticity_token", token)

	headers := http.Header{}
	headers.Set("Content-Type", "application/x-www-form-urlencoded")
	if _, err := c.request(ctx, http.MethodPost, signInPath, headers, strings.NewReader(form.Encode())); err != nil {
		c.session.logout()
		return c.session.setError(KindLoginFailed,
			fmt.Sprintf("login to %s failed: %v", c.session.pod, err), helpTag("login_failed"))
	}

	// A redirect off the sign-in form proves nothing; many pods
	// redirect on failed logins too. The bookmarklet is only served
	// to authenticated sessions, so a 200 there confirms the login
	// actually took.
	ex, err := c.request(ctx, http.MethodGet, bookmarkletPath, nil, nil)
	if err != nil || ex.StatusCode != http.StatusOK {
		c.session.logout()
		return c.session.setError(KindLoginFailed,
			fmt.Sprintf("login to %s failed, check username and password", c.session.pod),
			helpTag("login_failed"))
	}

	c.session.loggedIn = true
	c.session.clearError()
	return nil
}

// Logout drops the credentials and the cached aspect/service lists.
// The token and cookies survive, so the session can log back in
// without another Init.
func (c *Client) Logout() {
	c.session.logout()
}

// Deinit resets the client to a fresh unauthenticated state, including
// the token and cookies.
func (c *Client) Deinit() {
	c.session.deinit()
}

// Post publishes a status message shared with the given aspects. An
// empty selection, or one containing the public aspect, publishes to
// everyone. extra is shallow-merged into the request payload for keys
// like "services" or "photos".
func (c *Client) Post(ctx context.Context, text string, aspects []string, extra map[string]any) (*Post, error) {
	if !c.session.loggedIn {
		return nil, c.errNotLoggedIn()
	}

	payload := map[string]any{
		"aspect_ids": normalizeAspects(aspects),
		"status_message": map[string]any{
			"text":                  text,
			"provider_display_name": c.Config.ProviderName,
		},
	}
	for k, v := range extra {
		payload[k] = v
	}

	// A token cached from Init is not trusted for a mutation; fetch a
	// freshly issued one right before posting.
	token, err := c.fetchToken(ctx, true)
	if err != nil {
		return nil, c.session.setError(KindPostFailed,
			fmt.Sprintf("failed to post: %v", err), helpTag("post_failed"))
	}

	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return nil, c.session.setError(KindPostFailed,
			fmt.Sprintf("encode post payload: %v", err), helpTag("post_failed"))
	}

	headers := http.Header{}
	headers.Set("Accept", "application/json")
	headers.Set("Content-Type", "application/json")
	headers.Set("X-CSRF-Token", token)

	ex, err := c.request(ctx, http.MethodPost, statusMessagesPath, headers, buf)
	if err != nil {
		return nil, c.session.setError(KindPostFailed,
			fmt.Sprintf("failed to post: %v", err), helpTag("post_failed"))
	}
	if ex.StatusCode != http.StatusCreated {
		return nil, c.session.setError(KindPostFailed, serverMessage(ex.Body), helpTag("post_failed"))
	}

	var post Post
	if err := json.Unmarshal([]byte(ex.Body), &post); err != nil {
		return nil, c.session.setError(KindPostFailed,
			fmt.Sprintf("decode post response: %v", err), helpTag("post_failed"))
	}
	post.Permalink = c.session.podURL("posts/" + post.GUID)

	c.session.clearError()
	return &post, nil
}

// Delete removes a post or comment owned by the logged-in user. kind
// is DeletablePost or DeletableComment.
func (c *Client) Delete(ctx context.Context, kind, id string) error {
	if !c.session.loggedIn {
		return c.errNotLoggedIn()
	}
	if kind != DeletablePost && kind != DeletableComment {
		return c.session.setError(KindDeleteFailed,
			"you can only delete posts and comments", helpTag("delete_failed"))
	}

	token, err := c.fetchToken(ctx, true)
	if err != nil {
		return c.session.setError(KindDeleteFailed,
			fmt.Sprintf("failed to delete %s: %v", kind, err), helpTag("delete_failed"))
	}

	headers := http.Header{}
	headers.Set("Accept", "application/json")
	headers.Set("X-CSRF-Token", token)

	ex, err := c.request(ctx, http.MethodDelete, kind+"s/"+url.PathEscape(id), headers, nil)
	if err != nil {
		return c.session.setError(KindDeleteFailed,
			fmt.Sprintf("failed to delete %s: %v", kind, err), helpTag("delete_failed"))
	}

	switch ex.StatusCode {
	case http.StatusNoContent:
		c.session.clearError()
		return nil
	case http.StatusNotFound:
		return c.session.setError(KindDeleteFailed,
			fmt.Sprintf("the %s you tried to delete does not exist", kind), helpTag("delete_failed"))
	case http.StatusForbidden:
		return c.session.setError(KindDeleteFailed,
			fmt.Sprintf("the %s you tried to delete does not belong to you", kind), helpTag("delete_failed"))
	default:
		return c.session.setError(KindDeleteFailed, serverMessage(ex.Body), helpTag("delete_failed"))
	}
}

// Aspects returns the user's aspects keyed by id, always including
// the public aspect. The list is fetched once and cached; pass force
// to refetch.
func (c *Client) Aspects(ctx context.Context, force bool) (map[string]string, error) {
	if !c.session.loggedIn {
		return nil, c.errNotLoggedIn()
	}
	if !force && len(c.session.aspects) > 0 {
		c.session.clearError()
		return c.session.aspects, nil
	}

	ex, err := c.request(ctx, http.MethodGet, bookmarkletPath, nil, nil)
	if err != nil {
		return nil, c.session.setError(KindAspectsFetchFailed,
			fmt.Sprintf("error loading aspects: %v", err), helpTag("aspects_failed"))
	}
	if ex.StatusCode != http.StatusOK {
		return nil, c.session.setError(KindAspectsFetchFailed,
			"error loading aspects", helpTag("aspects_failed"))
	}
	parsed, ok := parseAspects(ex.Body)
	if !ok {
		return nil, c.session.setError(KindAspectsFetchFailed,
			"error parsing aspects", helpTag("aspects_failed"))
	}

	// The public aspect is never listed by the pod but is always a
	// valid share target.
	aspects := map[string]string{AspectPublic: "Public"}
	for id, name := range parsed {
		aspects[id] = name
	}
	c.session.aspects = aspects

	c.session.clearError()
	return aspects, nil
}

// Services returns the third-party services the pod can relay posts
// to, keyed by service id. The list is fetched once and cached; pass
// force to refetch. An empty map is a valid result.
func (c *Client) Services(ctx context.Context, force bool) (map[string]string, error) {
	if !c.session.loggedIn {
		return nil, c.errNotLoggedIn()
	}
	if !force && len(c.session.services) > 0 {
		c.session.clearError()
		return c.session.services, nil
	}

	ex, err := c.request(ctx, http.MethodGet, bookmarkletPath, nil, nil)
	if err != nil {
		return nil, c.session.setError(KindServicesFetchFailed,
			fmt.Sprintf("error loading services: %v", err), helpTag("services_failed"))
	}
	if ex.StatusCode != http.StatusOK {
		return nil, c.session.setError(KindServicesFetchFailed,
			"error loading services", helpTag("services_failed"))
	}
	parsed, ok := parseServices(ex.Body)
	if !ok {
		return nil, c.session.setError(KindServicesFetchFailed,
			"error parsing services", helpTag("services_failed"))
	}

	services := map[string]string{}
	for _, id := range parsed {
		services[id] = titlecase(id)
	}
	c.session.services = services

	c.session.clearError()
	return services, nil
}

// fetchToken returns the session's CSRF token, bootstrapping one from
// the sign-in page when none is cached or force is set. The sign-in
// GET also seeds the session cookies.
func (c *Client) fetchToken(ctx context.Context, force bool) (string, error) {
	if force {
		c.session.token = ""
	}
	if c.session.token != "" {
		return c.session.token, nil
	}

	if _, err := c.request(ctx, http.MethodGet, signInPath, nil, nil); err != nil {
		return "", err
	}
	if c.session.token == "" {
		return "", errors.New("could not find the CSRF token on the sign-in page")
	}
	return c.session.token, nil
}

// request performs one round trip against the pod with the session's
// current cookie snapshot and folds the response back into the
// session. On a transport failure the previous exchange is discarded
// so a stale status is never merged into the resulting error.
func (c *Client) request(ctx context.Context, method, path string, headers http.Header, body io.Reader) (*exchange, error) {
	ex, err := c.transport.do(ctx, request{
		method:  method,
		url:     c.session.podURL(path),
		body:    body,
		headers: headers,
		cookies: c.session.cookies,
	})
	if err != nil {
		c.session.lastExchange = nil
		return nil, err
	}
	c.session.absorb(ex)
	return ex, nil
}

func (c *Client) errNotLoggedIn() *OpError {
	return c.session.setError(KindNotLoggedIn,
		"not logged in, call Login first", helpTag("not_logged_in"))
}
