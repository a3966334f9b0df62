package diaspora

// Client is the main entrypoint: one authenticated connection to one
// pod. A Client holds mutable session state (token, cookies) and is
// not safe for concurrent use; use one Client per in-flight pod
// connection.
type Client struct {
	Config Config

	session   *session
	transport *transport
}

// New constructs a Client for the given pod, using environment
// fallbacks for everything else.
func New(pod string, secure bool) (*Client, error) {
	cfg, err := LoadConfig(pod, secure)
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg)
}

// NewWithParams constructs a Client from structured configuration parameters.
func NewWithParams(params ConfigParams) (*Client, error) {
	cfg, err := LoadConfigWithParams(params)
	if err != nil {
		return nil, err
	}
	return NewWithConfig(cfg)
}

// NewWithConfig builds a Client from a fully parsed Config.
func NewWithConfig(cfg Config) (*Client, error) {
	tr, err := newTransport(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{
		Config:    cfg,
		session:   newSession(cfg.Pod, cfg.Secure),
		transport: tr,
	}, nil
}

// Close releases HTTP resources.
func (c *Client) Close() {
	if c == nil || c.transport == nil {
		return
	}
	c.transport.close()
}

// IsLoggedIn reports whether a login handshake has been confirmed.
func (c *Client) IsLoggedIn() bool {
	return c.session.loggedIn
}

// TokenCached reports whether a CSRF token is on hand, i.e. whether
// Init has succeeded since the last Deinit.
func (c *Client) TokenCached() bool {
	return c.session.token != ""
}

// PodURL builds an absolute URL on the connected pod for the given
// path, normalizing redundant slashes.
func (c *Client) PodURL(path string) string {
	return c.session.podURL(path)
}

// HasLastError reports whether a failed operation has left an error
// behind.
func (c *Client) HasLastError() bool {
	return c.session.lastError != nil
}

// LastError returns the message of the most recent failure, or ""
// when there is none, optionally clearing it.
func (c *Client) LastError(clear bool) string {
	if c.session.lastError == nil {
		return ""
	}
	msg := c.session.lastError.Message
	if clear {
		c.session.clearError()
	}
	return msg
}

// LastErrorObject returns the most recent failure with its kind and
// auxiliary data, or nil, optionally clearing it.
func (c *Client) LastErrorObject(clear bool) *OpError {
	err := c.session.lastError
	if clear {
		c.session.clearError()
	}
	return err
}
