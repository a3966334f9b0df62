package diaspora

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const userAgent = "diaspora-golang/0.1.0"

// exchange is the raw outcome of one HTTP round trip. A non-2xx
// status is a valid exchange, not an error; only DNS, connect and TLS
// failures surface as errors from the transport.
type exchange struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       string
	Cookies    map[string]string
}

// request describes one round trip for the transport to perform.
type request struct {
	method  string
	url     string
	body    io.Reader
	headers http.Header
	cookies map[string]string
}

// transport performs exactly one HTTP round trip per call. It owns no
// retry logic and never follows redirects: the login flow judges
// success by observing the first hop's status code.
type transport struct {
	client    *http.Client
	cfg       Config
	logger    zerolog.Logger
	redactMap map[string]struct{}
}

func newTransport(cfg Config) (*transport, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RequestIDHeader == "" {
		cfg.RequestIDHeader = defaultRequestIDHeader
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = defaultMaxIdleConns
	}
	if cfg.MaxIdleConnsPerHost == 0 {
		cfg.MaxIdleConnsPerHost = defaultMaxIdlePerHost
	}
	if cfg.IdleConnTimeout == 0 {
		cfg.IdleConnTimeout = defaultIdleConnTimeout
	}

	httpTransport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
	}
	if cfg.ProxyURL != nil {
		httpTransport.Proxy = http.ProxyURL(cfg.ProxyURL)
	}

	tlsConfig := &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify}
	if cfg.CABundle != "" {
		pem, err := os.ReadFile(cfg.CABundle)
		if err != nil {
			return nil, fmt.Errorf("read CA bundle: %w", err)
		}
		pool, err := x509.SystemCertPool()
		if err != nil {
			pool = x509.NewCertPool()
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("CA bundle %s contains no usable certificates", cfg.CABundle)
		}
		tlsConfig.RootCAs = pool
	}
	httpTransport.TLSClientConfig = tlsConfig

	logger := cfg.Logger
	if cfg.Debug && logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "diaspora").Logger()
	}

	redactions := map[string]struct{}{}
	for _, h := range cfg.RedactHeaders {
		redactions[strings.ToLower(h)] = struct{}{}
	}

	return &transport{
		cfg: cfg,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: httpTransport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger:    logger,
		redactMap: redactions,
	}, nil
}

func (t *transport) close() {
	if tr, ok := t.client.Transport.(interface{ CloseIdleConnections() }); ok {
		tr.CloseIdleConnections()
	}
}

func (t *transport) do(ctx context.Context, r request) (*exchange, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, r.url, r.body)
	if err != nil {
		return nil, err
	}

	t.applyHeaders(req, r.headers)
	for name, value := range r.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	t.attachRequestID(req)
	t.runRequestHooks(req)
	t.logRequest(req)

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}

	body, readErr := io.ReadAll(resp.Body)
	resp.Body.Close()
	if readErr != nil {
		return nil, fmt.Errorf("read response: %w", readErr)
	}

	t.logResponse(req, resp, body, time.Since(start))
	t.runResponseHooks(resp, body)

	cookies := map[string]string{}
	for _, c := range resp.Cookies() {
		cookies[c.Name] = c.Value
	}

	return &exchange{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       string(body),
		Cookies:    cookies,
	}, nil
}

func (t *transport) applyHeaders(req *http.Request, headers http.Header) {
	req.Header.Set("User-Agent", userAgent)
	for k, vals := range t.cfg.ExtraHeaders {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	for k, vals := range headers {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
}

func (t *transport) attachRequestID(req *http.Request) {
	if t.cfg.RequestIDHeader == "" {
		return
	}
	if req.Header.Get(t.cfg.RequestIDHeader) != "" {
		return
	}
	switch {
	case t.cfg.DefaultRequestID != "":
		req.Header.Set(t.cfg.RequestIDHeader, t.cfg.DefaultRequestID)
	case t.cfg.AutoRequestID:
		req.Header.Set(t.cfg.RequestIDHeader, uuid.NewString())
	}
}

func (t *transport) runRequestHooks(req *http.Request) {
	for i, hook := range t.cfg.BeforeRequest {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.logger.Warn().Int("hook", i).Interface("panic", r).Msg("request hook panicked")
				}
			}()
			hook(req)
		}()
	}
}

func (t *transport) runResponseHooks(resp *http.Response, body []byte) {
	for i, hook := range t.cfg.AfterResponse {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.logger.Warn().Int("hook", i).Interface("panic", r).Msg("response hook panicked")
				}
			}()
			hook(resp, body)
		}()
	}
}

func (t *transport) logRequest(req *http.Request) {
	if !t.cfg.Debug {
		return
	}
	t.logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Interface("headers", t.redactedHeaders(req.Header)).
		Msg("request")
}

func (t *transport) logResponse(req *http.Request, resp *http.Response, body []byte, duration time.Duration) {
	if !t.cfg.Debug {
		return
	}
	bodyPreview := string(body)
	if len(bodyPreview) > 512 {
		bodyPreview = bodyPreview[:512] + "…"
	}
	t.logger.Debug().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Int("status", resp.StatusCode).
		Dur("duration", duration).
		Str("body", bodyPreview).
		Msg("response")
}

func (t *transport) redactedHeaders(h http.Header) http.Header {
	if len(t.redactMap) == 0 {
		return h
	}
	cloned := cloneHeaders(h)
	for k := range cloned {
		if _, ok := t.redactMap[strings.ToLower(k)]; ok {
			cloned.Set(k, "[redacted]")
		}
	}
	return cloned
}
