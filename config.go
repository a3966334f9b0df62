package diaspora

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// RequestHook allows callers to inspect or mutate requests before they are sent.
type RequestHook func(*http.Request)

// ResponseHook allows callers to inspect responses (raw bytes included).
type ResponseHook func(*http.Response, []byte)

// Config holds client configuration.
type Config struct {
	Pod    string
	Secure bool

	Timeout            time.Duration
	CABundle           string
	InsecureSkipVerify bool

	// ProviderName is sent as the provider_display_name of every
	// published status message.
	ProviderName string

	Debug bool

	ExtraHeaders http.Header
	ProxyURL     *url.URL

	RequestIDHeader  string
	DefaultRequestID string
	AutoRequestID    bool

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration

	Logger        zerolog.Logger
	RedactHeaders []string

	BeforeRequest []RequestHook
	AfterResponse []ResponseHook
}

// ConfigParams provides optional overrides for building a Config.
type ConfigParams struct {
	Pod    string
	Secure *bool

	Timeout            time.Duration
	TimeoutSeconds     float64
	CABundle           string
	InsecureSkipVerify *bool

	ProviderName string

	Debug *bool

	ExtraHeaders http.Header
	ProxyURL     string

	RequestID       string
	AutoRequestID   *bool
	RequestIDHeader string

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration

	Logger        *zerolog.Logger
	RedactHeaders []string

	BeforeRequest []RequestHook
	AfterResponse []ResponseHook
}

const (
	defaultTimeout         = 60 * time.Second
	defaultProviderName    = "diaspora-golang"
	defaultMaxIdleConns    = 100
	defaultMaxIdlePerHost  = 10
	defaultIdleConnTimeout = 90 * time.Second
	defaultRequestIDHeader = "X-Request-ID"
)

// LoadConfig builds a Config from parameters or environment variables.
// Environment fallbacks:
//
//	DIASPORA_POD, DIASPORA_INSECURE_HTTP, DIASPORA_TIMEOUT,
//	DIASPORA_CA_BUNDLE, DIASPORA_SKIP_TLS_VERIFY, DIASPORA_DEBUG,
//	DIASPORA_PROXY, DIASPORA_EXTRA_HEADERS, DIASPORA_PROVIDER_NAME,
//	DIASPORA_REQUEST_ID, DIASPORA_AUTO_REQUEST_ID,
//	DIASPORA_REQUEST_ID_HEADER, DIASPORA_MAX_IDLE_CONNS,
//	DIASPORA_MAX_IDLE_CONNS_PER_HOST, DIASPORA_IDLE_CONN_TIMEOUT.
func LoadConfig(pod string, secure bool) (Config, error) {
	return LoadConfigWithParams(ConfigParams{Pod: pod, Secure: &secure})
}

// LoadConfigWithParams is an extended constructor that accepts structured options.
func LoadConfigWithParams(params ConfigParams) (Config, error) {
	envIdleTimeout, err := parseEnvDuration("DIASPORA_IDLE_CONN_TIMEOUT", time.Second)
	if err != nil {
		return Config{}, err
	}

	envMaxIdleConns, envMaxIdleConnsSet, err := parseEnvInt("DIASPORA_MAX_IDLE_CONNS")
	if err != nil {
		return Config{}, err
	}
	envMaxIdlePerHost, envMaxIdlePerHostSet, err := parseEnvInt("DIASPORA_MAX_IDLE_CONNS_PER_HOST")
	if err != nil {
		return Config{}, err
	}

	maxIdleConns := defaultMaxIdleConns
	if envMaxIdleConnsSet {
		maxIdleConns = envMaxIdleConns
	}
	if params.MaxIdleConns != 0 {
		maxIdleConns = params.MaxIdleConns
	}

	maxIdlePerHost := defaultMaxIdlePerHost
	if envMaxIdlePerHostSet {
		maxIdlePerHost = envMaxIdlePerHost
	}
	if params.MaxIdleConnsPerHost != 0 {
		maxIdlePerHost = params.MaxIdleConnsPerHost
	}

	cfg := Config{
		Pod:                 firstNonEmpty(params.Pod, os.Getenv("DIASPORA_POD")),
		Secure:              true,
		CABundle:            firstNonEmpty(params.CABundle, os.Getenv("DIASPORA_CA_BUNDLE")),
		ProviderName:        firstNonEmpty(params.ProviderName, os.Getenv("DIASPORA_PROVIDER_NAME"), defaultProviderName),
		ExtraHeaders:        cloneHeaders(params.ExtraHeaders),
		RequestIDHeader:     firstNonEmpty(params.RequestIDHeader, os.Getenv("DIASPORA_REQUEST_ID_HEADER"), defaultRequestIDHeader),
		DefaultRequestID:    firstNonEmpty(params.RequestID, os.Getenv("DIASPORA_REQUEST_ID")),
		MaxIdleConns:        maxIdleConns,
		MaxIdleConnsPerHost: maxIdlePerHost,
		IdleConnTimeout:     firstNonZeroDuration(params.IdleConnTimeout, envIdleTimeout, defaultIdleConnTimeout),
		RedactHeaders:       params.RedactHeaders,
		BeforeRequest:       params.BeforeRequest,
		AfterResponse:       params.AfterResponse,
		AutoRequestID:       true,
	}

	if params.Logger != nil {
		cfg.Logger = *params.Logger
	} else {
		cfg.Logger = zerolog.Nop()
	}

	if cfg.ExtraHeaders == nil {
		cfg.ExtraHeaders = http.Header{}
	}
	if cfg.RedactHeaders == nil {
		cfg.RedactHeaders = []string{"Cookie", "Set-Cookie", "X-CSRF-Token", "Authorization"}
	}

	if params.Secure != nil {
		cfg.Secure = *params.Secure
	} else if env := os.Getenv("DIASPORA_INSECURE_HTTP"); env != "" {
		val, err := strconv.ParseBool(env)
		if err != nil {
			return Config{}, fmt.Errorf("parse DIASPORA_INSECURE_HTTP: %w", err)
		}
		cfg.Secure = !val
	}

	if params.InsecureSkipVerify != nil {
		cfg.InsecureSkipVerify = *params.InsecureSkipVerify
	} else if env := os.Getenv("DIASPORA_SKIP_TLS_VERIFY"); env != "" {
		val, err := strconv.ParseBool(env)
		if err != nil {
			return Config{}, fmt.Errorf("parse DIASPORA_SKIP_TLS_VERIFY: %w", err)
		}
		cfg.InsecureSkipVerify = val
	}

	if params.Debug != nil {
		cfg.Debug = *params.Debug
	} else if env := os.Getenv("DIASPORA_DEBUG"); env != "" {
		val, err := strconv.ParseBool(env)
		if err != nil {
			return Config{}, fmt.Errorf("parse DIASPORA_DEBUG: %w", err)
		}
		cfg.Debug = val
	}

	if params.Timeout > 0 {
		cfg.Timeout = params.Timeout
	} else if params.TimeoutSeconds > 0 {
		cfg.Timeout = time.Duration(params.TimeoutSeconds * float64(time.Second))
	} else if envTimeout, err := parseEnvDuration("DIASPORA_TIMEOUT", time.Second); err != nil {
		return Config{}, err
	} else if envTimeout > 0 {
		cfg.Timeout = envTimeout
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Timeout < 0 {
		return Config{}, fmt.Errorf("timeout must be non-negative")
	}

	if env := os.Getenv("DIASPORA_EXTRA_HEADERS"); env != "" {
		envHeaders, err := parseHeadersEnv(env)
		if err != nil {
			return Config{}, err
		}
		for k, vals := range envHeaders {
			for _, v := range vals {
				cfg.ExtraHeaders.Add(k, v)
			}
		}
	}

	proxyURL := params.ProxyURL
	if proxyURL == "" {
		proxyURL = os.Getenv("DIASPORA_PROXY")
	}
	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			return Config{}, fmt.Errorf("parse DIASPORA_PROXY: %w", err)
		}
		cfg.ProxyURL = parsed
	}

	if params.AutoRequestID != nil {
		cfg.AutoRequestID = *params.AutoRequestID
	} else if env := os.Getenv("DIASPORA_AUTO_REQUEST_ID"); env != "" {
		val, err := strconv.ParseBool(env)
		if err != nil {
			return Config{}, fmt.Errorf("parse DIASPORA_AUTO_REQUEST_ID: %w", err)
		}
		cfg.AutoRequestID = val
	}

	if cfg.Pod == "" {
		return Config{}, ErrMissingPod
	}
	if strings.Contains(cfg.Pod, "://") || strings.Contains(cfg.Pod, "/") {
		return Config{}, ErrInvalidPod
	}
	if cfg.MaxIdleConns < 0 {
		return Config{}, fmt.Errorf("max idle conns must be >= 0")
	}
	if cfg.MaxIdleConnsPerHost < 0 {
		return Config{}, fmt.Errorf("max idle conns per host must be >= 0")
	}
	if cfg.IdleConnTimeout < 0 {
		return Config{}, fmt.Errorf("idle connection timeout must be non-negative")
	}

	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstNonZeroDuration(values ...time.Duration) time.Duration {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

func parseEnvInt(env string) (int, bool, error) {
	val, ok := os.LookupEnv(env)
	if !ok || val == "" {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return 0, true, fmt.Errorf("parse %s: %w", env, err)
	}
	return parsed, true, nil
}

func parseEnvDuration(env string, numericUnit time.Duration) (time.Duration, error) {
	val := os.Getenv(env)
	if val == "" {
		return 0, nil
	}
	if duration, err := time.ParseDuration(val); err == nil {
		return duration, nil
	}
	seconds, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", env, err)
	}
	return time.Duration(seconds * float64(numericUnit)), nil
}

func parseHeadersEnv(val string) (http.Header, error) {
	headers := http.Header{}
	if val == "" {
		return headers, nil
	}
	for _, entry := range strings.FieldsFunc(val, func(r rune) bool { return r == ';' || r == ',' || r == '\n' }) {
		if entry == "" {
			continue
		}
		sep := ":"
		if strings.Contains(entry, "=") {
			sep = "="
		}
		parts := strings.SplitN(entry, sep, 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid header entry %q", entry)
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			return nil, fmt.Errorf("invalid header entry %q", entry)
		}
		headers.Add(key, value)
	}
	return headers, nil
}

func cloneHeaders(h http.Header) http.Header {
	if h == nil {
		return http.Header{}
	}
	clone := http.Header{}
	for k, vals := range h {
		clone[k] = append([]string(nil), vals...)
	}
	return clone
}
