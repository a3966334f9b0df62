package diaspora

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("pod.example.org", true)
	require.NoError(t, err)

	require.Equal(t, "pod.example.org", cfg.Pod)
	require.True(t, cfg.Secure)
	require.Equal(t, defaultTimeout, cfg.Timeout)
	require.Equal(t, defaultProviderName, cfg.ProviderName)
	require.Equal(t, defaultRequestIDHeader, cfg.RequestIDHeader)
	require.True(t, cfg.AutoRequestID)
	require.False(t, cfg.Debug)
	require.False(t, cfg.InsecureSkipVerify)
	require.Contains(t, cfg.RedactHeaders, "Cookie")
	require.Contains(t, cfg.RedactHeaders, "X-CSRF-Token")
}

func TestLoadConfigRequiresPod(t *testing.T) {
	t.Setenv("DIASPORA_POD", "")
	_, err := LoadConfigWithParams(ConfigParams{})
	require.ErrorIs(t, err, ErrMissingPod)
}

func TestLoadConfigRejectsNonBarePod(t *testing.T) {
	tests := []struct {
		name string
		pod  string
	}{
		{name: "WithScheme", pod: "https://pod.example.org"},
		{name: "WithPath", pod: "pod.example.org/stream"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfigWithParams(ConfigParams{Pod: tt.pod})
			require.ErrorIs(t, err, ErrInvalidPod)
		})
	}
}

func TestLoadConfigEnvFallbacks(t *testing.T) {
	t.Setenv("DIASPORA_POD", "env.example.org")
	t.Setenv("DIASPORA_INSECURE_HTTP", "true")
	t.Setenv("DIASPORA_TIMEOUT", "5s")
	t.Setenv("DIASPORA_PROVIDER_NAME", "my blog")
	t.Setenv("DIASPORA_DEBUG", "1")
	t.Setenv("DIASPORA_EXTRA_HEADERS", "X-Extra: abc")

	cfg, err := LoadConfigWithParams(ConfigParams{})
	require.NoError(t, err)
	require.Equal(t, "env.example.org", cfg.Pod)
	require.False(t, cfg.Secure)
	require.Equal(t, 5*time.Second, cfg.Timeout)
	require.Equal(t, "my blog", cfg.ProviderName)
	require.True(t, cfg.Debug)
	require.Equal(t, "abc", cfg.ExtraHeaders.Get("X-Extra"))
}

func TestLoadConfigParamsOverrideEnv(t *testing.T) {
	t.Setenv("DIASPORA_POD", "env.example.org")
	t.Setenv("DIASPORA_TIMEOUT", "5s")

	secure := false
	cfg, err := LoadConfigWithParams(ConfigParams{
		Pod:     "param.example.org",
		Secure:  &secure,
		Timeout: time.Second,
	})
	require.NoError(t, err)
	require.Equal(t, "param.example.org", cfg.Pod)
	require.False(t, cfg.Secure)
	require.Equal(t, time.Second, cfg.Timeout)
}

func TestLoadConfigNumericTimeout(t *testing.T) {
	t.Setenv("DIASPORA_TIMEOUT", "2.5")
	cfg, err := LoadConfigWithParams(ConfigParams{Pod: "pod.example.org"})
	require.NoError(t, err)
	require.Equal(t, 2500*time.Millisecond, cfg.Timeout)
}

func TestLoadConfigInvalidEnvValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "BadDebug", key: "DIASPORA_DEBUG", value: "maybe"},
		{name: "BadInsecure", key: "DIASPORA_INSECURE_HTTP", value: "nah"},
		{name: "BadTimeout", key: "DIASPORA_TIMEOUT", value: "soon"},
		{name: "BadProxy", key: "DIASPORA_PROXY", value: "http://[::1"},
		{name: "BadHeaders", key: "DIASPORA_EXTRA_HEADERS", value: "no-separator"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := LoadConfigWithParams(ConfigParams{Pod: "pod.example.org"})
			require.Error(t, err)
		})
	}
}

func TestParseHeadersEnv(t *testing.T) {
	headers, err := parseHeadersEnv("X-One: a; X-Two=b")
	require.NoError(t, err)
	require.Equal(t, "a", headers.Get("X-One"))
	require.Equal(t, "b", headers.Get("X-Two"))
}
