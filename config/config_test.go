package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvAPIURL, EnvDBPath, EnvSessionBackend, EnvRedisAddr, EnvSecureCookies,
		EnvRequestTimeout, EnvRefreshTimeout, EnvRefreshOn403, EnvRateLimit} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, BackendDB, cfg.SessionBackend)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 10*time.Second, cfg.RefreshTimeout)
	assert.True(t, cfg.RefreshOn403)
	assert.False(t, cfg.SecureCookies)
}

func TestLoad_Precedence(t *testing.T) {
	clearEnv(t)
	yamlFile := writeFile(t, "config.yaml", `
api_url: https://yaml.example/api
session_backend: memory
request_timeout: 5s
refresh_on_403: false
`)
	dotenv := writeFile(t, ".env", "CLY_API_URL=https://dotenv.example/api\nCLY_REFRESH_TIMEOUT=3s\n")

	cfg, err := Load(yamlFile, dotenv)
	require.NoError(t, err)
	assert.Equal(t, "https://dotenv.example/api", cfg.APIURL, ".env beats YAML")
	assert.Equal(t, BackendMemory, cfg.SessionBackend)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 3*time.Second, cfg.RefreshTimeout)
	assert.False(t, cfg.RefreshOn403)

	t.Setenv(EnvAPIURL, "https://env.example/api")
	t.Setenv(EnvSecureCookies, "true")
	t.Setenv(EnvRateLimit, "4")
	cfg, err = Load(yamlFile, dotenv)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example/api", cfg.APIURL, "environment beats .env")
	assert.True(t, cfg.SecureCookies)
	assert.Equal(t, 4, cfg.RateLimit)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		env  map[string]string
	}{
		{"malformed yaml", "api_url: [", nil},
		{"bad duration", "", map[string]string{EnvRequestTimeout: "soon"}},
		{"bad bool", "", map[string]string{EnvRefreshOn403: "maybe"}},
		{"bad backend", "", map[string]string{EnvSessionBackend: "etcd"}},
		{"relative url", "", map[string]string{EnvAPIURL: "/api"}},
		{"negative timeout", "refresh_timeout: -1s", nil},
		{"bad rate limit", "", map[string]string{EnvRateLimit: "fast"}},
		{"negative rate limit", "rate_limit: -3", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeFile(t, "config.yaml", tt.yaml), "")
			assert.Error(t, err)
		})
	}
}

func TestValidate_RedisNeedsAddress(t *testing.T) {
	cfg := Default()
	cfg.SessionBackend = BackendRedis
	cfg.RedisAddr = "  "
	assert.Error(t, cfg.Validate())
	cfg.RedisAddr = "localhost:6379"
	assert.NoError(t, cfg.Validate())
}

func TestDefaultPath(t *testing.T) {
	t.Setenv(EnvConfigFile, "/tmp/custom.yaml")
	assert.Equal(t, "/tmp/custom.yaml", DefaultPath())
	t.Setenv(EnvConfigFile, "")
	assert.Equal(t, "config.yaml", filepath.Base(DefaultPath()))
}
