// Package config resolves cly settings. Later sources win: built-in
// defaults, the YAML file, a .env file, then the process environment.
// Command-line flags are applied on top by the cmd package.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/weprixetechnologies/cly-user-sub000/pkg/validation"
	"gopkg.in/yaml.v3"
)

const (
	EnvAPIURL         = "CLY_API_URL"
	EnvDBPath         = "CLY_DB_PATH"
	EnvSessionBackend = "CLY_SESSION_BACKEND"
	EnvRedisAddr      = "CLY_REDIS_ADDR"
	EnvSecureCookies  = "CLY_SECURE_COOKIES"
	EnvRequestTimeout = "CLY_REQUEST_TIMEOUT"
	EnvRefreshTimeout = "CLY_REFRESH_TIMEOUT"
	EnvRefreshOn403   = "CLY_REFRESH_ON_403"
	EnvRateLimit      = "CLY_RATE_LIMIT"
	EnvConfigFile     = "CLY_CONFIG"

	DefaultAPIURL = "http://localhost:5000/api"

	BackendDB     = "db"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Config struct {
	APIURL         string        `yaml:"api_url"`
	DBPath         string        `yaml:"db_path"`
	SessionBackend string        `yaml:"session_backend"`
	RedisAddr      string        `yaml:"redis_addr"`
	SecureCookies  bool          `yaml:"secure_cookies"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RefreshTimeout time.Duration `yaml:"refresh_timeout"`
	// RefreshOn403 treats 403 like 401 and attempts a token refresh.
	RefreshOn403 bool `yaml:"refresh_on_403"`
	// RateLimit caps outgoing requests per second. Zero means unlimited.
	RateLimit int `yaml:"rate_limit"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		APIURL:         DefaultAPIURL,
		DBPath:         filepath.Join(homeDir(), ".cly", "cly.db"),
		SessionBackend: BackendDB,
		RedisAddr:      "localhost:6379",
		RequestTimeout: 30 * time.Second,
		RefreshTimeout: 10 * time.Second,
		RefreshOn403:   true,
	}
}

// DefaultPath is the YAML file read when CLY_CONFIG is not set.
func DefaultPath() string {
	if p := os.Getenv(EnvConfigFile); p != "" {
		return p
	}
	return filepath.Join(homeDir(), ".cly", "config.yaml")
}

// Load resolves the configuration. Missing files are skipped; malformed ones are errors.
func Load(file, dotenv string) (*Config, error) {
	cfg := Default()
	if file != "" {
		if err := cfg.readFile(file); err != nil {
			return nil, err
		}
	}

	dotenvVars := map[string]string{}
	if dotenv != "" {
		vars, err := godotenv.Read(dotenv)
		switch {
		case err == nil:
			dotenvVars = vars
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read %s: %w", dotenv, err)
		}
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenvVars[key]
		return v, ok
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	for key, dst := range map[string]*string{
		EnvAPIURL:         &c.APIURL,
		EnvDBPath:         &c.DBPath,
		EnvSessionBackend: &c.SessionBackend,
		EnvRedisAddr:      &c.RedisAddr,
	} {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	for key, dst := range map[string]*bool{
		EnvSecureCookies: &c.SecureCookies,
		EnvRefreshOn403:  &c.RefreshOn403,
	} {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", key, v, err)
			}
			*dst = b
		}
	}
	for key, dst := range map[string]*time.Duration{
		EnvRequestTimeout: &c.RequestTimeout,
		EnvRefreshTimeout: &c.RefreshTimeout,
	} {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", key, v, err)
			}
			*dst = d
		}
	}
	if v, ok := lookup(EnvRateLimit); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvRateLimit, v, err)
		}
		c.RateLimit = n
	}
	return nil
}

// Validate checks the resolved settings.
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api url %q must be an absolute http(s) URL", c.APIURL)
	}
	if err := validation.ValidateSessionBackend(c.SessionBackend); err != nil {
		return err
	}
	if c.SessionBackend == BackendRedis {
		if err := validation.ValidateNonEmptyString("redis address", c.RedisAddr); err != nil {
			return err
		}
	}
	if c.SessionBackend == BackendDB {
		if err := validation.ValidateNonEmptyString("database path", c.DBPath); err != nil {
			return err
		}
	}
	if c.RequestTimeout <= 0 || c.RefreshTimeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	if c.RateLimit < 0 {
		return errors.New("rate limit cannot be negative")
	}
	return nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
