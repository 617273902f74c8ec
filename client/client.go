// Package client talks to the storefront backend API. Every request carries
// the stored bearer token; an expired token is refreshed once, transparently,
// no matter how many requests hit the expiry at the same time.
package client

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
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/weprixetechnologies/cly-user-sub000/session"
)

const (
	// RefreshPath is the token exchange endpoint.
	RefreshPath = "/auth/refresh-token"

	DefaultRequestTimeout = 30 * time.Second
	DefaultRefreshTimeout = 10 * time.Second

	maxBodySize = 8 << 20
)

// Config holds the dependencies of a Client.
type Config struct {
	// BaseURL is the backend root, e.g. https://api.example.com/api.
	BaseURL string
	// Store holds the session. Required.
	Store session.Store
	// HTTPClient overrides the default client built from RequestTimeout.
	HTTPClient     *http.Client
	RequestTimeout time.Duration
	// RefreshTimeout bounds the token exchange. Defaults to 10s.
	RefreshTimeout time.Duration
	// PassThrough403 returns 403 answers to the caller instead of treating
	// them like 401 and attempting a refresh.
	PassThrough403 bool
	// OnUnauthenticated is called when the session cannot be recovered and
	// the user has to log in again.
	OnUnauthenticated func(err error)
	// Limiter throttles outgoing requests. Nil means unlimited.
	Limiter   *RateLimiter
	UserAgent string
}

// Client is a storefront API client. It is safe for concurrent use.
type Client struct {
	baseURL           string
	http              *http.Client
	store             session.Store
	refresher         *refresher
	passThrough403    bool
	onUnauthenticated func(err error)
	limiter           *RateLimiter
	userAgent         string

	mu           sync.RWMutex
	defaultToken string
}

// New validates cfg and builds a Client.
func New(cfg Config) (*Client, error) {
	if cfg.Store == nil {
		return nil, errors.New("session store is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", cfg.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: must be an absolute http(s) URL", cfg.BaseURL)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = DefaultRefreshTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}

	c := &Client{
		baseURL:           strings.TrimSuffix(u.String(), "/"),
		http:              httpClient,
		store:             cfg.Store,
		passThrough403:    cfg.PassThrough403,
		onUnauthenticated: cfg.OnUnauthenticated,
		limiter:           cfg.Limiter,
		userAgent:         cfg.UserAgent,
	}
	c.refresher = &refresher{
		timeout:   cfg.RefreshTimeout,
		exchange:  c.exchangeRefreshToken,
		onSuccess: c.adoptTokens,
		onFailure: c.abandonSession,
	}
	return c, nil
}

// BaseURL returns the backend root the client was built with.
func (c *Client) BaseURL() string { return c.baseURL }

// request is one logical API call. The body is kept marshalled so the call can be replayed.
type request struct {
	method string
	path   string
	query  url.Values
	body   []byte
	// public requests (login, logout) never trigger a refresh.
	public  bool
	retried bool
}

func newRequest(method, path string, payload any) (*request, error) {
	r := &request{method: method, path: path}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body for %s %s: %w", method, path, err)
		}
		r.body = b
	}
	return r, nil
}

// Do sends an arbitrary JSON request relative to the base URL and decodes the
// response body into out (which may be nil).
func (c *Client) Do(ctx context.Context, method, path string, payload, out any) error {
	r, err := newRequest(method, path, payload)
	if err != nil {
		return err
	}
	return c.do(ctx, r, out)
}

func (c *Client) do(ctx context.Context, r *request, out any) error {
	generation := c.refresher.currentGeneration()
	token, err := c.credential(ctx)
	if err != nil {
		return err
	}
	data, err := c.send(ctx, r, token)
	if err != nil {
		var apiErr *APIError
		if r.public || r.retried || !errors.As(err, &apiErr) || !c.isAuthFailure(apiErr.StatusCode) {
			return err
		}
		token, err = c.recoverSession(ctx, r, generation, apiErr)
		if err != nil {
			return err
		}
		r.retried = true
		log.Debug().Str("method", r.method).Str("path", r.path).Msg("Replaying request with refreshed token")
		if data, err = c.send(ctx, r, token); err != nil {
			return err
		}
	}
	return decode(r, data, out)
}

func (c *Client) isAuthFailure(status int) bool {
	return status == http.StatusUnauthorized || (status == http.StatusForbidden && !c.passThrough403)
}

// recoverSession returns a token to replay r with, refreshing the session if needed.
func (c *Client) recoverSession(ctx context.Context, r *request, generation uint64, cause *APIError) (string, error) {
	if r.path == RefreshPath {
		err := fmt.Errorf("%w: %w", ErrRefreshFailed, cause)
		c.unauthenticated(err)
		return "", err
	}
	sess, err := session.Load(ctx, c.store)
	if err != nil {
		return "", err
	}
	if sess.LoggedOut() {
		c.unauthenticated(ErrNoSession)
		return "", fmt.Errorf("%w: %w", ErrNoSession, cause)
	}
	return c.refresher.acquire(ctx, generation, sess.RefreshToken)
}

// credential picks the bearer token for the next request: the stored access
// token, else the token adopted by the last refresh.
func (c *Client) credential(ctx context.Context) (string, error) {
	v, ok, err := c.store.Get(ctx, session.AccessTokenName)
	if err != nil {
		return "", fmt.Errorf("failed to read access token: %w", err)
	}
	if ok && v != "" {
		return v, nil
	}
	return c.DefaultToken(), nil
}

// DefaultToken returns the access token adopted by the last successful refresh.
func (c *Client) DefaultToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.defaultToken
}

func (c *Client) setDefaultToken(token string) {
	c.mu.Lock()
	c.defaultToken = token
	c.mu.Unlock()
}

func (c *Client) unauthenticated(err error) {
	log.Warn().Err(err).Msg("Session is not recoverable, login required")
	if c.onUnauthenticated != nil {
		c.onUnauthenticated(err)
	}
}

func (c *Client) send(ctx context.Context, r *request, token string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, c.url(r), body)
	if err != nil {
		log.Error().Err(err).Str("method", r.method).Str("path", r.path).Msg("Failed to create HTTP request object")
		return nil, err
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	log.Debug().Str("method", r.method).Str("path", r.path).Str("request_id", requestID).Bool("retried", r.retried).Msg("Sending HTTP request")
	resp, err := c.http.Do(req)
	if err != nil {
		log.Error().Err(err).Str("method", r.method).Str("path", r.path).Msg("HTTP request failed")
		return nil, fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer closeResponseBody(resp)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		log.Error().Err(err).Str("path", r.path).Msg("Failed to read response body")
		return nil, fmt.Errorf("failed to read response of %s %s: %w", r.method, r.path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := newAPIError(r, resp.StatusCode, data)
		log.Debug().Str("method", r.method).Str("path", r.path).Int("status", resp.StatusCode).Str("message", apiErr.Message).Msg("HTTP request returned non-OK status")
		return nil, apiErr
	}
	log.Debug().Str("method", r.method).Str("path", r.path).Int("status", resp.StatusCode).Msg("HTTP request successful")
	return data, nil
}

func (c *Client) url(r *request) string {
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}
	return u
}

func decode(r *request, data []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		log.Error().Err(err).Str("path", r.path).Str("body_preview", string(data[:min(len(data), 200)])).Msg("Failed to parse response JSON")
		return fmt.Errorf("failed to parse response of %s %s: %w", r.method, r.path, err)
	}
	return nil
}

func closeResponseBody(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.CopyN(io.Discard, resp.Body, 1024*1024)
	_ = resp.Body.Close()
}

// envelope is the {success, message, data} wrapper of domain endpoints.
type envelope[T any] struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func call[T any](ctx context.Context, c *Client, r *request) (T, error) {
	var env envelope[T]
	if err := c.do(ctx, r, &env); err != nil {
		var zero T
		return zero, err
	}
	if env.Success != nil && !*env.Success {
		var zero T
		return zero, &APIError{Method: r.method, Path: r.path, StatusCode: http.StatusOK, Message: env.Message}
	}
	return env.Data, nil
}

// callObject is call for endpoints that must return an object: a success
// envelope without data is ErrEmptyResponse.
func callObject[T any](ctx context.Context, c *Client, r *request) (*T, error) {
	v, err := call[*T](ctx, c, r)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("%s %s: %w", r.method, r.path, ErrEmptyResponse)
	}
	return v, nil
}

func (c *Client) userID(ctx context.Context) (string, error) {
	uid, ok, err := c.store.Get(ctx, session.UserIDName)
	if err != nil {
		return "", fmt.Errorf("failed to read user id: %w", err)
	}
	if !ok || uid == "" {
		return "", ErrNoUserID
	}
	return uid, nil
}

func escape(segment string) string { return url.PathEscape(segment) }
