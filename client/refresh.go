package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/weprixetechnologies/cly-user-sub000/session"
)

var errRefreshAborted = fmt.Errorf("%w: refresh aborted", ErrRefreshFailed)

type refreshStatus int

const (
	refreshIdle refreshStatus = iota
	refreshRunning
)

func (s refreshStatus) String() string {
	if s == refreshRunning {
		return "refreshing"
	}
	return "idle"
}

type refreshResult struct {
	token string
	err   error
}

// refresher makes sure at most one token exchange is in flight. Callers that
// hit an expired token while an exchange is running wait for its outcome and
// are released in the order they arrived.
type refresher struct {
	mu      sync.Mutex
	status  refreshStatus
	waiters []chan refreshResult
	// generation counts settled exchanges; last is the outcome of the latest one.
	generation uint64
	last       refreshResult

	timeout   time.Duration
	exchange  func(ctx context.Context, refreshToken string) (session.TokenPair, error)
	onSuccess func(ctx context.Context, pair session.TokenPair) error
	onFailure func(ctx context.Context, err error)
}

// acquire returns a fresh access token, either by running the exchange or by
// waiting for the one already running. seen is the generation observed when
// the failed request was sent: if an exchange settled since then, its outcome
// is returned without starting another one.
func (r *refresher) acquire(ctx context.Context, seen uint64, refreshToken string) (string, error) {
	r.mu.Lock()
	if r.generation != seen {
		last := r.last
		r.mu.Unlock()
		log.Debug().Msg("Session was refreshed while the request was in flight")
		return last.token, last.err
	}
	if r.status == refreshRunning {
		ch := make(chan refreshResult, 1)
		r.waiters = append(r.waiters, ch)
		position := len(r.waiters)
		r.mu.Unlock()

		log.Debug().Int("position", position).Msg("Token refresh in progress, queueing request")
		select {
		case res := <-ch:
			return res.token, res.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	r.status = refreshRunning
	r.mu.Unlock()

	res := refreshResult{err: errRefreshAborted}
	defer func() { r.settle(res) }()
	token, err := r.run(ctx, refreshToken)
	res = refreshResult{token: token, err: err}
	return token, err
}

func (r *refresher) run(ctx context.Context, refreshToken string) (string, error) {
	// The exchange outlives the request that triggered it; queued callers depend on it.
	bg := context.WithoutCancel(ctx)
	if refreshToken == "" {
		r.onFailure(bg, ErrNoSession)
		return "", ErrNoSession
	}

	exchangeCtx, cancel := context.WithTimeout(bg, r.timeout)
	defer cancel()

	log.Info().Msg("Access token rejected, refreshing session...")
	pair, err := r.exchange(exchangeCtx, refreshToken)
	if err == nil {
		err = r.onSuccess(bg, pair)
	}
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrRefreshFailed, err)
		log.Error().Err(err).Msg("Failed to refresh session")
		r.onFailure(bg, err)
		return "", err
	}
	log.Info().Msg("Session refreshed and saved successfully.")
	return pair.AccessToken, nil
}

// settle releases every waiter with res, oldest first, and returns to idle.
func (r *refresher) settle(res refreshResult) {
	r.mu.Lock()
	waiters := r.waiters
	r.waiters = nil
	for _, ch := range waiters {
		ch <- res
	}
	r.generation++
	r.last = res
	r.status = refreshIdle
	r.mu.Unlock()

	log.Debug().Int("waiters", len(waiters)).Bool("ok", res.err == nil).Msg("Token refresh settled")
}

func (r *refresher) currentGeneration() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

func (r *refresher) state() (refreshStatus, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status, len(r.waiters)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// tokenResponse is the answer of the login and refresh endpoints.
type tokenResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	UID          string `json:"uid"`
	User         *User  `json:"user"`
}

func (t *tokenResponse) pair() (session.TokenPair, error) {
	if !t.Success {
		msg := t.Message
		if msg == "" {
			msg = "no reason given"
		}
		return session.TokenPair{}, fmt.Errorf("backend rejected the request: %s", msg)
	}
	if t.AccessToken == "" || t.RefreshToken == "" {
		return session.TokenPair{}, errors.New("response is missing tokens")
	}
	return session.TokenPair{AccessToken: t.AccessToken, RefreshToken: t.RefreshToken}, nil
}

func (t *tokenResponse) userID() string {
	if t.User != nil && t.User.UID != "" {
		return t.User.UID
	}
	return t.UID
}

// exchangeRefreshToken posts the refresh token. It bypasses do so a rejected
// exchange can never trigger another refresh.
func (c *Client) exchangeRefreshToken(ctx context.Context, refreshToken string) (session.TokenPair, error) {
	r, err := newRequest(http.MethodPost, RefreshPath, refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return session.TokenPair{}, err
	}
	r.public = true
	data, err := c.send(ctx, r, "")
	if err != nil {
		return session.TokenPair{}, err
	}
	var res tokenResponse
	if err := json.Unmarshal(data, &res); err != nil {
		return session.TokenPair{}, fmt.Errorf("failed to parse refresh response: %w", err)
	}
	return res.pair()
}

func (c *Client) adoptTokens(ctx context.Context, pair session.TokenPair) error {
	if err := c.store.Set(ctx, pair); err != nil {
		return fmt.Errorf("failed to save refreshed tokens: %w", err)
	}
	c.setDefaultToken(pair.AccessToken)
	return nil
}

func (c *Client) abandonSession(ctx context.Context, err error) {
	if errors.Is(err, ErrRefreshFailed) {
		c.setDefaultToken("")
		if clearErr := c.store.Clear(ctx); clearErr != nil {
			log.Error().Err(clearErr).Msg("Failed to clear session after refresh failure")
		}
	}
	c.unauthenticated(err)
}

// RefreshSession exchanges the stored refresh token for a new pair right away.
// It joins an exchange that is already running instead of starting a second one.
func (c *Client) RefreshSession(ctx context.Context) (string, error) {
	refreshToken, ok, err := c.store.Get(ctx, session.RefreshTokenName)
	if err != nil {
		return "", fmt.Errorf("failed to read refresh token: %w", err)
	}
	if !ok || refreshToken == "" {
		return "", ErrNoSession
	}
	return c.refresher.acquire(ctx, c.refresher.currentGeneration(), refreshToken)
}
