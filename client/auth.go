package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/weprixetechnologies/cly-user-sub000/session"
)

type LoginResult struct {
	Tokens session.TokenPair
	UserID string
	User   *User
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges email and password for a token pair. It does not touch the
// session store; persisting the result is up to the caller.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	r, err := newRequest(http.MethodPost, "/auth/login/user", credentials{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	r.public = true

	var res tokenResponse
	if err := c.do(ctx, r, &res); err != nil {
		return nil, err
	}
	pair, err := res.pair()
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}
	log.Info().Str("email", email).Msg("Logged in")
	return &LoginResult{Tokens: pair, UserID: res.userID(), User: res.User}, nil
}

// Logout revokes refreshToken on the backend and forgets the default
// credential. The local session is left to the caller.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	c.setDefaultToken("")
	if refreshToken == "" {
		return nil
	}
	r, err := newRequest(http.MethodPost, "/auth/logout", refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return err
	}
	r.public = true
	return c.do(ctx, r, nil)
}

// Profile fetches the account of the logged-in user.
func (c *Client) Profile(ctx context.Context) (*User, error) {
	uid, err := c.userID(ctx)
	if err != nil {
		return nil, err
	}
	r, _ := newRequest(http.MethodGet, "/users/"+escape(uid), nil)
	return callObject[User](ctx, c, r)
}
