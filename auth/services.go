package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/weprixetechnologies/cly-user-sub000/client"
	"github.com/weprixetechnologies/cly-user-sub000/pkg/clierr"
	"github.com/weprixetechnologies/cly-user-sub000/pkg/validation"
	"github.com/weprixetechnologies/cly-user-sub000/session"
)

// ErrRefreshUnsupported is returned by Refresh when the authenticator cannot refresh on demand.
var ErrRefreshUnsupported = errors.New("authenticator does not support manual refresh")

// Service ties the remote login flow to the local session store.
type Service struct {
	Store session.Store
	Auth  Authenticator
}

// NewService is the constructor for our auth service.
func NewService(store session.Store, auth Authenticator) *Service {
	return &Service{Store: store, Auth: auth}
}

// Login authenticates against the backend and persists the token pair and user ID.
func (s *Service) Login(ctx context.Context, email, password string) (*client.LoginResult, error) {
	email = strings.TrimSpace(email)
	if err := validation.ValidateEmail(email); err != nil {
		return nil, clierr.New(clierr.Validation, err.Error(), err)
	}
	if password == "" {
		return nil, clierr.New(clierr.Validation, "password cannot be empty", nil)
	}

	res, err := s.Auth.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	// The previous account's user ID must not survive next to the new tokens.
	if err := s.Store.Clear(ctx); err != nil {
		return nil, fmt.Errorf("failed to clear previous session: %w", err)
	}
	if err := s.Store.Set(ctx, res.Tokens); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	if res.UserID == "" {
		log.Warn().Msg("Login response carried no user id; cart and orders will be unavailable")
		return res, nil
	}
	if err := s.Store.SetUserID(ctx, res.UserID); err != nil {
		return nil, fmt.Errorf("failed to save user id: %w", err)
	}
	return res, nil
}

// Logout revokes the refresh token when the backend is reachable and always
// clears the local session.
func (s *Service) Logout(ctx context.Context) error {
	sess, err := session.Load(ctx, s.Store)
	if err != nil {
		return err
	}
	if err := s.Auth.Logout(ctx, sess.RefreshToken); err != nil {
		log.Warn().Err(err).Msg("Remote logout failed, clearing local session anyway")
	}
	if err := s.Store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Status describes the stored session.
type Status struct {
	UserID          string
	HasAccessToken  bool
	HasRefreshToken bool
	// Access is nil when there is no access token or it is not a JWT.
	Access *session.TokenInfo
}

func (st *Status) LoggedIn() bool { return st.HasAccessToken || st.HasRefreshToken }

// Status reads the session and decodes the access token claims when possible.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	sess, err := session.Load(ctx, s.Store)
	if err != nil {
		return nil, err
	}
	st := &Status{
		UserID:          sess.UserID,
		HasAccessToken:  sess.AccessToken != "",
		HasRefreshToken: sess.RefreshToken != "",
	}
	if st.HasAccessToken {
		info, err := session.DescribeAccessToken(sess.AccessToken)
		if err != nil {
			log.Debug().Err(err).Msg("Access token is not a readable JWT")
		} else {
			st.Access = info
		}
	}
	return st, nil
}

// Refresh exchanges the refresh token right away and reports the new status.
func (s *Service) Refresh(ctx context.Context) (*Status, error) {
	rf, ok := s.Auth.(SessionRefresher)
	if !ok {
		return nil, ErrRefreshUnsupported
	}
	if _, err := rf.RefreshSession(ctx); err != nil {
		return nil, fmt.Errorf("failed to refresh session: %w", err)
	}
	return s.Status(ctx)
}
