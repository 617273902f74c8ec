package session

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/weprixetechnologies/cly-user-sub000/db"
)

// DBStore persists the session in the local SQLite database so a login
// survives across CLI invocations.
type DBStore struct {
	repo db.CookieRepository
	opts options
}

// NewDBStore wraps a cookie repository.
func NewDBStore(repo db.CookieRepository, opts ...Option) *DBStore {
	return &DBStore{repo: repo, opts: newOptions(opts)}
}

func (s *DBStore) Get(ctx context.Context, name string) (string, bool, error) {
	if _, err := TTL(name); err != nil {
		return "", false, err
	}
	c, err := s.repo.Get(ctx, name)
	if err != nil {
		return "", false, fmt.Errorf("failed to load %s: %w", name, err)
	}
	if c == nil {
		return "", false, nil
	}
	if !s.opts.now().Before(c.ExpiresAt) {
		log.Debug().Str("name", name).Time("expired_at", c.ExpiresAt).Msg("Session entry expired")
		return "", false, nil
	}
	return c.Value, true, nil
}

func (s *DBStore) Set(ctx context.Context, pair TokenPair) error {
	now := s.opts.now()
	if err := s.repo.PutAll(ctx,
		db.SessionCookie{Name: AccessTokenName, Value: pair.AccessToken, ExpiresAt: now.Add(AccessTokenTTL)},
		db.SessionCookie{Name: RefreshTokenName, Value: pair.RefreshToken, ExpiresAt: now.Add(RefreshTokenTTL)},
	); err != nil {
		return fmt.Errorf("failed to save token pair: %w", err)
	}
	return nil
}

func (s *DBStore) SetUserID(ctx context.Context, uid string) error {
	if err := s.repo.PutAll(ctx, db.SessionCookie{Name: UserIDName, Value: uid, ExpiresAt: s.opts.now().Add(UserIDTTL)}); err != nil {
		return fmt.Errorf("failed to save user id: %w", err)
	}
	return nil
}

func (s *DBStore) Clear(ctx context.Context) error {
	if err := s.repo.Delete(ctx, Names...); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
