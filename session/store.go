// Package session persists the storefront login: a short-lived access token,
// a longer-lived refresh token and the user ID, each stored as an independent
// cookie-like entry with its own expiry.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Entry names, matching the cookies the storefront web app sets.
const (
	AccessTokenName  = "_at"
	RefreshTokenName = "_rt"
	UserIDName       = "uid"
)

// Entry lifetimes.
const (
	AccessTokenTTL  = 7 * 24 * time.Hour
	RefreshTokenTTL = 30 * 24 * time.Hour
	UserIDTTL       = 30 * 24 * time.Hour
)

// Names lists every entry Clear removes.
var Names = []string{AccessTokenName, RefreshTokenName, UserIDName}

// ErrUnknownName is returned by Get for names outside Names.
var ErrUnknownName = errors.New("unknown session entry")

// TokenPair is the access/refresh pair issued by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Store is the persistence capability behind the HTTP client. Implementations
// must treat expired entries as absent and never report absence as an error.
type Store interface {
	// Get returns the value of the named entry and whether it is present.
	Get(ctx context.Context, name string) (string, bool, error)
	// Set writes the access and refresh tokens together.
	Set(ctx context.Context, pair TokenPair) error
	// SetUserID writes the user ID entry.
	SetUserID(ctx context.Context, uid string) error
	// Clear deletes all entries. Calling it on an empty store is not an error.
	Clear(ctx context.Context) error
}

// Session is a point-in-time view of all three entries. The fields are
// independent: a user ID may be present while both tokens are gone.
type Session struct {
	AccessToken  string
	RefreshToken string
	UserID       string
}

// LoggedOut reports whether neither token is present.
func (s Session) LoggedOut() bool {
	return s.AccessToken == "" && s.RefreshToken == ""
}

// Load reads every entry of store into a Session.
func Load(ctx context.Context, store Store) (Session, error) {
	var s Session
	for _, f := range []struct {
		name string
		dst  *string
	}{
		{AccessTokenName, &s.AccessToken},
		{RefreshTokenName, &s.RefreshToken},
		{UserIDName, &s.UserID},
	} {
		v, _, err := store.Get(ctx, f.name)
		if err != nil {
			return Session{}, fmt.Errorf("failed to read session entry %s: %w", f.name, err)
		}
		*f.dst = v
	}
	return s, nil
}

// TTL returns the lifetime of the named entry.
func TTL(name string) (time.Duration, error) {
	switch name {
	case AccessTokenName:
		return AccessTokenTTL, nil
	case RefreshTokenName:
		return RefreshTokenTTL, nil
	case UserIDName:
		return UserIDTTL, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownName, name)
}

// NewCookie builds the browser cookie for an entry written at now.
func NewCookie(name, value string, now time.Time, secure bool) (*http.Cookie, error) {
	ttl, err := TTL(name)
	if err != nil {
		return nil, err
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  now.Add(ttl),
		MaxAge:   int(ttl / time.Second),
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}, nil
}

// Option configures a Store implementation.
type Option func(*options)

type options struct {
	secure bool
	now    func() time.Time
	prefix string
}

func newOptions(opts []Option) options {
	o := options{now: time.Now, prefix: "cly:session"}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithSecure sets the Secure flag on cookies rendered by the store.
func WithSecure(secure bool) Option { return func(o *options) { o.secure = secure } }

// WithClock replaces time.Now for expiry calculations.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// WithKeyPrefix sets the key prefix used by RedisStore.
func WithKeyPrefix(prefix string) Option { return func(o *options) { o.prefix = prefix } }
