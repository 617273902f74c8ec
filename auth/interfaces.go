package auth

import (
	"context"

	"github.com/weprixetechnologies/cly-user-sub000/client"
)

// Authenticator defines the contract for any component that can log a user in and out remotely.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*client.LoginResult, error)
	Logout(ctx context.Context, refreshToken string) error
}

// SessionRefresher is implemented by authenticators that can exchange the stored refresh token on demand.
type SessionRefresher interface {
	RefreshSession(ctx context.Context) (accessToken string, err error)
}
