// Package credstore talks to the identity provider that issues and rotates
// dashboard sessions. The provider is a black box: tokens are opaque here.
package credstore

import (
	"context"
	"errors"
)

var (
	// ErrInvalidCredentials is returned by SignIn for a bad email/password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidRefreshToken means the refresh token was rejected: unknown,
	// expired, revoked or already rotated.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrStoreUnavailable wraps transport failures and unexpected responses.
	ErrStoreUnavailable = errors.New("credential store unavailable")
)

type User struct {
	ID    string
	Email string
}

// Session is a freshly issued access/refresh pair.
type Session struct {
	AccessToken  string
	RefreshToken string
	// ExpiresIn is the access token lifetime in seconds; zero when the
	// provider did not say.
	ExpiresIn int
	User      User
}

type Store interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	// RefreshSession validates the pair and rotates it, returning a new one.
	RefreshSession(ctx context.Context, accessToken, refreshToken string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

// Client describes the browser behind a sign-in, for session records and
// provider audit logs.
type Client struct {
	IP        string
	UserAgent string
}

type clientKey struct{}

func WithClient(ctx context.Context, c Client) context.Context {
	return context.WithValue(ctx, clientKey{}, c)
}

// ClientFrom returns the Client attached by WithClient, or the zero value.
func ClientFrom(ctx context.Context) Client {
	c, _ := ctx.Value(clientKey{}).(Client)
	return c
}
