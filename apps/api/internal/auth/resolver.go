package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"rentdash/apps/api/internal/credstore"
	"rentdash/apps/api/internal/models"
)

const DefaultExchangeTimeout = 5 * time.Second

var errEmptySession = errors.New("credential store returned no session")

// Resolution is the outcome of resolving a request's session cookies.
//
// Identity nil and AuthError false means the request simply carried no
// session. AuthError means it carried one the store refused (or could not be
// asked about); callers must clear the token cookies.
type Resolution struct {
	Identity  *models.Identity
	Cookies   []*http.Cookie
	AuthError bool
	Err       error
}

// Resolver turns session cookies into an identity, rotating the session
// through the credential store on every call. It never touches the response.
type Resolver struct {
	store   credstore.Store
	cookies CookiePolicy
	timeout time.Duration
}

func NewResolver(store credstore.Store, cookies CookiePolicy, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = DefaultExchangeTimeout
	}
	return &Resolver{store: store, cookies: cookies, timeout: timeout}
}

func (r *Resolver) Cookies() CookiePolicy {
	return r.cookies
}

func (r *Resolver) Resolve(ctx context.Context, cookies []*http.Cookie) Resolution {
	access, refresh, ok := r.cookies.Tokens(cookies)
	if !ok {
		return Resolution{}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// No retry: a timeout or transport error counts as a rejected session.
	session, err := r.store.RefreshSession(ctx, access, refresh)
	if err != nil {
		return Resolution{AuthError: true, Err: err}
	}
	if session == nil || session.AccessToken == "" || session.RefreshToken == "" {
		return Resolution{AuthError: true, Err: errEmptySession}
	}

	accessMaxAge := session.ExpiresIn
	if accessMaxAge <= 0 {
		accessMaxAge = DefaultAccessMaxAge
	}

	return Resolution{
		Identity: &models.Identity{
			UserID: session.User.ID,
			Email:  session.User.Email,
		},
		Cookies: r.cookies.SessionCookies(session.AccessToken, accessMaxAge, session.RefreshToken, RefreshMaxAge),
	}
}
