package auth

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentdash/apps/api/internal/credstore"
)

var testCookies = CookiePolicy{
	Names: CookieNames{
		AccessToken:   "access-token",
		RefreshToken:  "refresh-token",
		AdminSession:  "admin-session",
		SessionExpiry: "session-expiry",
	},
	Secure: true,
}

type stubStore struct {
	calls   atomic.Int32
	refresh func(ctx context.Context, access, refresh string) (*credstore.Session, error)
}

func (s *stubStore) SignIn(context.Context, string, string) (*credstore.Session, error) {
	return nil, credstore.ErrInvalidCredentials
}

func (s *stubStore) RefreshSession(ctx context.Context, access, refresh string) (*credstore.Session, error) {
	s.calls.Add(1)
	return s.refresh(ctx, access, refresh)
}

func (s *stubStore) SignOut(context.Context, string) error { return nil }

func tokenCookies(access, refresh string) []*http.Cookie {
	var out []*http.Cookie
	if access != "" {
		out = append(out, &http.Cookie{Name: "access-token", Value: access})
	}
	if refresh != "" {
		out = append(out, &http.Cookie{Name: "refresh-token", Value: refresh})
	}
	return out
}

func cookieByName(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestResolveWithoutCookies(t *testing.T) {
	store := &stubStore{}
	r := NewResolver(store, testCookies, time.Second)

	for _, cookies := range [][]*http.Cookie{nil, tokenCookies("a", ""), tokenCookies("", "r")} {
		res := r.Resolve(context.Background(), cookies)
		assert.Nil(t, res.Identity)
		assert.False(t, res.AuthError)
		assert.Nil(t, res.Cookies)
	}
	assert.Zero(t, store.calls.Load())
}

func TestResolveRotatesCookies(t *testing.T) {
	store := &stubStore{refresh: func(_ context.Context, access, refresh string) (*credstore.Session, error) {
		assert.Equal(t, "old-a", access)
		assert.Equal(t, "old-r", refresh)
		return &credstore.Session{
			AccessToken:  "new-a",
			RefreshToken: "new-r",
			ExpiresIn:    900,
			User:         credstore.User{ID: "u-1", Email: "ops@example.com"},
		}, nil
	}}
	r := NewResolver(store, testCookies, time.Second)

	res := r.Resolve(context.Background(), tokenCookies("old-a", "old-r"))
	require.NotNil(t, res.Identity)
	assert.False(t, res.AuthError)
	assert.Equal(t, "ops@example.com", res.Identity.Email)
	assert.Equal(t, "u-1", res.Identity.UserID)

	access := cookieByName(res.Cookies, "access-token")
	require.NotNil(t, access)
	assert.Equal(t, "new-a", access.Value)
	assert.Equal(t, 900, access.MaxAge)

	refresh := cookieByName(res.Cookies, "refresh-token")
	require.NotNil(t, refresh)
	assert.Equal(t, "new-r", refresh.Value)
	assert.Equal(t, 7*24*60*60, refresh.MaxAge)

	for _, c := range res.Cookies {
		assert.Equal(t, "/", c.Path)
		assert.True(t, c.Secure)
		assert.True(t, c.HttpOnly)
		assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
	}
}

func TestResolveDefaultsAccessMaxAge(t *testing.T) {
	store := &stubStore{refresh: func(context.Context, string, string) (*credstore.Session, error) {
		return &credstore.Session{AccessToken: "a", RefreshToken: "r", ExpiresIn: 0}, nil
	}}
	res := NewResolver(store, testCookies, time.Second).Resolve(context.Background(), tokenCookies("a", "r"))
	require.NotNil(t, res.Identity)
	assert.Equal(t, 3600, cookieByName(res.Cookies, "access-token").MaxAge)
}

func TestResolveFailures(t *testing.T) {
	tests := map[string]func(ctx context.Context, a, r string) (*credstore.Session, error){
		"rejected": func(context.Context, string, string) (*credstore.Session, error) {
			return nil, credstore.ErrInvalidRefreshToken
		},
		"unavailable": func(context.Context, string, string) (*credstore.Session, error) {
			return nil, credstore.ErrStoreUnavailable
		},
		"nil session": func(context.Context, string, string) (*credstore.Session, error) {
			return nil, nil
		},
		"empty session": func(context.Context, string, string) (*credstore.Session, error) {
			return &credstore.Session{}, nil
		},
	}

	for name, fn := range tests {
		t.Run(name, func(t *testing.T) {
			res := NewResolver(&stubStore{refresh: fn}, testCookies, time.Second).
				Resolve(context.Background(), tokenCookies("a", "r"))
			assert.True(t, res.AuthError)
			assert.Nil(t, res.Identity)
			assert.Nil(t, res.Cookies)
			assert.Error(t, res.Err)
		})
	}
}

func TestResolveTimesOut(t *testing.T) {
	store := &stubStore{refresh: func(ctx context.Context, _, _ string) (*credstore.Session, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	start := time.Now()
	res := NewResolver(store, testCookies, 20*time.Millisecond).Resolve(context.Background(), tokenCookies("a", "r"))
	assert.True(t, res.AuthError)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestCookiePolicyClearsInPairs(t *testing.T) {
	cleared := testCookies.ClearSessionCookies()
	require.Len(t, cleared, 2)
	for _, c := range cleared {
		assert.Negative(t, c.MaxAge)
		assert.Empty(t, c.Value)
	}

	all := testCookies.ClearAll()
	assert.Len(t, all, 4)
}

func TestAdminSessionCookiesAreAdvisory(t *testing.T) {
	exp := time.Date(2026, 11, 18, 12, 0, 0, 0, time.UTC)
	cookies := testCookies.AdminSessionCookies(exp)
	require.Len(t, cookies, 2)

	flag := cookieByName(cookies, "admin-session")
	require.NotNil(t, flag)
	assert.Equal(t, "true", flag.Value)

	expiry := cookieByName(cookies, "session-expiry")
	require.NotNil(t, expiry)
	assert.Equal(t, "2026-11-18T12:00:00Z", expiry.Value)

	for _, c := range cookies {
		assert.False(t, c.HttpOnly)
		assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
		assert.Equal(t, 30*24*60*60, c.MaxAge)
	}
}
