package credstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// GoTrue is a Store backed by a GoTrue-compatible auth server (the
// /auth/v1 REST API).
type GoTrue struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ Store = (*GoTrue)(nil)

type GoTrueOption func(*GoTrue)

func WithHTTPClient(c *http.Client) GoTrueOption {
	return func(g *GoTrue) { g.httpClient = c }
}

func NewGoTrue(baseURL, apiKey string, opts ...GoTrueOption) *GoTrue {
	g := &GoTrue{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

type gotrueSession struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         *struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

func (g *GoTrue) SignIn(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}
	session, status, err := g.token(ctx, "password", body)
	if err != nil {
		return nil, err
	}
	if status == http.StatusBadRequest || status == http.StatusUnauthorized {
		return nil, ErrInvalidCredentials
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: sign in returned %d", ErrStoreUnavailable, status)
	}
	return session, nil
}

// RefreshSession exchanges the refresh token for a new pair. GoTrue keys the
// exchange on the refresh token alone; the access token is not sent.
func (g *GoTrue) RefreshSession(ctx context.Context, _, refreshToken string) (*Session, error) {
	body := map[string]string{"refresh_token": refreshToken}
	session, status, err := g.token(ctx, "refresh_token", body)
	if err != nil {
		return nil, err
	}
	if status == http.StatusBadRequest || status == http.StatusUnauthorized || status == http.StatusForbidden {
		return nil, ErrInvalidRefreshToken
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: refresh returned %d", ErrStoreUnavailable, status)
	}
	return session, nil
}

func (g *GoTrue) SignOut(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/auth/v1/logout", nil)
	if err != nil {
		return fmt.Errorf("build logout request: %w", err)
	}
	g.setHeaders(req)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	// An already-invalid token is as signed out as it gets.
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: logout returned %d", ErrStoreUnavailable, resp.StatusCode)
	}
	return nil
}

func (g *GoTrue) token(ctx context.Context, grantType string, payload any) (*Session, int, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("encode token request: %w", err)
	}

	url := g.baseURL + "/auth/v1/token?grant_type=" + grantType
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return nil, 0, fmt.Errorf("build token request: %w", err)
	}
	g.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	if client := ClientFrom(ctx); client.IP != "" {
		req.Header.Set("X-Forwarded-For", client.IP)
		if client.UserAgent != "" {
			req.Header.Set("User-Agent", client.UserAgent)
		}
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: read token response: %v", ErrStoreUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, nil
	}

	var decoded gotrueSession
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, 0, fmt.Errorf("%w: decode token response: %v", ErrStoreUnavailable, err)
	}
	if decoded.AccessToken == "" || decoded.RefreshToken == "" || decoded.User == nil {
		return nil, 0, fmt.Errorf("%w: token response without session", ErrStoreUnavailable)
	}

	return &Session{
		AccessToken:  decoded.AccessToken,
		RefreshToken: decoded.RefreshToken,
		ExpiresIn:    decoded.ExpiresIn,
		User: User{
			ID:    decoded.User.ID,
			Email: decoded.User.Email,
		},
	}, http.StatusOK, nil
}

func (g *GoTrue) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if g.apiKey != "" {
		req.Header.Set("apikey", g.apiKey)
	}
}
