package auth

import (
	"net/http"
	"time"
)

const (
	DefaultAccessMaxAge = 3600              // seconds, when the store omits expires_in
	RefreshMaxAge       = 7 * 24 * 60 * 60  // refresh cookies roll a week forward
	AdminSessionMaxAge  = 30 * 24 * 60 * 60 // extended admin login
	AdminSessionTTL     = 30 * 24 * time.Hour
)

type CookieNames struct {
	AccessToken   string
	RefreshToken  string
	AdminSession  string
	SessionExpiry string
}

// CookiePolicy builds every cookie the dashboard sets. Access and refresh
// cookies are only ever produced or cleared as a pair.
type CookiePolicy struct {
	Names  CookieNames
	Secure bool
}

// Tokens returns the access and refresh cookie values, reporting ok only
// when both are present and non-empty.
func (p CookiePolicy) Tokens(cookies []*http.Cookie) (access, refresh string, ok bool) {
	for _, c := range cookies {
		switch c.Name {
		case p.Names.AccessToken:
			access = c.Value
		case p.Names.RefreshToken:
			refresh = c.Value
		}
	}
	return access, refresh, access != "" && refresh != ""
}

func (p CookiePolicy) SessionCookies(accessToken string, accessMaxAge int, refreshToken string, refreshMaxAge int) []*http.Cookie {
	return []*http.Cookie{
		p.tokenCookie(p.Names.AccessToken, accessToken, accessMaxAge),
		p.tokenCookie(p.Names.RefreshToken, refreshToken, refreshMaxAge),
	}
}

func (p CookiePolicy) ClearSessionCookies() []*http.Cookie {
	return []*http.Cookie{
		p.tokenCookie(p.Names.AccessToken, "", -1),
		p.tokenCookie(p.Names.RefreshToken, "", -1),
	}
}

// AdminSessionCookies are advisory, readable by page scripts for UX only.
// Authorization never reads them.
func (p CookiePolicy) AdminSessionCookies(expiresAt time.Time) []*http.Cookie {
	return []*http.Cookie{
		p.advisoryCookie(p.Names.AdminSession, "true", AdminSessionMaxAge),
		p.advisoryCookie(p.Names.SessionExpiry, expiresAt.UTC().Format(time.RFC3339), AdminSessionMaxAge),
	}
}

func (p CookiePolicy) ClearAll() []*http.Cookie {
	return append(p.ClearSessionCookies(),
		p.advisoryCookie(p.Names.AdminSession, "", -1),
		p.advisoryCookie(p.Names.SessionExpiry, "", -1),
	)
}

func (p CookiePolicy) tokenCookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   p.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

func (p CookiePolicy) advisoryCookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   p.Secure,
		HttpOnly: false,
		SameSite: http.SameSiteLaxMode,
	}
}
