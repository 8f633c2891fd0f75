package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"rentdash/apps/api/internal/auth"
	"rentdash/apps/api/internal/models"
)

// FailureMode decides how a rejected request is answered.
type FailureMode int

const (
	// RedirectOnFailure sends browsers back to the home page.
	RedirectOnFailure FailureMode = iota
	// JSONOnFailure answers 401 {"error":"Unauthorized"} for API clients.
	JSONOnFailure
)

const (
	ContextIdentity = "current_identity"
	ContextEmail    = "user_email"
	ContextAdmin    = "current_admin"
)

type AuthorizeConfig struct {
	// Name labels this instance in logs and metrics, e.g. "pages" or "api".
	Name     string
	Routes   *auth.Classifier
	Mode     FailureMode
	Resolver *auth.Resolver
	Admins   *auth.AdminCache
	Log      zerolog.Logger
	Metrics  *Metrics

	HomePath      string
	DashboardPath string
}

// Authorize gates every request whose path is in cfg.Routes. Downstream
// handlers either run with a resolved identity in the context or do not run.
// Every failure looks the same to the client: missing cookies, a rejected or
// unreachable session, and a valid session without admin rights.
func Authorize(cfg AuthorizeConfig) gin.HandlerFunc {
	if cfg.HomePath == "" {
		cfg.HomePath = "/"
	}
	if cfg.DashboardPath == "" {
		cfg.DashboardPath = "/dashboard"
	}
	policy := cfg.Resolver.Cookies()

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		class := cfg.Routes.Classify(path)

		if class.IsAuthPassthrough {
			cfg.Metrics.observeDecision(cfg.Name, "passthrough")
			c.Next()
			return
		}

		cookies := c.Request.Cookies()
		_, _, hasSession := policy.Tokens(cookies)

		// Presence only; the dashboard itself will verify.
		if class.IsRedirectIfAuthed && hasSession {
			cfg.Metrics.observeDecision(cfg.Name, "bounce")
			c.Redirect(http.StatusFound, cfg.DashboardPath)
			c.Abort()
			return
		}

		if !class.IsProtected {
			c.Next()
			return
		}

		if !hasSession {
			reject(c, cfg, "no_credentials")
			return
		}

		start := time.Now()
		res := cfg.Resolver.Resolve(c.Request.Context(), cookies)
		cfg.Metrics.observeExchange(time.Since(start), res.AuthError)

		if res.AuthError {
			cfg.Log.Debug().
				Err(res.Err).
				Str("path", path).
				Str("request_id", c.Writer.Header().Get(requestIDHeader)).
				Msg("session exchange rejected")
			writeCookies(c, policy.ClearSessionCookies())
			reject(c, cfg, "invalid_session")
			return
		}
		if res.Identity == nil {
			reject(c, cfg, "no_identity")
			return
		}

		if class.IsAdminOnly {
			admin, reason := adminStatus(c, cfg, res.Identity.UserID)
			if reason != "" {
				if cfg.Mode == RedirectOnFailure {
					// Home bounces any request carrying session cookies back to
					// the dashboard, so a page rejection logs the user out.
					writeCookies(c, policy.ClearSessionCookies())
				} else {
					writeCookies(c, res.Cookies)
				}
				reject(c, cfg, reason)
				return
			}
			c.Set(ContextAdmin, *admin)
		}

		// The store has already rotated the pair; the old refresh token is
		// dead whatever happens next.
		writeCookies(c, res.Cookies)

		c.Set(ContextIdentity, *res.Identity)
		c.Set(ContextEmail, res.Identity.Email)
		cfg.Metrics.observeDecision(cfg.Name, "allowed")

		c.Next()
	}
}

// adminStatus returns the admin record for userID, or the rejection reason.
func adminStatus(c *gin.Context, cfg AuthorizeConfig, userID string) (*models.AdminRecord, string) {
	if cfg.Admins == nil {
		return nil, "admin_lookup_failed"
	}
	admin, err := cfg.Admins.AdminStatus(c.Request.Context(), userID)
	if err != nil {
		cfg.Log.Error().Err(err).Str("user_id", userID).Msg("admin registry lookup failed")
		return nil, "admin_lookup_failed"
	}
	if admin == nil {
		return nil, "not_admin"
	}
	return admin, ""
}

func reject(c *gin.Context, cfg AuthorizeConfig, reason string) {
	cfg.Metrics.observeDecision(cfg.Name, reason)

	if cfg.Mode == JSONOnFailure {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	c.Redirect(http.StatusFound, cfg.HomePath)
	c.Abort()
}

func writeCookies(c *gin.Context, cookies []*http.Cookie) {
	for _, ck := range cookies {
		http.SetCookie(c.Writer, ck)
	}
}

func CurrentIdentity(c *gin.Context) (models.Identity, bool) {
	v, ok := c.Get(ContextIdentity)
	if !ok {
		return models.Identity{}, false
	}
	id, ok := v.(models.Identity)
	return id, ok
}

func CurrentEmail(c *gin.Context) string {
	return c.GetString(ContextEmail)
}

func CurrentAdmin(c *gin.Context) (models.AdminRecord, bool) {
	v, ok := c.Get(ContextAdmin)
	if !ok {
		return models.AdminRecord{}, false
	}
	admin, ok := v.(models.AdminRecord)
	return admin, ok
}
