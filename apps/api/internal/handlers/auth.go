package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"rentdash/apps/api/internal/auth"
	"rentdash/apps/api/internal/credstore"
	"rentdash/apps/api/internal/middleware"
	"rentdash/apps/api/internal/models"
	"rentdash/apps/api/internal/repository"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// Login signs in through the credential store and only keeps the session if
// the user is an admin.
func (h HandlerSet) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	ctx := credstore.WithClient(c.Request.Context(), credstore.Client{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	session, err := h.store.SignIn(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, credstore.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		h.log.Error().Err(err).Msg("sign in failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "authentication unavailable"})
		return
	}

	admin, err := h.admins.FindByUserAndRole(ctx, session.User.ID, models.AdminRoleAdmin)
	switch {
	case errors.Is(err, repository.ErrAdminNotFound):
		h.adminCache.Seed(session.User.ID, nil)
		h.signOut(ctx, session.AccessToken)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	case err != nil:
		h.log.Error().Err(err).Str("user_id", session.User.ID).Msg("admin lookup failed")
		h.signOut(ctx, session.AccessToken)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	h.adminCache.Seed(session.User.ID, &admin)

	accessMaxAge := session.ExpiresIn
	if accessMaxAge <= 0 {
		accessMaxAge = auth.DefaultAccessMaxAge
	}
	cookies := h.cookies.SessionCookies(session.AccessToken, accessMaxAge, session.RefreshToken, auth.AdminSessionMaxAge)
	cookies = append(cookies, h.cookies.AdminSessionCookies(time.Now().Add(auth.AdminSessionTTL))...)
	for _, ck := range cookies {
		http.SetCookie(c.Writer, ck)
	}

	zerolog.Ctx(c.Request.Context()).Info().Str("user_id", session.User.ID).Msg("admin signed in")
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user": userResponse{
			ID:    session.User.ID,
			Email: session.User.Email,
			Role:  string(admin.Role),
		},
	})
}

// Logout always succeeds; the store call is best effort.
func (h HandlerSet) Logout(c *gin.Context) {
	if access, err := c.Cookie(h.cookies.Names.AccessToken); err == nil && access != "" {
		h.signOut(c.Request.Context(), access)
	}
	for _, ck := range h.cookies.ClearAll() {
		http.SetCookie(c.Writer, ck)
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h HandlerSet) Me(c *gin.Context) {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	resp := gin.H{"user": userResponse{ID: id.UserID, Email: id.Email}}
	admin, err := h.adminCache.AdminStatus(c.Request.Context(), id.UserID)
	if err != nil {
		h.log.Warn().Err(err).Str("user_id", id.UserID).Msg("admin status unavailable")
	}
	if admin != nil {
		resp["admin"] = adminResponse(*admin)
	} else {
		resp["admin"] = nil
	}
	c.JSON(http.StatusOK, resp)
}

func (h HandlerSet) signOut(ctx context.Context, accessToken string) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := h.store.SignOut(ctx, accessToken); err != nil {
		h.log.Warn().Err(err).Msg("store sign out failed")
	}
}
