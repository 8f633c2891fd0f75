package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"rentdash/apps/api/internal/middleware"
	"rentdash/apps/api/internal/models"
	"rentdash/apps/api/internal/repository"
	"rentdash/apps/api/internal/service"
)

type adminJSON struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func adminResponse(a models.AdminRecord) adminJSON {
	return adminJSON{
		UserID:    a.UserID,
		Email:     a.Email,
		Role:      string(a.Role),
		CreatedAt: a.CreatedAt,
	}
}

func (h HandlerSet) ListAdmins(c *gin.Context) {
	limit, offset := pagination(c)

	admins, err := h.adminService.List(c.Request.Context(), limit, offset)
	if err != nil {
		h.log.Error().Err(err).Msg("list admins failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list admins failed"})
		return
	}

	items := make([]adminJSON, 0, len(admins))
	for _, a := range admins {
		items = append(items, adminResponse(a))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type createAdminRequest struct {
	UserID string `json:"userId" binding:"required"`
	Email  string `json:"email" binding:"required,email"`
	Role   string `json:"role"`
}

func (h HandlerSet) CreateAdmin(c *gin.Context) {
	var req createAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	admin, err := h.adminService.Grant(c.Request.Context(), service.GrantInput{
		UserID:    req.UserID,
		Email:     req.Email,
		Role:      req.Role,
		GrantedBy: middleware.CurrentEmail(c),
	})
	if err != nil {
		h.adminError(c, err, req.UserID, "create admin failed")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"admin": adminResponse(admin)})
}

type updateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

func (h HandlerSet) UpdateAdminRole(c *gin.Context) {
	var req updateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.Param("userId")
	admin, err := h.adminService.SetRole(c.Request.Context(), userID, req.Role)
	if err != nil {
		h.adminError(c, err, userID, "update admin failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"admin": adminResponse(admin)})
}

func (h HandlerSet) DeleteAdmin(c *gin.Context) {
	userID := c.Param("userId")
	actor, _ := middleware.CurrentIdentity(c)

	if err := h.adminService.Revoke(c.Request.Context(), userID, actor.UserID); err != nil {
		h.adminError(c, err, userID, "delete admin failed")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) adminError(c *gin.Context, err error, userID, msg string) {
	switch {
	case errors.Is(err, service.ErrInvalidRole):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_role"})
	case errors.Is(err, service.ErrSelfRevoke):
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot_revoke_self"})
	case errors.Is(err, repository.ErrAdminExists):
		c.JSON(http.StatusConflict, gin.H{"error": "admin_exists"})
	case errors.Is(err, repository.ErrAdminNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "admin_not_found"})
	default:
		h.log.Error().Err(err).Str("user_id", userID).Msg(msg)
		c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
	}
}
