package handlers

import (
	"context"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"rentdash/apps/api/internal/auth"
	"rentdash/apps/api/internal/config"
	"rentdash/apps/api/internal/credstore"
	"rentdash/apps/api/internal/models"
	"rentdash/apps/api/internal/service"
	"rentdash/apps/api/internal/storage"
)

// AdminLookup reads the admin registry directly, bypassing the cache.
type AdminLookup interface {
	FindByUserAndRole(ctx context.Context, userID string, role models.AdminRole) (models.AdminRecord, error)
}

type GuestbookStore interface {
	Create(ctx context.Context, entry models.GuestbookEntry) (models.GuestbookEntry, error)
	List(ctx context.Context, limit, offset int) ([]models.GuestbookEntry, error)
	Delete(ctx context.Context, id, authorID string) error
}

type ImageUploader interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string, meta map[string]string) (storage.PutResult, error)
}

// HealthCheck pings one backing service.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

type Deps struct {
	Log          zerolog.Logger
	Config       *config.AppConfig
	Store        credstore.Store
	Cookies      auth.CookiePolicy
	Admins       AdminLookup
	AdminCache   *auth.AdminCache
	AdminService *service.AdminService
	Guestbook    GuestbookStore
	Uploads      ImageUploader
	Health       []HealthCheck
}

type HandlerSet struct {
	log          zerolog.Logger
	cfg          *config.AppConfig
	store        credstore.Store
	cookies      auth.CookiePolicy
	admins       AdminLookup
	adminCache   *auth.AdminCache
	adminService *service.AdminService
	guestbook    GuestbookStore
	uploads      ImageUploader
	health       []HealthCheck
}

func NewHandlerSet(d Deps) HandlerSet {
	return HandlerSet{
		log:          d.Log,
		cfg:          d.Config,
		store:        d.Store,
		cookies:      d.Cookies,
		admins:       d.Admins,
		adminCache:   d.AdminCache,
		adminService: d.AdminService,
		guestbook:    d.Guestbook,
		uploads:      d.Uploads,
		health:       d.Health,
	}
}

// Register mounts pages and the JSON API on engine. Authorization is applied
// engine-wide by the server, not per group.
func (h HandlerSet) Register(engine *gin.Engine) {
	h.registerPages(engine)

	api := engine.Group("/api")
	api.GET("/healthz", h.Health)

	authGroup := api.Group("/auth")
	authGroup.POST("/login", h.Login)
	authGroup.POST("/logout", h.Logout)

	api.GET("/me", h.Me)

	api.GET("/guestbook", h.ListGuestbook)
	api.POST("/guestbook", h.CreateGuestbookEntry)
	api.DELETE("/guestbook/:id", h.DeleteGuestbookEntry)

	api.GET("/admins", h.ListAdmins)
	api.POST("/admins", h.CreateAdmin)
	api.PATCH("/admins/:userId", h.UpdateAdminRole)
	api.DELETE("/admins/:userId", h.DeleteAdmin)

	api.POST("/uploads", h.UploadProductImage)
}

func pagination(c *gin.Context) (limit, offset int) {
	limit = 50
	if perPage := c.Query("perPage"); perPage != "" {
		if v, err := strconv.Atoi(perPage); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}
	if page := c.Query("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 1 {
			offset = (v - 1) * limit
		}
	}
	return limit, offset
}
