package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"rentdash/apps/api/internal/jobs"
	"rentdash/apps/api/internal/models"
)

var (
	ErrInvalidRole = errors.New("invalid admin role")
	ErrSelfRevoke  = errors.New("cannot revoke own admin access")
)

type AdminStore interface {
	List(ctx context.Context, limit, offset int) ([]models.AdminRecord, error)
	Create(ctx context.Context, admin models.AdminRecord) (models.AdminRecord, error)
	UpdateRole(ctx context.Context, userID string, role models.AdminRole) (models.AdminRecord, error)
	Delete(ctx context.Context, userID string) error
}

// CacheInvalidator drops a user's cached admin status.
type CacheInvalidator interface {
	Invalidate(userID string)
}

type Notifier interface {
	PublishEmail(ctx context.Context, task jobs.EmailTask) (string, error)
}

// AdminService applies admin registry changes. Cache and notifier are
// optional; adminctl runs without either.
type AdminService struct {
	admins AdminStore
	cache  CacheInvalidator
	notify Notifier
	log    zerolog.Logger
}

func NewAdminService(admins AdminStore, cache CacheInvalidator, notify Notifier, log zerolog.Logger) *AdminService {
	return &AdminService{
		admins: admins,
		cache:  cache,
		notify: notify,
		log:    log,
	}
}

func ParseRole(s string) (models.AdminRole, error) {
	role := models.AdminRole(strings.TrimSpace(s))
	if !role.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return role, nil
}

type GrantInput struct {
	UserID string
	Email  string
	// Role defaults to admin.
	Role string
	// GrantedBy names the actor in the notification mail.
	GrantedBy string
}

func (s *AdminService) List(ctx context.Context, limit, offset int) ([]models.AdminRecord, error) {
	return s.admins.List(ctx, limit, offset)
}

func (s *AdminService) Grant(ctx context.Context, in GrantInput) (models.AdminRecord, error) {
	role := models.AdminRoleAdmin
	if in.Role != "" {
		var err error
		if role, err = ParseRole(in.Role); err != nil {
			return models.AdminRecord{}, err
		}
	}

	admin, err := s.admins.Create(ctx, models.AdminRecord{
		UserID: strings.TrimSpace(in.UserID),
		Email:  strings.ToLower(strings.TrimSpace(in.Email)),
		Role:   role,
	})
	if err != nil {
		return models.AdminRecord{}, err
	}
	s.invalidate(admin.UserID)

	if s.notify != nil {
		grantedBy := in.GrantedBy
		if grantedBy == "" {
			grantedBy = "An administrator"
		}
		if _, err := s.notify.PublishEmail(ctx, jobs.EmailTask{
			To:      admin.Email,
			Subject: "You now have dashboard access",
			Body:    fmt.Sprintf("%s granted you the %s role on the rental dashboard.", grantedBy, admin.Role),
		}); err != nil {
			s.log.Warn().Err(err).Str("user_id", admin.UserID).Msg("enqueue admin notification failed")
		}
	}
	return admin, nil
}

func (s *AdminService) SetRole(ctx context.Context, userID, role string) (models.AdminRecord, error) {
	r, err := ParseRole(role)
	if err != nil {
		return models.AdminRecord{}, err
	}
	admin, err := s.admins.UpdateRole(ctx, userID, r)
	if err != nil {
		return models.AdminRecord{}, err
	}
	s.invalidate(userID)
	return admin, nil
}

// Revoke removes userID from the registry. actorID, when set, may not revoke
// itself.
func (s *AdminService) Revoke(ctx context.Context, userID, actorID string) error {
	if actorID != "" && actorID == userID {
		return ErrSelfRevoke
	}
	if err := s.admins.Delete(ctx, userID); err != nil {
		return err
	}
	s.invalidate(userID)
	return nil
}

func (s *AdminService) invalidate(userID string) {
	if s.cache != nil {
		s.cache.Invalidate(userID)
	}
}
