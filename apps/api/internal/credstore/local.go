package credstore

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"rentdash/apps/api/internal/ids"
	"rentdash/apps/api/internal/models"
	"rentdash/apps/api/internal/repository"
	"rentdash/apps/api/internal/security"
)

type UserStore interface {
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
}

type SessionStore interface {
	Create(ctx context.Context, session models.Session) error
	GetByID(ctx context.Context, id string) (models.Session, error)
	Rotate(ctx context.Context, id string, oldHash, newHash []byte, expiresAt time.Time) error
	DeleteByID(ctx context.Context, id string) error
	CountByUser(ctx context.Context, userID string) (int, error)
	DeleteOldestSessions(ctx context.Context, userID string, keepLatest int) error
}

type PasswordVerifier interface {
	Verify(password string, encodedHash []byte) (bool, error)
}

type LocalConfig struct {
	JWTSecret   string
	AccessTTL   time.Duration
	RefreshTTL  time.Duration
	MaxSessions int
}

// Local is a Store that keeps accounts and sessions in Postgres. Access
// tokens are HS512 JWTs; refresh tokens are random and stored hashed, and
// every refresh rotates them.
type Local struct {
	users    UserStore
	sessions SessionStore
	hasher   PasswordVerifier
	cfg      LocalConfig
	log      zerolog.Logger
	now      func() time.Time
}

var _ Store = (*Local)(nil)

func NewLocal(users UserStore, sessions SessionStore, hasher PasswordVerifier, cfg LocalConfig, log zerolog.Logger) *Local {
	return &Local{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

func (s *Local) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}
	if user.Status != models.UserStatusActive {
		return nil, ErrInvalidCredentials
	}

	refreshToken, refreshHash, err := security.GenerateRefreshToken(64)
	if err != nil {
		return nil, err
	}

	now := s.now()
	client := ClientFrom(ctx)
	session := models.Session{
		ID:               ids.New(),
		UserID:           user.ID,
		RefreshTokenHash: refreshHash,
		IPAddress:        client.IP,
		UserAgent:        client.UserAgent,
		ExpiresAt:        now.Add(s.cfg.RefreshTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("%w: create session: %v", ErrStoreUnavailable, err)
	}

	if err := s.enforceSessionLimit(ctx, user.ID); err != nil {
		s.log.Warn().Err(err).Str("user_id", user.ID).Msg("enforce session limit failed")
	}

	return s.issue(user, session.ID, refreshToken, now)
}

func (s *Local) RefreshSession(ctx context.Context, accessToken, refreshToken string) (*Session, error) {
	claims, err := security.ParseExpiredAccessToken(accessToken, s.cfg.JWTSecret)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	session, err := s.sessions.GetByID(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	oldHash := security.HashRefreshToken(refreshToken)
	if session.UserID != claims.UserID || subtle.ConstantTimeCompare(session.RefreshTokenHash, oldHash) != 1 {
		return nil, ErrInvalidRefreshToken
	}

	now := s.now()
	if session.ExpiresAt.Before(now) {
		if err := s.sessions.DeleteByID(ctx, session.ID); err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
			s.log.Warn().Err(err).Str("session_id", session.ID).Msg("delete expired session failed")
		}
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if user.Status != models.UserStatusActive {
		return nil, ErrInvalidRefreshToken
	}

	newToken, newHash, err := security.GenerateRefreshToken(64)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Rotate(ctx, session.ID, oldHash, newHash, now.Add(s.cfg.RefreshTTL)); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			// Lost a race with a concurrent refresh of the same token.
			return nil, ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("%w: rotate session: %v", ErrStoreUnavailable, err)
	}

	return s.issue(user, session.ID, newToken, now)
}

func (s *Local) SignOut(ctx context.Context, accessToken string) error {
	claims, err := security.ParseExpiredAccessToken(accessToken, s.cfg.JWTSecret)
	if err != nil {
		return nil
	}
	if err := s.sessions.DeleteByID(ctx, claims.SessionID); err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Local) issue(user models.User, sessionID, refreshToken string, now time.Time) (*Session, error) {
	accessToken, err := security.GenerateAccessToken(s.cfg.JWTSecret, user.ID, sessionID, user.Email, now, s.cfg.AccessTTL)
	if err != nil {
		return nil, err
	}
	return &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.cfg.AccessTTL / time.Second),
		User:         User{ID: user.ID, Email: user.Email},
	}, nil
}

func (s *Local) enforceSessionLimit(ctx context.Context, userID string) error {
	if s.cfg.MaxSessions <= 0 {
		return nil
	}
	count, err := s.sessions.CountByUser(ctx, userID)
	if err != nil {
		return err
	}
	if count <= s.cfg.MaxSessions {
		return nil
	}
	return s.sessions.DeleteOldestSessions(ctx, userID, s.cfg.MaxSessions)
}
