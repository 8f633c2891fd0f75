package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentdash/apps/api/internal/config"
	"rentdash/apps/api/internal/database"
	"rentdash/apps/api/internal/ids"
	"rentdash/apps/api/internal/models"
)

// testPool connects to RENTDASH_TEST_POSTGRES_DSN and skips otherwise.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("RENTDASH_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("RENTDASH_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	pool, err := database.Open(ctx, config.PostgresConfig{DSN: dsn, MaxOpen: 4, MaxIdle: 1, ConnMaxLifetime: time.Minute}, "rentdash-test")
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestAdminRepository(t *testing.T) {
	pool := testPool(t)
	repo := NewAdminRepository(pool)
	ctx := context.Background()

	userID := "u-" + ids.New()
	email := userID + "@example.com"
	t.Cleanup(func() { _ = repo.Delete(ctx, userID) })

	_, err := repo.FindByUserAndRole(ctx, userID, models.AdminRoleAdmin)
	assert.ErrorIs(t, err, ErrAdminNotFound)

	created, err := repo.Create(ctx, models.AdminRecord{UserID: userID, Email: email, Role: models.AdminRoleAdmin})
	require.NoError(t, err)
	assert.False(t, created.CreatedAt.IsZero())

	_, err = repo.Create(ctx, models.AdminRecord{UserID: userID, Email: email, Role: models.AdminRoleAdmin})
	assert.ErrorIs(t, err, ErrAdminExists)

	found, err := repo.FindByUserAndRole(ctx, userID, models.AdminRoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, email, found.Email)

	_, err = repo.UpdateRole(ctx, userID, models.AdminRoleSuperAdmin)
	require.NoError(t, err)
	_, err = repo.FindByUserAndRole(ctx, userID, models.AdminRoleAdmin)
	assert.ErrorIs(t, err, ErrAdminNotFound)

	require.NoError(t, repo.Delete(ctx, userID))
	assert.ErrorIs(t, repo.Delete(ctx, userID), ErrAdminNotFound)
}

func TestSessionRotateIsCompareAndSwap(t *testing.T) {
	pool := testPool(t)
	users := NewUserRepository(pool)
	sessions := NewSessionRepository(pool)
	ctx := context.Background()

	user := models.User{ID: ids.New(), Email: ids.New() + "@example.com", PasswordHash: []byte("x"), Status: models.UserStatusActive}
	require.NoError(t, users.Create(ctx, user))
	t.Cleanup(func() { _, _ = pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, user.ID) })

	session := models.Session{ID: ids.New(), UserID: user.ID, RefreshTokenHash: []byte("h1"), ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, sessions.Create(ctx, session))

	require.NoError(t, sessions.Rotate(ctx, session.ID, []byte("h1"), []byte("h2"), time.Now().Add(time.Hour)))
	assert.ErrorIs(t, sessions.Rotate(ctx, session.ID, []byte("h1"), []byte("h3"), time.Now().Add(time.Hour)), ErrSessionNotFound)

	got, err := sessions.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("h2"), got.RefreshTokenHash)

	expired := models.Session{ID: ids.New(), UserID: user.ID, RefreshTokenHash: []byte("old"), ExpiresAt: time.Now().Add(-time.Minute)}
	require.NoError(t, sessions.Create(ctx, expired))
	n, err := sessions.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))
	_, err = sessions.GetByID(ctx, expired.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
