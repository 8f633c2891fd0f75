package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentdash/apps/api/internal/jobs"
	"rentdash/apps/api/internal/models"
	"rentdash/apps/api/internal/repository"
)

type memStore map[string]models.AdminRecord

func (m memStore) List(context.Context, int, int) ([]models.AdminRecord, error) {
	out := make([]models.AdminRecord, 0, len(m))
	for _, a := range m {
		out = append(out, a)
	}
	return out, nil
}

func (m memStore) Create(_ context.Context, a models.AdminRecord) (models.AdminRecord, error) {
	if _, ok := m[a.UserID]; ok {
		return models.AdminRecord{}, repository.ErrAdminExists
	}
	m[a.UserID] = a
	return a, nil
}

func (m memStore) UpdateRole(_ context.Context, userID string, role models.AdminRole) (models.AdminRecord, error) {
	a, ok := m[userID]
	if !ok {
		return models.AdminRecord{}, repository.ErrAdminNotFound
	}
	a.Role = role
	m[userID] = a
	return a, nil
}

func (m memStore) Delete(_ context.Context, userID string) error {
	if _, ok := m[userID]; !ok {
		return repository.ErrAdminNotFound
	}
	delete(m, userID)
	return nil
}

type invalidations []string

func (i *invalidations) Invalidate(userID string) { *i = append(*i, userID) }

type notifier struct {
	sent []jobs.EmailTask
	err  error
}

func (n *notifier) PublishEmail(_ context.Context, task jobs.EmailTask) (string, error) {
	n.sent = append(n.sent, task)
	return "1-0", n.err
}

func TestGrant(t *testing.T) {
	store := memStore{}
	inv := &invalidations{}
	n := &notifier{}
	s := NewAdminService(store, inv, n, zerolog.Nop())

	admin, err := s.Grant(context.Background(), GrantInput{UserID: " u-1 ", Email: " Ops@Example.com", GrantedBy: "boss@example.com"})
	require.NoError(t, err)
	assert.Equal(t, models.AdminRecord{UserID: "u-1", Email: "ops@example.com", Role: models.AdminRoleAdmin}, admin)
	assert.Equal(t, []string{"u-1"}, []string(*inv))

	require.Len(t, n.sent, 1)
	assert.Equal(t, "ops@example.com", n.sent[0].To)
	assert.Contains(t, n.sent[0].Body, "boss@example.com granted you the admin role")

	_, err = s.Grant(context.Background(), GrantInput{UserID: "u-1", Email: "ops@example.com"})
	assert.ErrorIs(t, err, repository.ErrAdminExists)

	_, err = s.Grant(context.Background(), GrantInput{UserID: "u-2", Email: "x@example.com", Role: "owner"})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestGrantSurvivesNotifierFailure(t *testing.T) {
	s := NewAdminService(memStore{}, nil, &notifier{err: errors.New("redis down")}, zerolog.Nop())
	_, err := s.Grant(context.Background(), GrantInput{UserID: "u-1", Email: "a@example.com", Role: "super_admin"})
	assert.NoError(t, err)
}

func TestSetRoleAndRevoke(t *testing.T) {
	store := memStore{"u-1": {UserID: "u-1", Role: models.AdminRoleAdmin}}
	inv := &invalidations{}
	s := NewAdminService(store, inv, nil, zerolog.Nop())
	ctx := context.Background()

	admin, err := s.SetRole(ctx, "u-1", "super_admin")
	require.NoError(t, err)
	assert.Equal(t, models.AdminRoleSuperAdmin, admin.Role)

	_, err = s.SetRole(ctx, "u-1", "root")
	assert.ErrorIs(t, err, ErrInvalidRole)
	_, err = s.SetRole(ctx, "ghost", "admin")
	assert.ErrorIs(t, err, repository.ErrAdminNotFound)

	assert.ErrorIs(t, s.Revoke(ctx, "u-1", "u-1"), ErrSelfRevoke)
	require.NoError(t, s.Revoke(ctx, "u-1", "u-boss"))
	assert.Empty(t, store)
	assert.ErrorIs(t, s.Revoke(ctx, "u-1", ""), repository.ErrAdminNotFound)

	assert.Equal(t, []string{"u-1", "u-1"}, []string(*inv))
}
