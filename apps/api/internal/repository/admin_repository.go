package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"rentdash/apps/api/internal/models"
)

var (
	ErrAdminNotFound = errors.New("admin not found")
	ErrAdminExists   = errors.New("admin already exists")
)

const uniqueViolation = "23505"

// AdminRepository is the admin registry: user identity to administrative role.
type AdminRepository struct {
	pool *pgxpool.Pool
}

func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

func (r *AdminRepository) Create(ctx context.Context, admin models.AdminRecord) (models.AdminRecord, error) {
	const query = `
		INSERT INTO admin_users (user_id, email, role, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING user_id, email, role, created_at
	`

	row := r.pool.QueryRow(ctx, query, admin.UserID, admin.Email, admin.Role)
	created, err := scanAdmin(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return models.AdminRecord{}, ErrAdminExists
		}
		return models.AdminRecord{}, err
	}
	return created, nil
}

// FindByUserAndRole returns the registry row only when it carries exactly role.
func (r *AdminRepository) FindByUserAndRole(ctx context.Context, userID string, role models.AdminRole) (models.AdminRecord, error) {
	const query = `
		SELECT user_id, email, role, created_at
		FROM admin_users WHERE user_id = $1 AND role = $2
	`
	return scanAdmin(r.pool.QueryRow(ctx, query, userID, role))
}

func (r *AdminRepository) List(ctx context.Context, limit, offset int) ([]models.AdminRecord, error) {
	const query = `
		SELECT user_id, email, role, created_at
		FROM admin_users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var admins []models.AdminRecord
	for rows.Next() {
		var admin models.AdminRecord
		if err := rows.Scan(&admin.UserID, &admin.Email, &admin.Role, &admin.CreatedAt); err != nil {
			return nil, err
		}
		admins = append(admins, admin)
	}
	return admins, rows.Err()
}

func (r *AdminRepository) UpdateRole(ctx context.Context, userID string, role models.AdminRole) (models.AdminRecord, error) {
	const query = `
		UPDATE admin_users SET role = $2 WHERE user_id = $1
		RETURNING user_id, email, role, created_at
	`
	return scanAdmin(r.pool.QueryRow(ctx, query, userID, role))
}

func (r *AdminRepository) Delete(ctx context.Context, userID string) error {
	const query = `DELETE FROM admin_users WHERE user_id = $1`
	cmd, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAdminNotFound
	}
	return nil
}

func scanAdmin(row pgx.Row) (models.AdminRecord, error) {
	var admin models.AdminRecord
	if err := row.Scan(&admin.UserID, &admin.Email, &admin.Role, &admin.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.AdminRecord{}, ErrAdminNotFound
		}
		return models.AdminRecord{}, err
	}
	return admin, nil
}
