package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"rentdash/apps/api/internal/models"
)

var ErrEntryNotFound = errors.New("guestbook entry not found")

type GuestbookRepository struct {
	pool *pgxpool.Pool
}

func NewGuestbookRepository(pool *pgxpool.Pool) *GuestbookRepository {
	return &GuestbookRepository{pool: pool}
}

func (r *GuestbookRepository) Create(ctx context.Context, entry models.GuestbookEntry) (models.GuestbookEntry, error) {
	const query = `
		INSERT INTO guestbook_entries (id, author_id, author_email, message, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING created_at
	`
	if err := r.pool.QueryRow(ctx, query, entry.ID, entry.AuthorID, entry.AuthorEmail, entry.Message).Scan(&entry.CreatedAt); err != nil {
		return models.GuestbookEntry{}, err
	}
	return entry, nil
}

func (r *GuestbookRepository) List(ctx context.Context, limit, offset int) ([]models.GuestbookEntry, error) {
	const query = `
		SELECT id, author_id, author_email, message, created_at
		FROM guestbook_entries
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.GuestbookEntry
	for rows.Next() {
		var entry models.GuestbookEntry
		if err := rows.Scan(&entry.ID, &entry.AuthorID, &entry.AuthorEmail, &entry.Message, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Delete removes an entry, but only one written by authorID.
func (r *GuestbookRepository) Delete(ctx context.Context, id, authorID string) error {
	const query = `DELETE FROM guestbook_entries WHERE id = $1 AND author_id = $2`
	cmd, err := r.pool.Exec(ctx, query, id, authorID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}
