package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/pranay-th/TGBH-CheeseBurger/internal/user/domain"
)

const getUserByID = `SELECT id, email, name, created_at FROM users WHERE id = $1`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that reads from the given db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var (
		u    domain.User
		name sql.NullString
	)
	err := r.db.QueryRowContext(ctx, getUserByID, id).Scan(&u.ID, &u.Email, &name, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if name.Valid {
		u.Name = name.String
	}
	return &u, nil
}
