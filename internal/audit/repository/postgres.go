package repository

import (
	"context"
	"database/sql"

	"github.com/pranay-th/TGBH-CheeseBurger/internal/audit/domain"
)

const (
	createAuditLog = `INSERT INTO event_logs (user_id, event_type, details)
VALUES ($1, $2, $3)
RETURNING id, created_at`

	listAuditLogsByUser = `SELECT id, user_id, event_type, details, created_at
FROM event_logs
WHERE user_id = $1
ORDER BY id
LIMIT $2 OFFSET $3`
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create appends the audit log and sets a.ID and a.CreatedAt on success.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	return r.db.QueryRowContext(ctx, createAuditLog, a.UserID, a.EventType, a.Details).
		Scan(&a.ID, &a.CreatedAt)
}

// ListByUser returns audit logs for the given user, paginated by limit and offset.
// Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64, limit, offset int32) ([]*domain.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx, listAuditLogsByUser, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.AuditLog
	for rows.Next() {
		var a domain.AuditLog
		if err := rows.Scan(&a.ID, &a.UserID, &a.EventType, &a.Details, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
