package repository

import (
	"context"
	"database/sql"

	"github.com/pranay-th/TGBH-CheeseBurger/internal/telemetry/domain"
)

const (
	insertKeystroke = `INSERT INTO keystrokes (user_id, key_pressed) VALUES ($1, $2) RETURNING id, created_at`
	insertPointer   = `INSERT INTO mouse_movements (user_id, x_pos, y_pos) VALUES ($1, $2, $3) RETURNING id, created_at`
	insertTabSwitch = `INSERT INTO tab_switches (user_id, tab_url) VALUES ($1, $2) RETURNING id, created_at`

	listKeystrokes = `SELECT id, user_id, key_pressed, created_at FROM keystrokes
WHERE user_id = $1 ORDER BY id LIMIT $2 OFFSET $3`
	listPointerMoves = `SELECT id, user_id, x_pos, y_pos, created_at FROM mouse_movements
WHERE user_id = $1 ORDER BY id LIMIT $2 OFFSET $3`
	listTabSwitches = `SELECT id, user_id, tab_url, created_at FROM tab_switches
WHERE user_id = $1 ORDER BY id LIMIT $2 OFFSET $3`
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a telemetry repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// AppendKeystroke inserts one keystroke row.
func (r *PostgresRepository) AppendKeystroke(ctx context.Context, userID int64, key string) (*domain.KeystrokeRecord, error) {
	rec := &domain.KeystrokeRecord{UserID: userID, KeyPressed: key}
	if err := r.db.QueryRowContext(ctx, insertKeystroke, userID, key).Scan(&rec.ID, &rec.CreatedAt); err != nil {
		return nil, err
	}
	return rec, nil
}

// AppendPointerMove inserts one mouse movement row.
func (r *PostgresRepository) AppendPointerMove(ctx context.Context, userID int64, x, y float64) (*domain.PointerMoveRecord, error) {
	rec := &domain.PointerMoveRecord{UserID: userID, XPos: x, YPos: y}
	if err := r.db.QueryRowContext(ctx, insertPointer, userID, x, y).Scan(&rec.ID, &rec.CreatedAt); err != nil {
		return nil, err
	}
	return rec, nil
}

// AppendVisibilityChange inserts one tab switch row.
func (r *PostgresRepository) AppendVisibilityChange(ctx context.Context, userID int64, url string) (*domain.VisibilityChangeRecord, error) {
	rec := &domain.VisibilityChangeRecord{UserID: userID, TabURL: url}
	if err := r.db.QueryRowContext(ctx, insertTabSwitch, userID, url).Scan(&rec.ID, &rec.CreatedAt); err != nil {
		return nil, err
	}
	return rec, nil
}

// ListKeystrokesByUser returns keystrokes for the user in insertion order.
func (r *PostgresRepository) ListKeystrokesByUser(ctx context.Context, userID int64, limit, offset int32) ([]*domain.KeystrokeRecord, error) {
	rows, err := r.db.QueryContext(ctx, listKeystrokes, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.KeystrokeRecord
	for rows.Next() {
		var rec domain.KeystrokeRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.KeyPressed, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// ListPointerMovesByUser returns mouse movements for the user in insertion order.
func (r *PostgresRepository) ListPointerMovesByUser(ctx context.Context, userID int64, limit, offset int32) ([]*domain.PointerMoveRecord, error) {
	rows, err := r.db.QueryContext(ctx, listPointerMoves, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.PointerMoveRecord
	for rows.Next() {
		var rec domain.PointerMoveRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.XPos, &rec.YPos, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// ListVisibilityChangesByUser returns tab switches for the user in insertion order.
func (r *PostgresRepository) ListVisibilityChangesByUser(ctx context.Context, userID int64, limit, offset int32) ([]*domain.VisibilityChangeRecord, error) {
	rows, err := r.db.QueryContext(ctx, listTabSwitches, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.VisibilityChangeRecord
	for rows.Next() {
		var rec domain.VisibilityChangeRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.TabURL, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}
