package repository

import (
	"context"

	"github.com/pranay-th/TGBH-CheeseBurger/internal/audit/domain"
)

// Repository defines append-only persistence for audit logs.
type Repository interface {
	// Create appends a. ID and CreatedAt are assigned by the store and written back to a.
	Create(ctx context.Context, a *domain.AuditLog) error
	// ListByUser returns the user's audit logs in insertion order.
	ListByUser(ctx context.Context, userID int64, limit, offset int32) ([]*domain.AuditLog, error)
}
