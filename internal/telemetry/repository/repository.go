package repository

import (
	"context"

	"github.com/pranay-th/TGBH-CheeseBurger/internal/telemetry/domain"
)

// Repository defines append-only persistence for telemetry events. Rows are never updated or
// deleted through this interface.
type Repository interface {
	AppendKeystroke(ctx context.Context, userID int64, key string) (*domain.KeystrokeRecord, error)
	AppendPointerMove(ctx context.Context, userID int64, x, y float64) (*domain.PointerMoveRecord, error)
	AppendVisibilityChange(ctx context.Context, userID int64, url string) (*domain.VisibilityChangeRecord, error)

	ListKeystrokesByUser(ctx context.Context, userID int64, limit, offset int32) ([]*domain.KeystrokeRecord, error)
	ListPointerMovesByUser(ctx context.Context, userID int64, limit, offset int32) ([]*domain.PointerMoveRecord, error)
	ListVisibilityChangesByUser(ctx context.Context, userID int64, limit, offset int32) ([]*domain.VisibilityChangeRecord, error)
}
