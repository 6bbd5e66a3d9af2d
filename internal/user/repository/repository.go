package repository

import (
	"context"

	"github.com/pranay-th/TGBH-CheeseBurger/internal/user/domain"
)

// Repository defines read access to the user directory.
type Repository interface {
	// GetByID returns the user for id, or (nil, nil) if no such user exists.
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}
