// Package identity resolves the subject claimed by a telemetry frame to an account in the user
// directory.
package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pranay-th/TGBH-CheeseBurger/internal/logging"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/user/domain"
	userrepo "github.com/pranay-th/TGBH-CheeseBurger/internal/user/repository"
)

var (
	// ErrNotFound is returned for every identifier that does not resolve to an account. Callers on
	// unauthenticated channels must not distinguish between its causes.
	ErrNotFound = errors.New("identity: subject not found")
	// ErrInvalidSubject is returned when the raw identifier cannot be coerced to a positive integer.
	ErrInvalidSubject = fmt.Errorf("%w: identifier is not a positive integer", ErrNotFound)
	// ErrLookup is returned when the user directory could not be read. It also matches ErrNotFound.
	ErrLookup = fmt.Errorf("%w: directory lookup failed", ErrNotFound)
)

// CoerceID converts a raw JSON value to a subject id. Accepted: an integral JSON number > 0, or a
// JSON string holding a decimal integer > 0 (surrounding whitespace ignored).
func CoerceID(raw json.RawMessage) (int64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	text := string(raw)
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		text = strings.TrimSpace(s)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
	default:
		return 0, false
	}
	if id, err := strconv.ParseInt(text, 10, 64); err == nil {
		return id, id > 0
	}
	// Integral values written with a fraction or exponent (7.0, 1e2) are still ids. float64(MaxInt64)
	// rounds up to 2^63, which int64 cannot hold.
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f != math.Trunc(f) || f < 1 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// Resolver verifies claimed subjects against the user directory. It holds no per-connection state.
type Resolver struct {
	users  userrepo.Repository
	logger *zap.Logger
}

// NewResolver returns a Resolver backed by users. logger may be nil.
func NewResolver(users userrepo.Repository, logger *zap.Logger) *Resolver {
	return &Resolver{users: users, logger: logging.OrNop(logger).Named("identity")}
}

// Resolve coerces raw and looks the id up. A directory read happens only for valid ids and is not
// retried. Every failure wraps ErrNotFound; lookup failures additionally wrap ErrLookup.
func (r *Resolver) Resolve(ctx context.Context, raw json.RawMessage) (*domain.User, error) {
	id, ok := CoerceID(raw)
	if !ok {
		return nil, ErrInvalidSubject
	}
	return r.ResolveID(ctx, id)
}

// ResolveID looks up an already coerced id.
func (r *Resolver) ResolveID(ctx context.Context, id int64) (*domain.User, error) {
	if id <= 0 {
		return nil, ErrInvalidSubject
	}
	u, err := r.users.GetByID(ctx, id)
	if err != nil {
		r.logger.Warn("user lookup failed", zap.Int64("user_id", id), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrLookup, err)
	}
	if u == nil {
		r.logger.Debug("user not found", zap.Int64("user_id", id))
		return nil, ErrNotFound
	}
	return u, nil
}
