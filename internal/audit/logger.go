package audit

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/pranay-th/TGBH-CheeseBurger/internal/audit/domain"
	auditrepo "github.com/pranay-th/TGBH-CheeseBurger/internal/audit/repository"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/logging"
)

// ErrNoRepository is returned by LogEvent when the Logger has no backing repository.
var ErrNoRepository = errors.New("audit: no repository configured")

// AuditLogger writes a single audit entry for a subject.
type AuditLogger interface {
	LogEvent(ctx context.Context, userID int64, category, detail string) (*domain.AuditLog, error)
}

// Logger implements AuditLogger using the audit repository.
type Logger struct {
	repo   auditrepo.Repository
	logger *zap.Logger
}

// NewLogger returns an AuditLogger that persists to repo. logger may be nil.
func NewLogger(repo auditrepo.Repository, logger *zap.Logger) *Logger {
	return &Logger{repo: repo, logger: logging.OrNop(logger).Named("audit")}
}

// LogEvent appends one audit log entry. Failures are logged here and also returned, so callers
// can decide whether a partial write matters to them.
func (l *Logger) LogEvent(ctx context.Context, userID int64, category, detail string) (*domain.AuditLog, error) {
	if l.repo == nil {
		return nil, ErrNoRepository
	}
	entry := &domain.AuditLog{
		UserID:    userID,
		EventType: category,
		Details:   detail,
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		l.logger.Warn("failed to log event",
			zap.Int64("user_id", userID),
			zap.String("category", category),
			zap.Error(err))
		return nil, err
	}
	return entry, nil
}
