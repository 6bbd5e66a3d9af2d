// Package telemetry persists proctoring telemetry and mirrors stored records to downstream sinks.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pranay-th/TGBH-CheeseBurger/internal/audit"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/logging"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/telemetry/domain"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/telemetry/repository"
)

// ErrNotPersisted is returned by WriteEvent for event kinds that are never stored (heartbeats).
var ErrNotPersisted = errors.New("telemetry: event kind is not persisted")

// Writer is the persistence contract used by the dispatcher and the HTTP ingest handler. The two
// calls are independent; callers decide how to treat a partial failure.
type Writer interface {
	WriteEvent(ctx context.Context, subject int64, ev domain.Event) error
	WriteAudit(ctx context.Context, subject int64, category, detail string) error
}

// Gateway is the append-only Writer backed by the telemetry repository and the audit logger.
type Gateway struct {
	events repository.Repository
	audit  audit.AuditLogger
	mirror EventEmitter
	logger *zap.Logger
}

// NewGateway returns a Gateway. mirror and logger may be nil.
func NewGateway(events repository.Repository, auditLogger audit.AuditLogger, mirror EventEmitter, logger *zap.Logger) *Gateway {
	return &Gateway{
		events: events,
		audit:  auditLogger,
		mirror: mirror,
		logger: logging.OrNop(logger).Named("gateway"),
	}
}

// WriteEvent appends ev for subject, then mirrors the stored record asynchronously.
func (g *Gateway) WriteEvent(ctx context.Context, subject int64, ev domain.Event) error {
	var (
		recordID  int64
		createdAt time.Time
		visible   *bool
		initial   bool
	)
	switch e := ev.(type) {
	case domain.Keystroke:
		rec, err := g.events.AppendKeystroke(ctx, subject, e.Key)
		if err != nil {
			return fmt.Errorf("append keystroke: %w", err)
		}
		recordID, createdAt = rec.ID, rec.CreatedAt
	case domain.PointerMove:
		rec, err := g.events.AppendPointerMove(ctx, subject, e.X, e.Y)
		if err != nil {
			return fmt.Errorf("append pointer move: %w", err)
		}
		recordID, createdAt = rec.ID, rec.CreatedAt
	case domain.VisibilityChange:
		rec, err := g.events.AppendVisibilityChange(ctx, subject, e.URL)
		if err != nil {
			return fmt.Errorf("append visibility change: %w", err)
		}
		recordID, createdAt = rec.ID, rec.CreatedAt
		visible, initial = &e.Visible, e.Initial
	default:
		return ErrNotPersisted
	}

	entry, _ := audit.ForEvent(ev)
	EmitAsync(g.mirror, &domain.Envelope{
		RecordID:  recordID,
		UserID:    subject,
		Kind:      ev.Kind(),
		Category:  entry.Category,
		Detail:    entry.Detail,
		Source:    SourceFrom(ctx),
		Visible:   visible,
		Initial:   initial,
		CreatedAt: createdAt,
	}, g.logger)
	return nil
}

// WriteAudit appends one audit entry.
func (g *Gateway) WriteAudit(ctx context.Context, subject int64, category, detail string) error {
	if _, err := g.audit.LogEvent(ctx, subject, category, detail); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}
