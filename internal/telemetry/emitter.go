package telemetry

import (
	"context"
	"errors"

	"github.com/pranay-th/TGBH-CheeseBurger/internal/telemetry/domain"
)

// EventEmitter mirrors stored telemetry records to a downstream sink (Kafka, OTel logs).
// Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, env *domain.Envelope) error
}

// Emitters fans an envelope out to every non-nil emitter. All emitters are tried; errors are joined.
type Emitters []EventEmitter

// Emit implements EventEmitter.
func (es Emitters) Emit(ctx context.Context, env *domain.Envelope) error {
	var errs []error
	for _, e := range es {
		if e == nil {
			continue
		}
		if err := e.Emit(ctx, env); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
