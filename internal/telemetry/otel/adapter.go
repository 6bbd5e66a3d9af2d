package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/pranay-th/TGBH-CheeseBurger/internal/telemetry"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/telemetry/domain"
)

// scopeName is the instrumentation scope of mirrored telemetry log records.
const scopeName = "proctor.telemetry"

// recordEmitter is the part of otellog.Logger the emitter needs.
type recordEmitter interface {
	Emit(ctx context.Context, rec otellog.Record)
}

// NewEventEmitter returns an EventEmitter that mirrors envelopes as OTel log records via the given
// LoggerProvider. If provider is nil, returns a no-op emitter.
func NewEventEmitter(provider *sdklog.LoggerProvider) telemetry.EventEmitter {
	if provider == nil {
		return noopEmitter{}
	}
	return NewEventEmitterWithLogger(provider.Logger(scopeName))
}

// NewEventEmitterWithLogger returns an EventEmitter that writes to logger.
func NewEventEmitterWithLogger(logger recordEmitter) telemetry.EventEmitter {
	return &otelEmitter{logger: logger}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *domain.Envelope) error { return nil }

type otelEmitter struct {
	logger recordEmitter
}

// Emit converts the envelope to an OTel log record: the audit detail is the body and the
// identifying fields are attributes.
func (e *otelEmitter) Emit(ctx context.Context, env *domain.Envelope) error {
	if env == nil {
		return nil
	}
	rec := otellog.Record{}
	ts := env.CreatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	rec.SetTimestamp(ts)
	rec.SetSeverity(otellog.SeverityInfo)
	if env.Detail != "" {
		rec.SetBody(otellog.StringValue(env.Detail))
	}
	rec.AddAttributes(
		otellog.Int64("record_id", env.RecordID),
		otellog.Int64("user_id", env.UserID),
	)
	if env.Kind != "" {
		rec.AddAttributes(otellog.String("kind", string(env.Kind)))
	}
	if env.Category != "" {
		rec.AddAttributes(otellog.String("category", env.Category))
	}
	if env.Source != "" {
		rec.AddAttributes(otellog.String("source", env.Source))
	}
	if env.Visible != nil {
		rec.AddAttributes(
			otellog.Bool("visible", *env.Visible),
			otellog.Bool("initial", env.Initial),
		)
	}
	e.logger.Emit(ctx, rec)
	return nil
}
