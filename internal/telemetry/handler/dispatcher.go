// Package handler routes inbound telemetry frames: the per-connection protocol state machine used
// by the WebSocket server and the HTTP ingest endpoint.
package handler

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/pranay-th/TGBH-CheeseBurger/internal/audit"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/identity"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/logging"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/session"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/telemetry"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/telemetry/domain"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/telemetry/protocol"
	userdomain "github.com/pranay-th/TGBH-CheeseBurger/internal/user/domain"
)

const instrumentationName = "github.com/pranay-th/TGBH-CheeseBurger/internal/telemetry/handler"

// Resolver looks up a coerced subject id. Satisfied by *identity.Resolver.
type Resolver interface {
	ResolveID(ctx context.Context, id int64) (*userdomain.User, error)
}

// Outcome is the terminal result of handling one frame.
type Outcome string

const (
	OutcomeStored        Outcome = "stored"
	OutcomeAcked         Outcome = "acked"
	OutcomeRejected      Outcome = "rejected"
	OutcomePersistFailed Outcome = "persist_failed"
	OutcomeAuditFailed   Outcome = "audit_failed"
)

// rejectReason names why a frame was silently dropped.
type rejectReason string

const (
	reasonMalformed       rejectReason = "malformed"
	reasonMissingSubject  rejectReason = "missing_subject"
	reasonUnknownSubject  rejectReason = "unknown_subject"
	reasonLookupFailed    rejectReason = "lookup_failed"
	reasonSubjectMismatch rejectReason = "subject_mismatch"
	reasonUnknownType     rejectReason = "unknown_type"
)

// Options configures a Dispatcher. Zero values select defaults.
type Options struct {
	// PersistTimeout bounds identity lookup plus persistence of one frame. Default 5s.
	PersistTimeout time.Duration
	// QueueSize is the per-connection inbound FIFO depth. Default 64.
	QueueSize int
	Logger    *zap.Logger
	// TracerProvider and MeterProvider default to the otel globals.
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Dispatcher validates frames, resolves their subject and routes events to the Writer. One
// Dispatcher serves every connection; per-connection state lives in Stream.
type Dispatcher struct {
	resolver       Resolver
	writer         telemetry.Writer
	logger         *zap.Logger
	tracer         trace.Tracer
	frames         metric.Int64Counter
	persistSeconds metric.Float64Histogram
	persistTimeout time.Duration
	queueSize      int
	now            func() time.Time
}

// NewDispatcher returns a Dispatcher that resolves subjects with resolver and persists to writer.
func NewDispatcher(resolver Resolver, writer telemetry.Writer, opts Options) (*Dispatcher, error) {
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = 5 * time.Second
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.TracerProvider == nil {
		opts.TracerProvider = otel.GetTracerProvider()
	}
	if opts.MeterProvider == nil {
		opts.MeterProvider = otel.GetMeterProvider()
	}
	meter := opts.MeterProvider.Meter(instrumentationName)
	frames, err := meter.Int64Counter("proctor.frames",
		metric.WithDescription("Inbound telemetry frames by type and outcome"),
		metric.WithUnit("{frame}"))
	if err != nil {
		return nil, err
	}
	persistSeconds, err := meter.Float64Histogram("proctor.persist.duration",
		metric.WithDescription("Time to persist one event and its audit entry"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	return &Dispatcher{
		resolver:       resolver,
		writer:         writer,
		logger:         logging.OrNop(opts.Logger).Named("dispatcher"),
		tracer:         opts.TracerProvider.Tracer(instrumentationName),
		frames:         frames,
		persistSeconds: persistSeconds,
		persistTimeout: opts.PersistTimeout,
		queueSize:      opts.QueueSize,
		now:            time.Now,
	}, nil
}

// inbound is one queued frame.
type inbound struct {
	seq  uint64
	data []byte
}

// handle processes one frame to completion. Processing runs on a context detached from the
// connection, so closing the transport never interrupts a frame midway.
func (d *Dispatcher) handle(s *Stream, in inbound) Outcome {
	ctx, span := d.tracer.Start(context.Background(), "telemetry.frame",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("conn.id", s.conn.ID()),
			attribute.Int64("frame.seq", int64(in.seq)),
		))
	defer span.End()
	ctx, cancel := context.WithTimeout(ctx, d.persistTimeout)
	defer cancel()
	ctx = telemetry.WithSource(ctx, telemetry.SourceWebSocket)

	log := d.logger.With(zap.String("conn_id", s.conn.ID()), zap.Uint64("seq", in.seq))

	frame, err := protocol.Decode(in.data)
	if err != nil {
		return d.reject(ctx, log, "", reasonMalformed, err)
	}
	s.activate()
	span.SetAttributes(attribute.String("frame.type", frame.Type))

	subject, reason, err := d.identify(ctx, s.conn, frame)
	if reason != "" {
		return d.reject(ctx, log, frame.Type, reason, err)
	}
	log = log.With(zap.Int64("user_id", subject))
	span.SetAttributes(attribute.Int64("user.id", subject))

	switch ev := frame.Event.(type) {
	case nil:
		return d.reject(ctx, log, frame.Type, reasonUnknownType, nil)
	case domain.Liveness:
		if err := s.conn.Send(protocol.HeartbeatAck()); err != nil {
			log.Debug("heartbeat ack not sent", zap.Error(err))
		}
		d.count(ctx, ev.Kind(), OutcomeAcked)
		return OutcomeAcked
	default:
		outcome := d.persist(ctx, log, subject, ev)
		if outcome != OutcomeStored {
			span.SetStatus(codes.Error, string(outcome))
		}
		return outcome
	}
}

// identify coerces the claimed subject and resolves it, caching the first positive resolution on
// the connection. A non-empty reason means the frame must be rejected.
func (d *Dispatcher) identify(ctx context.Context, conn *session.Handle, frame protocol.Frame) (int64, rejectReason, error) {
	id, ok := identity.CoerceID(frame.UserID)
	if !ok {
		return 0, reasonMissingSubject, nil
	}
	if bound, ok := conn.Subject(); ok {
		if bound != id {
			return 0, reasonSubjectMismatch, nil
		}
		return bound, "", nil
	}
	u, err := d.resolver.ResolveID(ctx, id)
	if err != nil {
		if errors.Is(err, identity.ErrLookup) {
			return 0, reasonLookupFailed, err
		}
		return 0, reasonUnknownSubject, nil
	}
	if err := conn.Bind(u.ID); err != nil {
		return 0, reasonSubjectMismatch, err
	}
	return u.ID, "", nil
}

// reject is the single point where frames are dropped. Nothing is ever sent back to the client:
// failures on this unauthenticated channel stay invisible to it.
func (d *Dispatcher) reject(ctx context.Context, log *zap.Logger, frameType string, reason rejectReason, err error) Outcome {
	fields := []zap.Field{zap.String("type", frameType), zap.String("reason", string(reason))}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	if reason == reasonLookupFailed {
		log.Warn("frame dropped", fields...)
	} else {
		log.Info("frame dropped", fields...)
	}
	kind, _ := protocol.MatchKind(frameType)
	d.count(ctx, kind, OutcomeRejected, attribute.String("reason", string(reason)))
	return OutcomeRejected
}

// persist appends ev and then its audit entry. The audit entry is skipped when the event append
// fails; failures are logged and never propagate.
func (d *Dispatcher) persist(ctx context.Context, log *zap.Logger, subject int64, ev domain.Event) Outcome {
	start := d.now()
	outcome := OutcomeStored
	defer func() {
		d.persistSeconds.Record(ctx, d.now().Sub(start).Seconds(),
			metric.WithAttributes(attribute.String("type", string(ev.Kind()))))
		d.count(ctx, ev.Kind(), outcome)
	}()

	if err := d.writer.WriteEvent(ctx, subject, ev); err != nil {
		log.Error("event not stored", zap.String("type", string(ev.Kind())), zap.Error(err))
		outcome = OutcomePersistFailed
		return outcome
	}
	entry, ok := audit.ForEvent(ev)
	if !ok {
		return outcome
	}
	if err := d.writer.WriteAudit(ctx, subject, entry.Category, entry.Detail); err != nil {
		log.Error("audit entry not stored", zap.String("category", entry.Category), zap.Error(err))
		outcome = OutcomeAuditFailed
		return outcome
	}
	log.Debug("event stored", zap.String("type", string(ev.Kind())))
	return outcome
}

func (d *Dispatcher) count(ctx context.Context, kind domain.Kind, outcome Outcome, extra ...attribute.KeyValue) {
	typ := string(kind)
	if typ == "" {
		typ = "unknown"
	}
	attrs := append([]attribute.KeyValue{
		attribute.String("type", typ),
		attribute.String("outcome", string(outcome)),
	}, extra...)
	d.frames.Add(ctx, 1, metric.WithAttributes(attrs...))
}
