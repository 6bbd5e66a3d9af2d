package telemetry

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pranay-th/TGBH-CheeseBurger/internal/logging"
	"github.com/pranay-th/TGBH-CheeseBurger/internal/telemetry/domain"
)

// emitTimeout is the max time allowed for a single async emit. Used by EmitAsync and by ShutdownDrainDuration.
const emitTimeout = 5 * time.Second

// ShutdownDrainDuration is how long to wait after the listeners stop before shutting down the
// mirror sinks, so in-flight async emits have time to complete. Must be >= emitTimeout.
const ShutdownDrainDuration = emitTimeout

// EmitAsync runs Emit in a goroutine with a short timeout so the caller is not blocked.
// Errors are logged to logger (which may be nil).
//
// emitter and env may be nil; EmitAsync returns immediately without starting a goroutine.
// The goroutine uses context.Background() with emitTimeout so connection teardown does not abort
// an in-flight emit.
func EmitAsync(emitter EventEmitter, env *domain.Envelope, logger *zap.Logger) {
	if emitter == nil || env == nil {
		return
	}
	go func() {
		emitCtx, cancel := context.WithTimeout(context.Background(), emitTimeout)
		defer cancel()
		if err := emitter.Emit(emitCtx, env); err != nil {
			logging.OrNop(logger).Warn("async emit failed",
				zap.Int64("record_id", env.RecordID),
				zap.String("kind", string(env.Kind)),
				zap.Error(err))
		}
	}()
}
