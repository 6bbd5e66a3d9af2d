// Package producer defines the interface for mirroring stored telemetry records (e.g. to Kafka).
package producer

import (
	"context"

	"github.com/pranay-th/TGBH-CheeseBurger/internal/telemetry/domain"
)

// Producer mirrors envelopes to a message broker. Callers use it best-effort: log and ignore errors.
type Producer interface {
	// Emit sends a single envelope. Implementations may block briefly; call from a goroutine if needed.
	Emit(ctx context.Context, env *domain.Envelope) error
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}
