package domain

import "time"

// AuditLog is one row of the proctoring event log: a coarse category plus a human-readable detail
// for a single telemetry event.
type AuditLog struct {
	ID        int64
	UserID    int64
	EventType string
	Details   string
	CreatedAt time.Time
}
