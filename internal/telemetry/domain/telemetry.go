// Package domain holds the proctoring telemetry event variants and their persisted records.
package domain

import "time"

// Kind is the wire discriminator of a telemetry event.
type Kind string

const (
	KindKeystroke        Kind = "keystroke"
	KindPointerMove      Kind = "mouseMovement"
	KindVisibilityChange Kind = "tabSwitch"
	KindLiveness         Kind = "heartbeat"
)

// Kinds lists every known discriminator in wire order.
var Kinds = []Kind{KindKeystroke, KindPointerMove, KindVisibilityChange, KindLiveness}

// Event is a validated telemetry event. The set of implementations is closed:
// Keystroke, PointerMove, VisibilityChange and Liveness.
type Event interface {
	Kind() Kind
	event()
}

// Keystroke is a single key press observed in the exam client.
type Keystroke struct {
	Key string
}

// PointerMove is a pointer position sample in client coordinates.
type PointerMove struct {
	X, Y float64
}

// VisibilityChange records the exam tab losing or gaining focus. Initial marks the presence
// declaration a client sends right after connecting; it is persisted like any other change.
type VisibilityChange struct {
	URL     string
	Visible bool
	Initial bool
}

// Liveness is a heartbeat. It is acknowledged but never persisted.
type Liveness struct{}

func (Keystroke) Kind() Kind        { return KindKeystroke }
func (PointerMove) Kind() Kind      { return KindPointerMove }
func (VisibilityChange) Kind() Kind { return KindVisibilityChange }
func (Liveness) Kind() Kind         { return KindLiveness }

func (Keystroke) event()        {}
func (PointerMove) event()      {}
func (VisibilityChange) event() {}
func (Liveness) event()         {}

// KeystrokeRecord is a persisted keystroke row.
type KeystrokeRecord struct {
	ID         int64
	UserID     int64
	KeyPressed string
	CreatedAt  time.Time
}

// PointerMoveRecord is a persisted mouse movement row.
type PointerMoveRecord struct {
	ID        int64
	UserID    int64
	XPos      float64
	YPos      float64
	CreatedAt time.Time
}

// VisibilityChangeRecord is a persisted tab switch row.
type VisibilityChangeRecord struct {
	ID        int64
	UserID    int64
	TabURL    string
	CreatedAt time.Time
}

// Envelope is the JSON shape mirrored to downstream sinks (Kafka, OTel logs) after an event is stored.
// Visible and Initial are only set for tab switches; the database row does not keep them.
type Envelope struct {
	RecordID  int64     `json:"recordId"`
	UserID    int64     `json:"userId"`
	Kind      Kind      `json:"kind"`
	Category  string    `json:"category"`
	Detail    string    `json:"detail"`
	Source    string    `json:"source"`
	Visible   *bool     `json:"visible,omitempty"`
	Initial   bool      `json:"initial,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
