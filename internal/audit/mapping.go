package audit

import (
	"strconv"

	teldomain "github.com/pranay-th/TGBH-CheeseBurger/internal/telemetry/domain"
)

// Categories recorded in event_logs.event_type for each persisted telemetry kind.
const (
	CategoryKeystroke        = "keyispressed"
	CategoryPointerMove      = "mousemoved"
	CategoryVisibilityChange = "tabswitched"
)

// Entry is the category and detail derived from a telemetry event.
type Entry struct {
	Category string
	Detail   string
}

// ForEvent returns the audit entry paired with ev. ok is false for events that are not audited
// (heartbeats).
func ForEvent(ev teldomain.Event) (Entry, bool) {
	switch e := ev.(type) {
	case teldomain.Keystroke:
		return Entry{Category: CategoryKeystroke, Detail: "Key pressed: " + e.Key}, true
	case teldomain.PointerMove:
		return Entry{
			Category: CategoryPointerMove,
			Detail:   "Mouse moved to: (" + formatCoord(e.X) + ", " + formatCoord(e.Y) + ")",
		}, true
	case teldomain.VisibilityChange:
		return Entry{Category: CategoryVisibilityChange, Detail: "Tab switched to: " + e.URL}, true
	default:
		return Entry{}, false
	}
}

// formatCoord renders a coordinate without trailing zeros (12, not 12.000000).
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
