// Package protocol decodes inbound telemetry frames into validated event variants and encodes the
// outbound frames the server sends.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/pranay-th/TGBH-CheeseBurger/internal/telemetry/domain"
)

// ErrMalformed is returned by Decode for payloads that are not a JSON object.
var ErrMalformed = errors.New("protocol: malformed frame")

// Frame is one decoded inbound message. Event is nil when the discriminator is not a known kind.
type Frame struct {
	// Type is the discriminator exactly as sent; empty when absent or not a string.
	Type string
	// UserID is the raw claimed subject; nil when absent.
	UserID json.RawMessage
	Event  domain.Event

	fields map[string]json.RawMessage
}

// Kind returns the matched kind, or "" for unknown discriminators.
func (f Frame) Kind() domain.Kind {
	if f.Event == nil {
		return ""
	}
	return f.Event.Kind()
}

// Has reports whether field is present and not null.
func (f Frame) Has(field string) bool {
	raw, ok := f.fields[field]
	return ok && !isNull(raw)
}

// Truthy reports whether field is present and not one of null, false, 0 or "".
func (f Frame) Truthy(field string) bool {
	raw, ok := f.fields[field]
	return ok && truthy(raw)
}

// Decode parses data as a JSON object and classifies it. The discriminator match is
// case-insensitive over domain.Kinds. Only non-object payloads are errors.
func Decode(data []byte) (Frame, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return Frame{}, ErrMalformed
	}
	f := Frame{fields: fields}
	if raw, ok := fields["userId"]; ok && !isNull(raw) {
		f.UserID = raw
	}
	if raw, ok := fields["type"]; ok {
		_ = json.Unmarshal(raw, &f.Type)
	}
	if kind, ok := MatchKind(f.Type); ok {
		f.Event = build(kind, fields)
	}
	return f, nil
}

// MatchKind returns the known kind equal to t ignoring case.
func MatchKind(t string) (domain.Kind, bool) {
	for _, k := range domain.Kinds {
		if strings.EqualFold(t, string(k)) {
			return k, true
		}
	}
	return "", false
}

func build(kind domain.Kind, fields map[string]json.RawMessage) domain.Event {
	switch kind {
	case domain.KindKeystroke:
		return domain.Keystroke{Key: coerceText(fields["keyPressed"])}
	case domain.KindPointerMove:
		return domain.PointerMove{X: coerceNumber(fields["xPos"]), Y: coerceNumber(fields["yPos"])}
	case domain.KindVisibilityChange:
		ev := domain.VisibilityChange{URL: coerceText(fields["tabUrl"]), Visible: true}
		if raw, ok := fields["visible"]; ok {
			var visible bool
			if json.Unmarshal(raw, &visible) == nil {
				ev.Visible = visible
			}
		}
		var action string
		if json.Unmarshal(fields["action"], &action) == nil {
			ev.Initial = strings.EqualFold(strings.TrimSpace(action), "initial")
		}
		return ev
	default:
		return domain.Liveness{}
	}
}

// coerceText renders a text field (key, URL) as text. Falsy values become "", other scalars their literal
// text, and objects or arrays their compact JSON.
func coerceText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if !truthy(raw) {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		_ = json.Unmarshal(raw, &s)
		return s
	case '{', '[':
		var buf bytes.Buffer
		if json.Compact(&buf, raw) == nil {
			return buf.String()
		}
		return string(raw)
	case 't':
		return "true"
	default:
		if f, err := strconv.ParseFloat(string(raw), 64); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return string(raw)
	}
}

// coerceNumber reads a JSON number or numeric string. Anything else, including non-finite
// values, is 0.
func coerceNumber(raw json.RawMessage) float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}
	text := string(raw)
	if raw[0] == '"' {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return 0
		}
		text = strings.TrimSpace(s)
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || string(raw) == "null"
}

func truthy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if isNull(raw) {
		return false
	}
	switch string(raw) {
	case "false", `""`:
		return false
	}
	if f, err := strconv.ParseFloat(string(raw), 64); err == nil && f == 0 {
		return false
	}
	return true
}
