package domain

import "time"

// Session is a point-in-time view of one live telemetry connection.
type Session struct {
	ID          string    `json:"id"`
	UserID      int64     `json:"userId,omitempty"` // 0 until the first resolved frame binds a subject
	RemoteAddr  string    `json:"remoteAddr,omitempty"`
	ConnectedAt time.Time `json:"connectedAt"`
	LastSeenAt  time.Time `json:"lastSeenAt"`
	Seq         uint64    `json:"seq"`
}
