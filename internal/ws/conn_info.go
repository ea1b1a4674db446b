package ws

import "time"

// ConnInfo carries per-connection metadata for observability events.
type ConnInfo struct {
	ConnID      string
	UserID      int
	UserName    string
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
