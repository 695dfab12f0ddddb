package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

// EventType represents the type of WebSocket event
type EventType string

const (
	// EventTypeRedaction summarizes what one sanitize job withheld
	EventTypeRedaction EventType = "redaction"
	// EventTypeJob represents a finished HTTP job
	EventTypeJob EventType = "job"
	// EventTypeSystemStatus represents a system status event
	EventTypeSystemStatus EventType = "system_status"
	// EventTypeConnection represents connection events
	EventTypeConnection EventType = "connection"
	// EventTypePong answers a client ping
	EventTypePong EventType = "pong"
)

// Event represents a WebSocket event sent to clients
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	RequestID string    `json:"request_id,omitempty"`
}

// FieldCount is the number of detections of one field. Values never
// travel over the socket.
type FieldCount struct {
	Field string `json:"field"`
	Count int    `json:"count"`
}

// RedactionEvent represents the outcome of one sanitize job
type RedactionEvent struct {
	JobID          string       `json:"job_id"`
	Source         string       `json:"source"`
	Status         string       `json:"status"` // ok, blocked or failed
	RedactedFields []FieldCount `json:"redacted_fields"`
	KeptFields     []string     `json:"kept_fields"`
	ProcessingMS   float64      `json:"processing_ms"`
}

// JobEvent represents a finished HTTP request
type JobEvent struct {
	Method     string        `json:"method"`
	Path       string        `json:"path"`
	StatusCode int           `json:"status_code"`
	ClientIP   string        `json:"client_ip"`
	Duration   time.Duration `json:"duration"`
	BytesOut   int64         `json:"bytes_out"`
}

// SystemStatusEvent represents system status information
type SystemStatusEvent struct {
	Status           string `json:"status"`
	Uptime           string `json:"uptime"`
	TotalJobs        int64  `json:"total_jobs"`
	BlockedJobs      int64  `json:"blocked_jobs"`
	ConnectedClients int64  `json:"connected_clients"`
}

// ConnectionEvent represents WebSocket connection events
type ConnectionEvent struct {
	Action   string `json:"action"` // "connected", "disconnected"
	ClientID string `json:"client_id"`
	ClientIP string `json:"client_ip"`
}

// ClientMessage represents messages sent from clients to server
type ClientMessage struct {
	Type   string      `json:"type"`
	Events []EventType `json:"events,omitempty"`
}

// Client represents a WebSocket client connection
type Client struct {
	ID          string
	Conn        *websocket.Conn
	Send        chan Event
	ConnectedAt time.Time
	IP          string

	// nil means every event; written only by the hub goroutine
	subscribed map[EventType]bool
}
