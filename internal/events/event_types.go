package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSessionConnected    EventType = "session_connected"
	EventSessionDisconnected EventType = "session_disconnected"
	EventCustomerWatched     EventType = "customer_watched"
	EventTokenRevoked        EventType = "token_revoked"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Role   string `json:"role,omitempty"`
	UserID *int64 `json:"user_id,omitempty"`
}

// Event is a session or credential lifecycle notification.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SessionID string      `json:"session_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, sessionID string, actor Actor, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		SessionID: sessionID,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// CustomerWatchedPayload payload.
type CustomerWatchedPayload struct {
	CustomerID int64 `json:"customer_id"`
}

// TokenRevokedPayload payload.
type TokenRevokedPayload struct {
	Scheme    string    `json:"scheme"`
	ExpiresAt time.Time `json:"expires_at"`
}
