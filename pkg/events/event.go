package events

import "time"

// Event types emitted by the collaboration engine.
const (
	TypeUserRegistered    = "USER_REGISTERED"
	TypeDocumentCreated   = "DOCUMENT_CREATED"
	TypeDocumentDeleted   = "DOCUMENT_DELETED"
	TypeSessionJoined     = "COLLAB_SESSION_JOINED"
	TypeSessionLeft       = "COLLAB_SESSION_LEFT"
	TypeDocumentPersisted = "COLLAB_DOCUMENT_PERSISTED"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "COLLAB_SESSION_JOINED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is a plain implementation of Event for ad-hoc emissions.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}
