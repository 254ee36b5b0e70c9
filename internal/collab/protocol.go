package collab

import (
	"encoding/json"
	"time"

	"collab-docs-be/pkg/ot"

	"github.com/google/uuid"
)

// Message types carried in the websocket envelope. One JSON envelope per
// frame, bidirectional.
const (
	MsgOperation    = "operation"
	MsgSyncRequest  = "sync_request"
	MsgSyncResponse = "sync_response"
	MsgCursor       = "cursor"
	MsgUserJoined   = "user_joined"
	MsgUserLeft     = "user_left"
	MsgConnected    = "connected"
	MsgPing         = "ping"
	MsgPong         = "pong"
	MsgError        = "error"
)

// Envelope is the wire frame: {"type": ..., "data": ...}.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Decode unmarshals the envelope payload into v.
func (e *Envelope) Decode(v any) error {
	if len(e.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}

// Encode builds a marshaled envelope around data.
func Encode(msgType string, data any) ([]byte, error) {
	env := Envelope{Type: msgType}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		env.Data = raw
	}
	return json.Marshal(env)
}

// SyncResponse carries the authoritative full document state. Clients adopt
// it only when Version is ahead of their own.
type SyncResponse struct {
	Content string `json:"content"`
	Version int    `json:"version"`
}

// CursorUpdate relays a caret/selection change to the other sessions of a
// document. Positions refer to the sender's view of the current content and
// are recomputed by receivers when stale.
type CursorUpdate struct {
	UserID         uuid.UUID `json:"user_id"`
	Position       int       `json:"position"`
	SelectionStart int       `json:"selection_start"`
	SelectionEnd   int       `json:"selection_end"`
	Color          string    `json:"color,omitempty"`
}

// SessionInfo describes one connected participant.
type SessionInfo struct {
	UserID   uuid.UUID `json:"user_id"`
	Color    string    `json:"color"`
	JoinedAt time.Time `json:"joined_at"`
}

// PresenceEvent is the payload of user_joined / user_left broadcasts. The
// full participant list rides along so clients never need a separate poll to
// rebuild their roster.
type PresenceEvent struct {
	UserID      uuid.UUID     `json:"user_id"`
	Color       string        `json:"color,omitempty"`
	ActiveUsers []SessionInfo `json:"active_users"`
}

// Welcome is sent to a session right after it joins, carrying the full
// authoritative state so the client can seed its buffer before editing.
type Welcome struct {
	DocumentID  uuid.UUID     `json:"document_id"`
	UserID      uuid.UUID     `json:"user_id"`
	Color       string        `json:"color"`
	Content     string        `json:"content"`
	Version     int           `json:"version"`
	ActiveUsers []SessionInfo `json:"active_users"`

	// SyncIntervalMs advertises the server's reconciliation cadence so
	// clients tick at the configured rate rather than a compiled-in one.
	SyncIntervalMs int `json:"sync_interval_ms,omitempty"`
}

// ErrorMessage is returned to the offending connection only; the connection
// stays open.
type ErrorMessage struct {
	Message string `json:"message"`
}

// encodeOperation tags an accepted operation with its authoritative version
// before fan-out.
func encodeOperation(op ot.Operation) ([]byte, error) {
	return Encode(MsgOperation, op)
}
