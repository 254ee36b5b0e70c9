package collab

import (
	"context"

	"collab-docs-be/pkg/events"
	"collab-docs-be/pkg/store"

	"github.com/google/uuid"
)

// DocumentLoader is the storage port the hub consumes. Rooms load the
// authoritative content once, on first join; writes go back through the async
// persistence pipeline instead.
type DocumentLoader interface {
	LoadDocument(ctx context.Context, documentID uuid.UUID) (content string, version int, err error)
}

// PersistPublisher pushes accepted-operation payloads onto the in-process bus
// for the persistence worker.
type PersistPublisher interface {
	Publish(ctx context.Context, payload []byte) error
}

// PresenceStore tracks live cursors per document.
type PresenceStore interface {
	Save(state *store.CursorState)
	List(documentID uuid.UUID) []*store.CursorState
	Delete(documentID, userID uuid.UUID)
}

// EventPublisher emits domain events (session joined/left) to the bus.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}
