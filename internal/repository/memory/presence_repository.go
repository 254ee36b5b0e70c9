package memory

import (
	"time"

	"collab-docs-be/pkg/store"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// PresenceRepository keeps live cursor state per (document, user). Entries
// expire on their own so a crashed connection cannot leave a ghost cursor
// behind forever.
type PresenceRepository struct {
	cache *cache.Cache
}

func NewPresenceRepository() *PresenceRepository {
	// Cursors go stale fast; expire after 10 minutes of silence, purge every
	// minute.
	c := cache.New(10*time.Minute, 1*time.Minute)
	return &PresenceRepository{cache: c}
}

func presenceKey(documentID, userID uuid.UUID) string {
	return documentID.String() + ":" + userID.String()
}

func (r *PresenceRepository) Save(state *store.CursorState) {
	state.UpdatedAt = time.Now()
	r.cache.Set(presenceKey(state.DocumentID, state.UserID), state, cache.DefaultExpiration)
}

func (r *PresenceRepository) Get(documentID, userID uuid.UUID) (*store.CursorState, bool) {
	if x, found := r.cache.Get(presenceKey(documentID, userID)); found {
		return x.(*store.CursorState), true
	}
	return nil, false
}

// List returns all live cursors for a document.
func (r *PresenceRepository) List(documentID uuid.UUID) []*store.CursorState {
	prefix := documentID.String() + ":"
	var states []*store.CursorState
	for key, item := range r.cache.Items() {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			states = append(states, item.Object.(*store.CursorState))
		}
	}
	return states
}

func (r *PresenceRepository) Delete(documentID, userID uuid.UUID) {
	r.cache.Delete(presenceKey(documentID, userID))
}
