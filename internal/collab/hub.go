package collab

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"collab-docs-be/internal/pkg/logger"
	"collab-docs-be/pkg/events"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// redisChannel carries broadcast frames between hub instances so that
// sessions of the same document connected to different processes still see
// each other.
const redisChannel = "collab_events"

const (
	defaultOpLogLimit     = 1000
	defaultSyncIntervalMs = 2000
)

// Options carries the tunables threaded in from configuration.
type Options struct {
	// OpLogLimit bounds each room's in-memory rebase window. Operations
	// older than this are only reachable through a full sync_response.
	OpLogLimit int

	// SyncIntervalMs is the reconciliation cadence advertised to clients in
	// the welcome frame.
	SyncIntervalMs int
}

// Hub owns the per-document rooms. Each room is its own single-writer actor;
// the hub only routes sessions and mirrors broadcasts across instances.
type Hub struct {
	mu    sync.RWMutex
	rooms map[uuid.UUID]*Room

	// instanceID lets the Redis subscriber skip frames this process
	// published itself.
	instanceID string

	rdb       *redis.Client
	storage   DocumentLoader
	publisher PersistPublisher
	presence  PresenceStore
	events    EventPublisher
	logger    logger.ILogger

	opLogLimit     int
	syncIntervalMs int
}

func NewHub(rdb *redis.Client, storage DocumentLoader, publisher PersistPublisher, presence PresenceStore, eventBus EventPublisher, log logger.ILogger, opts Options) *Hub {
	if opts.OpLogLimit <= 0 {
		opts.OpLogLimit = defaultOpLogLimit
	}
	if opts.SyncIntervalMs <= 0 {
		opts.SyncIntervalMs = defaultSyncIntervalMs
	}
	return &Hub{
		rooms:          make(map[uuid.UUID]*Room),
		instanceID:     uuid.NewString(),
		rdb:            rdb,
		storage:        storage,
		publisher:      publisher,
		presence:       presence,
		events:         eventBus,
		logger:         log,
		opLogLimit:     opts.OpLogLimit,
		syncIntervalMs: opts.SyncIntervalMs,
	}
}

// Run starts the cross-instance subscriber. Room goroutines are started
// lazily as documents are joined.
func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribeToRedis()
	}
}

// Join routes a session into its document's room, creating the room when
// needed. A room retiring concurrently makes enqueueJoin fail; the retry then
// lands in a fresh room.
func (h *Hub) Join(s *Session) {
	for {
		room := h.getOrCreate(s.DocumentID)
		s.room = room
		if room.enqueueJoin(s) {
			return
		}
	}
}

func (h *Hub) getOrCreate(documentID uuid.UUID) *Room {
	h.mu.Lock()
	defer h.mu.Unlock()
	if room, ok := h.rooms[documentID]; ok {
		return room
	}
	room := newRoom(documentID, h, h.logger)
	h.rooms[documentID] = room
	go room.run()
	h.logger.Info("Collab", "Room opened", map[string]interface{}{"document_id": documentID})
	return room
}

// retire removes an empty room. Called by the room actor itself as its final
// act; closing done flips every pending enqueue into the retry path.
func (h *Hub) retire(r *Room) {
	h.mu.Lock()
	if current, ok := h.rooms[r.documentID]; ok && current == r {
		delete(h.rooms, r.documentID)
	}
	h.mu.Unlock()
	close(r.done)
	h.logger.Info("Collab", "Room retired", map[string]interface{}{"document_id": r.documentID})
}

// RoomCount reports how many documents currently have live sessions.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

type relayPayload struct {
	InstanceID  string          `json:"instance_id"`
	DocumentID  uuid.UUID       `json:"document_id"`
	ExcludeUser uuid.UUID       `json:"exclude_user"`
	Message     json.RawMessage `json:"message"`
}

// relayBroadcast mirrors a frame to the other hub instances via Redis.
func (h *Hub) relayBroadcast(documentID, excludeUser uuid.UUID, message []byte) {
	if h.rdb == nil {
		return
	}
	payload, err := json.Marshal(relayPayload{
		InstanceID:  h.instanceID,
		DocumentID:  documentID,
		ExcludeUser: excludeUser,
		Message:     message,
	})
	if err != nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.rdb.Publish(ctx, redisChannel, payload).Err(); err != nil {
			h.logger.Warn("Collab", "Redis relay publish failed", map[string]interface{}{
				"document_id": documentID, "error": err.Error(),
			})
		}
	}()
}

func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, redisChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var payload relayPayload
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			h.logger.Warn("Collab", "Malformed relay payload", map[string]interface{}{"error": err.Error()})
			continue
		}
		if payload.InstanceID == h.instanceID {
			continue
		}

		h.mu.RLock()
		room, ok := h.rooms[payload.DocumentID]
		h.mu.RUnlock()
		if !ok {
			continue
		}
		// Delivery goes through the actor so relayed frames honor the same
		// per-document ordering as local ones.
		room.enqueueRemote(relayFrame{ExcludeUser: payload.ExcludeUser, Message: payload.Message})
	}
}

// publishEvent emits a domain event without blocking a room actor. A missing
// event bus is fine; collaboration keeps working without it.
func (h *Hub) publishEvent(eventType string, data map[string]interface{}) {
	if h.events == nil {
		return
	}
	evt := events.BaseEvent{Type: eventType, Data: data, OccurredAt: time.Now()}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.events.Publish(ctx, evt); err != nil {
			h.logger.Warn("Collab", "Event publish failed", map[string]interface{}{
				"type": eventType, "error": err.Error(),
			})
		}
	}()
}
