package collab

import (
	"context"
	"encoding/json"
	"time"

	"collab-docs-be/internal/pkg/logger"
	"collab-docs-be/pkg/events"
	"collab-docs-be/pkg/ot"
	"collab-docs-be/pkg/store"

	"github.com/google/uuid"
)

const loadTimeout = 5 * time.Second

type inbound struct {
	session *Session
	env     Envelope
}

type relayFrame struct {
	ExcludeUser uuid.UUID
	Message     []byte
}

// Room is the authoritative per-document actor. A single goroutine consumes
// all channels, so document state, the operation log, and the session set are
// mutated by exactly one writer; broadcast order is its receipt order. This
// serialization is what makes the transform algebra sound, do not add a
// second consumer.
type Room struct {
	documentID uuid.UUID
	hub        *Hub

	sessions   map[uuid.UUID]*Session
	content    string
	version    int
	opLog      []ot.Operation
	loaded     bool
	everJoined bool

	join    chan *Session
	leave   chan *Session
	inbound chan inbound
	remote  chan relayFrame
	done    chan struct{}

	logger logger.ILogger
}

func newRoom(documentID uuid.UUID, hub *Hub, log logger.ILogger) *Room {
	return &Room{
		documentID: documentID,
		hub:        hub,
		sessions:   make(map[uuid.UUID]*Session),
		join:       make(chan *Session),
		leave:      make(chan *Session),
		inbound:    make(chan inbound, 64),
		remote:     make(chan relayFrame, 64),
		done:       make(chan struct{}),
		logger:     log,
	}
}

func (r *Room) DocumentID() uuid.UUID { return r.documentID }

// enqueueJoin hands a session to the actor. Reports false when the room has
// already been retired; the hub then creates a fresh room and retries.
func (r *Room) enqueueJoin(s *Session) bool {
	select {
	case r.join <- s:
		return true
	case <-r.done:
		return false
	}
}

func (r *Room) enqueueLeave(s *Session) {
	select {
	case r.leave <- s:
	case <-r.done:
		s.close()
	}
}

func (r *Room) enqueueInbound(s *Session, env Envelope) bool {
	select {
	case r.inbound <- inbound{session: s, env: env}:
		return true
	case <-r.done:
		return false
	}
}

func (r *Room) enqueueRemote(f relayFrame) {
	select {
	case r.remote <- f:
	case <-r.done:
	}
}

func (r *Room) run() {
	for {
		select {
		case s := <-r.join:
			r.handleJoin(s)
		case s := <-r.leave:
			r.handleLeave(s)
		case in := <-r.inbound:
			r.handleMessage(in.session, in.env)
		case f := <-r.remote:
			r.broadcastLocal(f.Message, f.ExcludeUser)
		case <-r.done:
			return
		}

		if r.everJoined && len(r.sessions) == 0 {
			r.hub.retire(r)
			return
		}
	}
}

func (r *Room) handleJoin(s *Session) {
	if !r.loaded {
		r.load()
	}

	// One connection per (documentId, userId); a reconnect replaces the stale
	// session without a user_left round trip.
	if old, ok := r.sessions[s.UserID]; ok {
		delete(r.sessions, old.UserID)
		old.close()
	}
	r.sessions[s.UserID] = s
	r.everJoined = true

	welcome := Welcome{
		DocumentID:     r.documentID,
		UserID:         s.UserID,
		Color:          s.Color,
		Content:        r.content,
		Version:        r.version,
		ActiveUsers:    r.activeSessions(),
		SyncIntervalMs: r.hub.syncIntervalMs,
	}
	if msg, err := Encode(MsgConnected, welcome); err == nil {
		s.trySend(msg)
	}

	joined := PresenceEvent{UserID: s.UserID, Color: s.Color, ActiveUsers: r.activeSessions()}
	if msg, err := Encode(MsgUserJoined, joined); err == nil {
		r.broadcastLocal(msg, s.UserID)
		r.hub.relayBroadcast(r.documentID, s.UserID, msg)
	}

	r.hub.presence.Save(&store.CursorState{
		DocumentID: r.documentID,
		UserID:     s.UserID,
		Color:      s.Color,
	})
	r.hub.publishEvent(events.TypeSessionJoined, map[string]interface{}{
		"document_id": r.documentID.String(),
		"user_id":     s.UserID.String(),
	})

	r.logger.Info("Collab", "Session joined", map[string]interface{}{
		"document_id": r.documentID, "user_id": s.UserID, "version": r.version,
	})
}

func (r *Room) load() {
	r.loaded = true
	if r.hub.storage == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()

	content, version, err := r.hub.storage.LoadDocument(ctx, r.documentID)
	if err != nil {
		// Start empty at version 0 rather than refusing the session; the
		// persistence worker reconciles once storage is back.
		r.logger.Warn("Collab", "Failed to load document, starting empty", map[string]interface{}{
			"document_id": r.documentID, "error": err.Error(),
		})
		return
	}
	r.content = content
	r.version = version
}

func (r *Room) handleLeave(s *Session) {
	current, ok := r.sessions[s.UserID]
	if !ok || current != s {
		// Already replaced by a reconnect or evicted.
		s.close()
		return
	}

	delete(r.sessions, s.UserID)
	s.close()
	r.hub.presence.Delete(r.documentID, s.UserID)

	left := PresenceEvent{UserID: s.UserID, ActiveUsers: r.activeSessions()}
	if msg, err := Encode(MsgUserLeft, left); err == nil {
		r.broadcastLocal(msg, s.UserID)
		r.hub.relayBroadcast(r.documentID, s.UserID, msg)
	}

	r.hub.publishEvent(events.TypeSessionLeft, map[string]interface{}{
		"document_id": r.documentID.String(),
		"user_id":     s.UserID.String(),
	})

	r.logger.Info("Collab", "Session left", map[string]interface{}{
		"document_id": r.documentID, "user_id": s.UserID,
	})
}

func (r *Room) handleMessage(s *Session, env Envelope) {
	switch env.Type {
	case MsgOperation:
		r.handleOperation(s, env)
	case MsgSyncRequest:
		r.handleSyncRequest(s)
	case MsgCursor:
		r.handleCursor(s, env)
	default:
		s.sendError("unknown message type: " + env.Type)
	}
}

// handleOperation is the write path: rebase the incoming operation against
// everything broadcast since the client's base version, apply it, assign the
// next authoritative version, and fan out to every other session in receipt
// order.
func (r *Room) handleOperation(s *Session, env Envelope) {
	var op ot.Operation
	if err := env.Decode(&op); err != nil {
		s.sendError("malformed operation: " + err.Error())
		return
	}
	if err := op.Validate(); err != nil {
		s.sendError("invalid operation: " + err.Error())
		return
	}

	baseVersion := op.Version
	sender := s.UserID.String()
	for _, logged := range r.opLog {
		if logged.Version > baseVersion && logged.AuthorID != sender {
			op = ot.Transform(op, logged)
		}
	}

	op.AuthorID = sender
	newContent, err := op.Apply(r.content)
	if err != nil {
		// The client is too far out of sync to rebase; a sync_response lets
		// it recover instead of waiting for the next reconciliation tick.
		s.sendError("operation rejected: " + err.Error())
		r.handleSyncRequest(s)
		return
	}

	r.content = newContent
	r.version++
	op.Version = r.version
	op.Timestamp = time.Now()

	r.opLog = append(r.opLog, op)
	if limit := r.hub.opLogLimit; len(r.opLog) > limit {
		r.opLog = r.opLog[len(r.opLog)-limit:]
	}

	if msg, err := encodeOperation(op); err == nil {
		r.broadcastLocal(msg, s.UserID)
		r.hub.relayBroadcast(r.documentID, s.UserID, msg)
	}

	r.publishPersist(op)
}

func (r *Room) handleSyncRequest(s *Session) {
	msg, err := Encode(MsgSyncResponse, SyncResponse{Content: r.content, Version: r.version})
	if err != nil {
		return
	}
	if !s.trySend(msg) {
		r.evict(s)
	}
}

func (r *Room) handleCursor(s *Session, env Envelope) {
	var cur CursorUpdate
	if err := env.Decode(&cur); err != nil {
		s.sendError("malformed cursor update: " + err.Error())
		return
	}

	s.CursorPosition = cur.Position
	s.SelectionStart = cur.SelectionStart
	s.SelectionEnd = cur.SelectionEnd

	cur.UserID = s.UserID
	cur.Color = s.Color

	r.hub.presence.Save(&store.CursorState{
		DocumentID:     r.documentID,
		UserID:         s.UserID,
		Position:       cur.Position,
		SelectionStart: cur.SelectionStart,
		SelectionEnd:   cur.SelectionEnd,
		Color:          s.Color,
	})

	if msg, err := Encode(MsgCursor, cur); err == nil {
		r.broadcastLocal(msg, s.UserID)
		r.hub.relayBroadcast(r.documentID, s.UserID, msg)
	}
}

// broadcastLocal fans a frame out to every local session except excludeUser.
// Sessions that cannot keep up are evicted rather than allowed to stall the
// actor.
func (r *Room) broadcastLocal(message []byte, excludeUser uuid.UUID) {
	var slow []*Session
	for userID, sess := range r.sessions {
		if userID == excludeUser {
			continue
		}
		if !sess.trySend(message) {
			slow = append(slow, sess)
		}
	}
	for _, sess := range slow {
		r.logger.Warn("Collab", "Session send buffer full, dropping session", map[string]interface{}{
			"document_id": r.documentID, "user_id": sess.UserID,
		})
		r.evict(sess)
	}
}

func (r *Room) evict(s *Session) {
	if current, ok := r.sessions[s.UserID]; !ok || current != s {
		s.close()
		return
	}
	delete(r.sessions, s.UserID)
	s.close()
	r.hub.presence.Delete(r.documentID, s.UserID)

	left := PresenceEvent{UserID: s.UserID, ActiveUsers: r.activeSessions()}
	if msg, err := Encode(MsgUserLeft, left); err == nil {
		for _, sess := range r.sessions {
			sess.trySend(msg)
		}
		r.hub.relayBroadcast(r.documentID, s.UserID, msg)
	}
}

func (r *Room) publishPersist(op ot.Operation) {
	if r.hub.publisher == nil {
		return
	}
	payload, err := json.Marshal(PersistDocumentMessage{
		DocumentID: r.documentID,
		Content:    r.content,
		Version:    r.version,
		Operation:  op,
	})
	if err != nil {
		return
	}
	if err := r.hub.publisher.Publish(context.Background(), payload); err != nil {
		r.logger.Error("Collab", "Failed to publish persist message", map[string]interface{}{
			"document_id": r.documentID, "error": err.Error(),
		})
	}
}

func (r *Room) activeSessions() []SessionInfo {
	infos := make([]SessionInfo, 0, len(r.sessions))
	for _, sess := range r.sessions {
		infos = append(infos, sess.info())
	}
	return infos
}

// PersistDocumentMessage is the payload the room publishes after each
// accepted operation; the persistence worker consumes it off the in-process
// bus.
type PersistDocumentMessage struct {
	DocumentID uuid.UUID    `json:"document_id"`
	Content    string       `json:"content"`
	Version    int          `json:"version"`
	Operation  ot.Operation `json:"operation"`
}
