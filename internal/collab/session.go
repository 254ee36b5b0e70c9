package collab

import (
	"encoding/json"
	"sync"
	"time"

	"collab-docs-be/internal/pkg/logger"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Session is one live (documentId, userId) connection. Cursor fields are
// owned by the room actor; nothing outside the actor reads or writes them.
type Session struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	UserID     uuid.UUID
	Color      string
	JoinedAt   time.Time

	CursorPosition int
	SelectionStart int
	SelectionEnd   int

	Conn *websocket.Conn
	Send chan []byte

	room      *Room
	logger    logger.ILogger
	done      chan struct{}
	closeOnce sync.Once
}

func NewSession(documentID, userID uuid.UUID, conn *websocket.Conn, log logger.ILogger) *Session {
	return &Session{
		ID:         uuid.New(),
		DocumentID: documentID,
		UserID:     userID,
		Color:      ColorForUser(userID),
		JoinedAt:   time.Now(),
		Conn:       conn,
		Send:       make(chan []byte, 256),
		done:       make(chan struct{}),
		logger:     log,
	}
}

// close tears the connection down exactly once. The Send channel is never
// closed; both pumps exit through done or the closed socket, which keeps a
// concurrent trySend from racing a channel close.
func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.Conn != nil {
			s.Conn.Close()
		}
	})
}

func (s *Session) info() SessionInfo {
	return SessionInfo{UserID: s.UserID, Color: s.Color, JoinedAt: s.JoinedAt}
}

// readPump pumps frames from the websocket into the room actor. Runs in the
// connection handler goroutine; exiting drops the session immediately, no
// grace period.
func (s *Session) readPump() {
	defer func() {
		s.room.enqueueLeave(s)
		s.Conn.Close()
	}()

	s.Conn.SetReadLimit(maxMessageSize)
	s.Conn.SetReadDeadline(time.Now().Add(pongWait))
	s.Conn.SetPongHandler(func(string) error {
		s.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := s.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("Collab", "Unexpected websocket close", map[string]interface{}{
					"user_id": s.UserID, "document_id": s.DocumentID, "error": err.Error(),
				})
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			// Malformed frame: tell this connection only, keep it open.
			s.sendError("malformed message: " + err.Error())
			continue
		}

		// Keepalive does not touch document state; answer without entering
		// the actor.
		if env.Type == MsgPing {
			if msg, err := Encode(MsgPong, nil); err == nil {
				s.trySend(msg)
			}
			continue
		}

		if !s.room.enqueueInbound(s, env) {
			return
		}
	}
}

// writePump pumps messages from the Send channel to the websocket. One per
// session, started alongside readPump.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Conn.Close()
	}()

	for {
		select {
		case <-s.done:
			s.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-s.Send:
			s.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			w, err := s.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			s.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// trySend queues a message without blocking. Reports false when the session's
// buffer is full, in which case the caller decides whether to drop the
// session.
func (s *Session) trySend(message []byte) bool {
	select {
	case s.Send <- message:
		return true
	default:
		return false
	}
}

func (s *Session) sendError(message string) {
	msg, err := Encode(MsgError, ErrorMessage{Message: message})
	if err != nil {
		return
	}
	s.trySend(msg)
}
