package collab

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs registers a connection with the hub and blocks until the socket
// closes. Call from the upgraded websocket handler goroutine.
func ServeWs(h *Hub, conn *websocket.Conn, documentID, userID uuid.UUID) {
	s := NewSession(documentID, userID, conn, h.logger)
	h.Join(s)
	go s.writePump()
	s.readPump()
}
