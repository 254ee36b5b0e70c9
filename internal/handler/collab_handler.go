package handler

import (
	"os"

	"collab-docs-be/internal/collab"
	"collab-docs-be/internal/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type CollabHandler struct {
	hub    *collab.Hub
	logger logger.ILogger
}

func NewCollabHandler(hub *collab.Hub, log logger.ILogger) *CollabHandler {
	return &CollabHandler{
		hub:    hub,
		logger: log,
	}
}

func (h *CollabHandler) RegisterRoutes(r fiber.Router) {
	r.Get("/collab/v1/documents/:id/ws", h.ServeWs)
}

// ServeWs authenticates the handshake and upgrades the connection into a
// document editing session.
func (h *CollabHandler) ServeWs(c *fiber.Ctx) error {
	// Browsers cannot set headers on websocket requests, so the query
	// parameter takes priority.
	tokenStr := c.Query("token")
	if tokenStr == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}
	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing token (Query 'token' or Header 'Authorization')"})
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.ErrUnauthorized
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil || !token.Valid {
		h.logger.Warn("CollabHandler", "Invalid token in WS handshake", map[string]interface{}{"error": err})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token claims"})
	}

	userIDStr, ok := claims["user_id"].(string)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Token missing user_id"})
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid user ID format in token"})
	}

	documentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid document ID"})
	}

	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("CollabHandler", "Starting editing session", map[string]interface{}{
				"user_id": userID, "document_id": documentID,
			})
			collab.ServeWs(h.hub, conn, documentID, userID)
			h.logger.Info("CollabHandler", "Editing session ended", map[string]interface{}{
				"user_id": userID, "document_id": documentID,
			})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}
