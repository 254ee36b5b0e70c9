package store

import (
	"time"

	"github.com/google/uuid"
)

// CursorState is the in-memory presence record for one user on one document.
// Replaced wholesale on every cursor update, never merged.
type CursorState struct {
	DocumentID     uuid.UUID `json:"document_id"`
	UserID         uuid.UUID `json:"user_id"`
	Position       int       `json:"position"`
	SelectionStart int       `json:"selection_start"`
	SelectionEnd   int       `json:"selection_end"`
	Color          string    `json:"color"`
	UpdatedAt      time.Time `json:"updated_at"`
}
