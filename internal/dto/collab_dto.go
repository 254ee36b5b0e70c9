package dto

import (
	"time"

	"collab-docs-be/pkg/ot"
)

type TransformRequest struct {
	Operation ot.Operation   `json:"operation" validate:"required"`
	Against   []ot.Operation `json:"against" validate:"required,min=1"`
}

type TransformResponse struct {
	Result ot.Operation `json:"result"`
}

type ComposeRequest struct {
	First  ot.Operation `json:"first" validate:"required"`
	Second ot.Operation `json:"second" validate:"required"`
}

type ComposeResponse struct {
	Result ot.Operation `json:"result"`
}

type InvertRequest struct {
	Operation ot.Operation `json:"operation" validate:"required"`
	Document  string       `json:"document"`
}

type InvertResponse struct {
	Result ot.Operation `json:"result"`
}

type ActiveUserResponse struct {
	UserId         string    `json:"user_id"`
	Color          string    `json:"color"`
	CursorPosition int       `json:"cursor_position"`
	SelectionStart int       `json:"selection_start"`
	SelectionEnd   int       `json:"selection_end"`
	UpdatedAt      time.Time `json:"updated_at"`
}
