package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateDocumentRequest struct {
	Title   string `json:"title" validate:"required,min=1,max=255"`
	Content string `json:"content"`
}

type UpdateDocumentRequest struct {
	Title   string  `json:"title" validate:"required,min=1,max=255"`
	Content *string `json:"content,omitempty"`
}

type DocumentResponse struct {
	Id        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Version   int64      `json:"version"`
	OwnerId   uuid.UUID  `json:"owner_id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type DocumentListItemResponse struct {
	Id        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	Version   int64      `json:"version"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type DocumentVersionResponse struct {
	Id        uuid.UUID `json:"id"`
	Version   int64     `json:"version"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type DocumentStatsResponse struct {
	DocumentId     uuid.UUID  `json:"document_id"`
	Version        int64      `json:"version"`
	ContentLength  int        `json:"content_length"`
	WordCount      int        `json:"word_count"`
	VersionCount   int64      `json:"version_count"`
	OperationCount int64      `json:"operation_count"`
	ActiveUsers    int        `json:"active_users"`
	LastActivity   *time.Time `json:"last_activity,omitempty"`
}
