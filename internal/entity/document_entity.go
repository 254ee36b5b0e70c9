package entity

import (
	"time"

	"collab-docs-be/pkg/ot"

	"github.com/google/uuid"
)

type Document struct {
	Id        uuid.UUID
	Title     string
	Content   string
	Version   int64
	OwnerId   uuid.UUID
	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time
	IsDeleted bool
}

type DocumentVersion struct {
	Id         uuid.UUID
	DocumentId uuid.UUID
	Version    int64
	Content    string
	CreatedAt  time.Time
}

type DocumentOperation struct {
	Id         uuid.UUID
	DocumentId uuid.UUID
	UserId     uuid.UUID
	Version    int64
	Operation  ot.Operation
	AppliedAt  time.Time
}
