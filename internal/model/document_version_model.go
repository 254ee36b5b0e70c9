package model

import (
	"time"

	"github.com/google/uuid"
)

// DocumentVersion is a point-in-time snapshot taken by the persist worker.
type DocumentVersion struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DocumentId uuid.UUID `gorm:"type:uuid;not null;index:idx_document_versions_doc_version"`
	Version    int64     `gorm:"not null;index:idx_document_versions_doc_version"`
	Content    string    `gorm:"type:text"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (DocumentVersion) TableName() string {
	return "document_versions"
}
