package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// DocumentOperation is one applied edit in a document's history. Payload holds
// the full operation as JSON so future operation kinds survive round-trips.
type DocumentOperation struct {
	Id         uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DocumentId uuid.UUID      `gorm:"type:uuid;not null;index:idx_document_operations_doc_version"`
	UserId     uuid.UUID      `gorm:"type:uuid;not null;index"`
	Version    int64          `gorm:"not null;index:idx_document_operations_doc_version"`
	Payload    datatypes.JSON `gorm:"type:jsonb;not null"`
	AppliedAt  time.Time      `gorm:"autoCreateTime"`
}

func (DocumentOperation) TableName() string {
	return "document_operations"
}
