package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OwnedByUser struct {
	UserID uuid.UUID
}

func (s OwnedByUser) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("owner_id = ?", s.UserID)
}

type ByDocumentID struct {
	DocumentID uuid.UUID
}

func (s ByDocumentID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("document_id = ?", s.DocumentID)
}

// DocumentSearchQuery filters documents by title or content (case-insensitive)
type DocumentSearchQuery struct {
	Query string
}

func (s DocumentSearchQuery) Apply(db *gorm.DB) *gorm.DB {
	pattern := "%" + s.Query + "%"
	return db.Where("title ILIKE ? OR content ILIKE ?", pattern, pattern)
}

// VersionGreaterThan selects rows past a version watermark, used when
// fetching the operation history since a client's last known version.
type VersionGreaterThan struct {
	Version int64
}

func (s VersionGreaterThan) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("version > ?", s.Version)
}

type VersionEquals struct {
	Version int64
}

func (s VersionEquals) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("version = ?", s.Version)
}
