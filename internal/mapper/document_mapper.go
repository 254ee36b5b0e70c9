package mapper

import (
	"encoding/json"
	"time"

	"collab-docs-be/internal/entity"
	"collab-docs-be/internal/model"
	"collab-docs-be/pkg/ot"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DocumentMapper struct{}

func NewDocumentMapper() *DocumentMapper {
	return &DocumentMapper{}
}

func (m *DocumentMapper) ToEntity(d *model.Document) *entity.Document {
	if d == nil {
		return nil
	}

	var deletedAt *time.Time
	if d.DeletedAt.Valid {
		t := d.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !d.UpdatedAt.IsZero() {
		t := d.UpdatedAt
		updatedAt = &t
	}

	return &entity.Document{
		Id:        d.Id,
		Title:     d.Title,
		Content:   d.Content,
		Version:   d.Version,
		OwnerId:   d.OwnerId,
		CreatedAt: d.CreatedAt,
		UpdatedAt: updatedAt,
		DeletedAt: deletedAt,
		IsDeleted: d.DeletedAt.Valid,
	}
}

func (m *DocumentMapper) ToModel(d *entity.Document) *model.Document {
	if d == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if d.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *d.DeletedAt, Valid: true}
	} else if d.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if d.UpdatedAt != nil {
		updatedAt = *d.UpdatedAt
	}

	return &model.Document{
		Id:        d.Id,
		Title:     d.Title,
		Content:   d.Content,
		Version:   d.Version,
		OwnerId:   d.OwnerId,
		CreatedAt: d.CreatedAt,
		UpdatedAt: updatedAt,
		DeletedAt: deletedAt,
	}
}

func (m *DocumentMapper) ToEntities(docs []*model.Document) []*entity.Document {
	entities := make([]*entity.Document, len(docs))
	for i, d := range docs {
		entities[i] = m.ToEntity(d)
	}
	return entities
}

func (m *DocumentMapper) VersionToEntity(v *model.DocumentVersion) *entity.DocumentVersion {
	if v == nil {
		return nil
	}
	return &entity.DocumentVersion{
		Id:         v.Id,
		DocumentId: v.DocumentId,
		Version:    v.Version,
		Content:    v.Content,
		CreatedAt:  v.CreatedAt,
	}
}

func (m *DocumentMapper) VersionToModel(v *entity.DocumentVersion) *model.DocumentVersion {
	if v == nil {
		return nil
	}
	return &model.DocumentVersion{
		Id:         v.Id,
		DocumentId: v.DocumentId,
		Version:    v.Version,
		Content:    v.Content,
		CreatedAt:  v.CreatedAt,
	}
}

func (m *DocumentMapper) VersionsToEntities(versions []*model.DocumentVersion) []*entity.DocumentVersion {
	entities := make([]*entity.DocumentVersion, len(versions))
	for i, v := range versions {
		entities[i] = m.VersionToEntity(v)
	}
	return entities
}

func (m *DocumentMapper) OperationToEntity(o *model.DocumentOperation) (*entity.DocumentOperation, error) {
	if o == nil {
		return nil, nil
	}

	var op ot.Operation
	if len(o.Payload) > 0 {
		if err := json.Unmarshal(o.Payload, &op); err != nil {
			return nil, err
		}
	}

	return &entity.DocumentOperation{
		Id:         o.Id,
		DocumentId: o.DocumentId,
		UserId:     o.UserId,
		Version:    o.Version,
		Operation:  op,
		AppliedAt:  o.AppliedAt,
	}, nil
}

func (m *DocumentMapper) OperationToModel(o *entity.DocumentOperation) (*model.DocumentOperation, error) {
	if o == nil {
		return nil, nil
	}

	payload, err := json.Marshal(o.Operation)
	if err != nil {
		return nil, err
	}

	return &model.DocumentOperation{
		Id:         o.Id,
		DocumentId: o.DocumentId,
		UserId:     o.UserId,
		Version:    o.Version,
		Payload:    datatypes.JSON(payload),
		AppliedAt:  o.AppliedAt,
	}, nil
}
