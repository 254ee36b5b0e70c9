package implementation

import (
	"context"
	"errors"

	"collab-docs-be/internal/entity"
	"collab-docs-be/internal/mapper"
	"collab-docs-be/internal/model"
	"collab-docs-be/internal/repository/contract"
	"collab-docs-be/internal/repository/specification"

	"gorm.io/gorm"
)

type DocumentVersionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DocumentMapper
}

func NewDocumentVersionRepository(db *gorm.DB) contract.DocumentVersionRepository {
	return &DocumentVersionRepositoryImpl{
		db:     db,
		mapper: mapper.NewDocumentMapper(),
	}
}

func (r *DocumentVersionRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *DocumentVersionRepositoryImpl) Create(ctx context.Context, version *entity.DocumentVersion) error {
	m := r.mapper.VersionToModel(version)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*version = *r.mapper.VersionToEntity(m)
	return nil
}

func (r *DocumentVersionRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DocumentVersion, error) {
	var m model.DocumentVersion
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.VersionToEntity(&m), nil
}

func (r *DocumentVersionRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DocumentVersion, error) {
	var models []*model.DocumentVersion
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.VersionsToEntities(models), nil
}

func (r *DocumentVersionRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.DocumentVersion{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
