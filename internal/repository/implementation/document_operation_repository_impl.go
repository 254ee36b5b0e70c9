package implementation

import (
	"context"

	"collab-docs-be/internal/entity"
	"collab-docs-be/internal/mapper"
	"collab-docs-be/internal/model"
	"collab-docs-be/internal/repository/contract"
	"collab-docs-be/internal/repository/specification"

	"gorm.io/gorm"
)

type DocumentOperationRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DocumentMapper
}

func NewDocumentOperationRepository(db *gorm.DB) contract.DocumentOperationRepository {
	return &DocumentOperationRepositoryImpl{
		db:     db,
		mapper: mapper.NewDocumentMapper(),
	}
}

func (r *DocumentOperationRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *DocumentOperationRepositoryImpl) Create(ctx context.Context, op *entity.DocumentOperation) error {
	m, err := r.mapper.OperationToModel(op)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	op.Id = m.Id
	op.AppliedAt = m.AppliedAt
	return nil
}

func (r *DocumentOperationRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DocumentOperation, error) {
	var models []*model.DocumentOperation
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	entities := make([]*entity.DocumentOperation, 0, len(models))
	for _, m := range models {
		e, err := r.mapper.OperationToEntity(m)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, nil
}

func (r *DocumentOperationRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.DocumentOperation{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
