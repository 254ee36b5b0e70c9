package contract

import (
	"context"

	"collab-docs-be/internal/entity"
	"collab-docs-be/internal/repository/specification"
)

type DocumentOperationRepository interface {
	Create(ctx context.Context, op *entity.DocumentOperation) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DocumentOperation, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
