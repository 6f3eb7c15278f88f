package contract

import (
	"context"

	"rag-workspace-be/internal/entity"
	"rag-workspace-be/internal/repository/specification"

	"github.com/google/uuid"
)

type DocumentRepository interface {
	Create(ctx context.Context, document *entity.Document) error
	Update(ctx context.Context, document *entity.Document) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status, errorMessage string) error
	SetChunkCount(ctx context.Context, id uuid.UUID, count int) error
	// Delete removes the row permanently so the content-hash slot frees up
	// for a future upload of the same bytes.
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
