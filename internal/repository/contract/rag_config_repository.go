package contract

import (
	"context"

	"rag-workspace-be/internal/entity"
	"rag-workspace-be/internal/repository/specification"
)

// RagConfigRepository has no Update method. Configs are create-once.
type RagConfigRepository interface {
	Create(ctx context.Context, config *entity.RagConfig) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.RagConfig, error)
}
