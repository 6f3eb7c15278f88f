package contract

import (
	"context"

	"rag-workspace-be/internal/entity"
	"rag-workspace-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ScoredChunk couples a chunk with its cosine similarity to a query vector.
type ScoredChunk struct {
	Chunk      *entity.Chunk
	Similarity float64
}

type ChunkRepository interface {
	CreateBulk(ctx context.Context, chunks []*entity.Chunk) error
	Upsert(ctx context.Context, chunk *entity.Chunk) error
	DeleteByDocumentId(ctx context.Context, documentId uuid.UUID) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Chunk, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// SearchSimilar runs a workspace-scoped nearest-neighbor query over ready
	// documents, filtered by a minimum similarity threshold.
	SearchSimilar(ctx context.Context, embedding []float32, limit int, workspaceId uuid.UUID, threshold float64) ([]*ScoredChunk, error)
}
