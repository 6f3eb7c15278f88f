package vectorstore

import (
	"context"

	"github.com/google/uuid"

	"rag-workspace-be/internal/entity"
)

// Match is one scored hit from a similarity search.
type Match struct {
	ChunkId    uuid.UUID
	DocumentId uuid.UUID
	Text       string
	Score      float64
}

// Store is the vector index contract. Implementations index chunk embeddings
// per workspace and answer scored nearest-neighbour queries.
type Store interface {
	// EnsureWorkspace prepares backing storage for a workspace's vectors.
	EnsureWorkspace(ctx context.Context, workspaceId uuid.UUID, dimensions int) error

	// Upsert indexes chunk embeddings. Chunks must carry their embedding.
	Upsert(ctx context.Context, workspaceId uuid.UUID, chunks []*entity.Chunk) error

	// Search returns matches at or above the score threshold, best first.
	Search(ctx context.Context, workspaceId uuid.UUID, vector []float32, limit int, threshold float64) ([]Match, error)

	// DeleteByDocument removes every vector belonging to one document.
	DeleteByDocument(ctx context.Context, workspaceId, documentId uuid.UUID) error

	// DeleteWorkspace removes all vectors of a workspace.
	DeleteWorkspace(ctx context.Context, workspaceId uuid.UUID) error
}
