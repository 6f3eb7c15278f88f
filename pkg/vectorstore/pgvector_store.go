package vectorstore

import (
	"context"

	"github.com/google/uuid"

	"rag-workspace-be/internal/entity"
	"rag-workspace-be/internal/repository/contract"
)

// PgVectorStore keeps embeddings inline on the chunks table and scores with
// the pgvector cosine operator. Nothing to provision per workspace since the
// column lives in the relational schema.
type PgVectorStore struct {
	chunks contract.ChunkRepository
}

func NewPgVectorStore(chunks contract.ChunkRepository) *PgVectorStore {
	return &PgVectorStore{chunks: chunks}
}

func (s *PgVectorStore) EnsureWorkspace(ctx context.Context, workspaceId uuid.UUID, dimensions int) error {
	return nil
}

func (s *PgVectorStore) Upsert(ctx context.Context, workspaceId uuid.UUID, chunks []*entity.Chunk) error {
	for _, chunk := range chunks {
		if err := s.chunks.Upsert(ctx, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (s *PgVectorStore) Search(ctx context.Context, workspaceId uuid.UUID, vector []float32, limit int, threshold float64) ([]Match, error) {
	scored, err := s.chunks.SearchSimilar(ctx, vector, limit, workspaceId, threshold)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, len(scored))
	for i, sc := range scored {
		matches[i] = Match{
			ChunkId:    sc.Chunk.Id,
			DocumentId: sc.Chunk.DocumentId,
			Text:       sc.Chunk.Text,
			Score:      sc.Similarity,
		}
	}
	return matches, nil
}

func (s *PgVectorStore) DeleteByDocument(ctx context.Context, workspaceId, documentId uuid.UUID) error {
	return s.chunks.DeleteByDocumentId(ctx, documentId)
}

// DeleteWorkspace is a no-op: chunk rows go away with their documents when
// the workspace cascade runs.
func (s *PgVectorStore) DeleteWorkspace(ctx context.Context, workspaceId uuid.UUID) error {
	return nil
}
