package rag

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"rag-workspace-be/internal/apperror"
	"rag-workspace-be/pkg/embedding"
	"rag-workspace-be/pkg/vectorstore"
)

// VectorRetriever embeds the query with the workspace's configured embedder
// and ranks nearest chunks. The embedder must be the one used at ingestion;
// an unknown identifier is a configuration error, never tolerated silently.
type VectorRetriever struct {
	embedder  embedding.Provider
	store     vectorstore.Store
	reranker  Reranker // nil means no reranking
	threshold float64
}

func NewVectorRetriever(embedders *embedding.Registry, store vectorstore.Store, rerankers *RerankerRegistry, embedderName, rerankerName string, threshold float64) (*VectorRetriever, error) {
	embedder, err := embedders.Resolve(embedderName)
	if err != nil {
		return nil, apperror.InvalidConfig("embedder", fmt.Sprintf("not registered: %s", embedderName))
	}

	var reranker Reranker
	if rerankerName != "" {
		reranker, err = rerankers.Resolve(rerankerName)
		if err != nil {
			return nil, apperror.InvalidConfig("reranker", fmt.Sprintf("not registered: %s", rerankerName))
		}
	}

	return &VectorRetriever{
		embedder:  embedder,
		store:     store,
		reranker:  reranker,
		threshold: threshold,
	}, nil
}

func (r *VectorRetriever) Retrieve(ctx context.Context, workspaceId uuid.UUID, query string, topK int) (*Retrieval, error) {
	if topK <= 0 {
		topK = 5
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", apperror.ErrRetrieval, err)
	}

	// Over-fetch when reranking so the reranker has candidates to reorder.
	fetchLimit := topK
	if r.reranker != nil {
		fetchLimit = topK * 4
	}

	matches, err := r.store.Search(ctx, workspaceId, vector, fetchLimit, r.threshold)
	if err != nil {
		return nil, fmt.Errorf("%w: vector search: %v", apperror.ErrRetrieval, err)
	}
	if len(matches) == 0 {
		return noContext("no chunks above relevance threshold"), nil
	}

	results := make([]Result, len(matches))
	for i, m := range matches {
		chunkId := m.ChunkId
		results[i] = Result{
			Text:       m.Text,
			Score:      m.Score,
			DocumentId: m.DocumentId,
			ChunkId:    &chunkId,
		}
	}

	if r.reranker != nil {
		results, err = r.reranker.Rerank(ctx, query, results)
		if err != nil {
			return nil, fmt.Errorf("%w: rerank: %v", apperror.ErrRetrieval, err)
		}
	}

	if len(results) > topK {
		results = results[:topK]
	}
	return &Retrieval{Results: results}, nil
}
