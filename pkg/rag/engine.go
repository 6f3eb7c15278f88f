package rag

import (
	"context"

	"github.com/google/uuid"

	"rag-workspace-be/internal/apperror"
	"rag-workspace-be/internal/entity"
	"rag-workspace-be/pkg/embedding"
	"rag-workspace-be/pkg/graphstore"
	"rag-workspace-be/pkg/vectorstore"
)

// Engine builds the right retriever for a workspace's configuration and runs
// the uniform retrieve contract plus context assembly.
type Engine struct {
	embedders  *embedding.Registry
	rerankers  *RerankerRegistry
	vectors    vectorstore.Store
	graphs     *graphstore.Store
	builder    *ContextBuilder
	threshold  float64
	graphBound int
}

func NewEngine(embedders *embedding.Registry, rerankers *RerankerRegistry, vectors vectorstore.Store, graphs *graphstore.Store, maxContextChars int, threshold float64, graphNodeBound int) *Engine {
	return &Engine{
		embedders:  embedders,
		rerankers:  rerankers,
		vectors:    vectors,
		graphs:     graphs,
		builder:    NewContextBuilder(maxContextChars),
		threshold:  threshold,
		graphBound: graphNodeBound,
	}
}

func (e *Engine) retrieverFor(config *entity.RagConfig) (Retriever, int, error) {
	switch config.Mode {
	case entity.RagModeVector:
		retriever, err := NewVectorRetriever(e.embedders, e.vectors, e.rerankers, config.Vector.Embedder, config.Vector.Reranker, e.threshold)
		if err != nil {
			return nil, 0, err
		}
		return retriever, config.Vector.TopK, nil
	case entity.RagModeGraph:
		return NewGraphRetriever(e.graphs, config.Graph.MaxHops, e.graphBound), 10, nil
	default:
		return nil, 0, apperror.InvalidConfig("mode", "unknown retrieval mode: "+config.Mode)
	}
}

// Retrieve runs the mode-appropriate retrieval path for the workspace.
func (e *Engine) Retrieve(ctx context.Context, workspaceId uuid.UUID, config *entity.RagConfig, query string) (*Retrieval, error) {
	retriever, topK, err := e.retrieverFor(config)
	if err != nil {
		return nil, err
	}
	return retriever.Retrieve(ctx, workspaceId, query, topK)
}

// BuildContext assembles the prompt block from retrieval results.
func (e *Engine) BuildContext(results []Result) *ContextBlock {
	return e.builder.Build(results)
}
