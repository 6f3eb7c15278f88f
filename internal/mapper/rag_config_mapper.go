package mapper

import (
	"rag-workspace-be/internal/entity"
	"rag-workspace-be/internal/model"
)

type RagConfigMapper struct{}

func NewRagConfigMapper() *RagConfigMapper {
	return &RagConfigMapper{}
}

func (m *RagConfigMapper) ToEntity(c *model.RagConfig) *entity.RagConfig {
	if c == nil {
		return nil
	}

	return &entity.RagConfig{
		Id:          c.Id,
		WorkspaceId: c.WorkspaceId,
		Mode:        c.Mode,
		Vector: entity.VectorParams{
			Chunker:      c.Chunker,
			ChunkSize:    c.ChunkSize,
			ChunkOverlap: c.ChunkOverlap,
			Embedder:     c.Embedder,
			TopK:         c.TopK,
			Reranker:     c.Reranker,
		},
		Graph: entity.GraphParams{
			EntityExtractor:   c.EntityExtractor,
			RelationExtractor: c.RelationExtractor,
			Clustering:        c.Clustering,
			MaxHops:           c.MaxHops,
			MinClusterSize:    c.MinClusterSize,
			MaxClusterSize:    c.MaxClusterSize,
		},
		CreatedAt: c.CreatedAt,
	}
}

func (m *RagConfigMapper) ToModel(c *entity.RagConfig) *model.RagConfig {
	if c == nil {
		return nil
	}

	return &model.RagConfig{
		Id:                c.Id,
		WorkspaceId:       c.WorkspaceId,
		Mode:              c.Mode,
		Chunker:           c.Vector.Chunker,
		ChunkSize:         c.Vector.ChunkSize,
		ChunkOverlap:      c.Vector.ChunkOverlap,
		Embedder:          c.Vector.Embedder,
		TopK:              c.Vector.TopK,
		Reranker:          c.Vector.Reranker,
		EntityExtractor:   c.Graph.EntityExtractor,
		RelationExtractor: c.Graph.RelationExtractor,
		Clustering:        c.Graph.Clustering,
		MaxHops:           c.Graph.MaxHops,
		MinClusterSize:    c.Graph.MinClusterSize,
		MaxClusterSize:    c.Graph.MaxClusterSize,
		CreatedAt:         c.CreatedAt,
	}
}
