package mapper

import (
	"encoding/json"

	"rag-workspace-be/internal/entity"
	"rag-workspace-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type ChunkMapper struct{}

func NewChunkMapper() *ChunkMapper {
	return &ChunkMapper{}
}

func (m *ChunkMapper) ToEntity(c *model.Chunk) *entity.Chunk {
	if c == nil {
		return nil
	}

	var meta entity.ChunkMetadata
	if len(c.Metadata) > 0 {
		_ = json.Unmarshal(c.Metadata, &meta)
	}

	var embedding []float32
	if c.Embedding != nil {
		embedding = c.Embedding.Slice()
	}

	return &entity.Chunk{
		Id:         c.Id,
		DocumentId: c.DocumentId,
		Ordinal:    c.Ordinal,
		Text:       c.Text,
		Metadata:   meta,
		Embedding:  embedding,
		CreatedAt:  c.CreatedAt,
	}
}

func (m *ChunkMapper) ToModel(c *entity.Chunk) *model.Chunk {
	if c == nil {
		return nil
	}

	metaJson, _ := json.Marshal(c.Metadata)

	var embedding *pgvector.Vector
	if len(c.Embedding) > 0 {
		v := pgvector.NewVector(c.Embedding)
		embedding = &v
	}

	return &model.Chunk{
		Id:         c.Id,
		DocumentId: c.DocumentId,
		Ordinal:    c.Ordinal,
		Text:       c.Text,
		Metadata:   datatypes.JSON(metaJson),
		Embedding:  embedding,
		CreatedAt:  c.CreatedAt,
	}
}

func (m *ChunkMapper) ToEntities(chunks []*model.Chunk) []*entity.Chunk {
	entities := make([]*entity.Chunk, len(chunks))
	for i, c := range chunks {
		entities[i] = m.ToEntity(c)
	}
	return entities
}

func (m *ChunkMapper) ToModels(chunks []*entity.Chunk) []*model.Chunk {
	models := make([]*model.Chunk, len(chunks))
	for i, c := range chunks {
		models[i] = m.ToModel(c)
	}
	return models
}
