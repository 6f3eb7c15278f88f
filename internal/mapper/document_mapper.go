package mapper

import (
	"time"

	"rag-workspace-be/internal/entity"
	"rag-workspace-be/internal/model"
)

type DocumentMapper struct{}

func NewDocumentMapper() *DocumentMapper {
	return &DocumentMapper{}
}

func (m *DocumentMapper) ToEntity(d *model.Document) *entity.Document {
	if d == nil {
		return nil
	}

	var updatedAt *time.Time
	if !d.UpdatedAt.IsZero() {
		t := d.UpdatedAt
		updatedAt = &t
	}

	return &entity.Document{
		Id:           d.Id,
		WorkspaceId:  d.WorkspaceId,
		Filename:     d.Filename,
		ContentType:  d.ContentType,
		SizeBytes:    d.SizeBytes,
		ContentHash:  d.ContentHash,
		Status:       d.Status,
		ErrorMessage: d.ErrorMessage,
		ChunkCount:   d.ChunkCount,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    updatedAt,
	}
}

func (m *DocumentMapper) ToModel(d *entity.Document) *model.Document {
	if d == nil {
		return nil
	}

	var updatedAt time.Time
	if d.UpdatedAt != nil {
		updatedAt = *d.UpdatedAt
	}

	return &model.Document{
		Id:           d.Id,
		WorkspaceId:  d.WorkspaceId,
		Filename:     d.Filename,
		ContentType:  d.ContentType,
		SizeBytes:    d.SizeBytes,
		ContentHash:  d.ContentHash,
		Status:       d.Status,
		ErrorMessage: d.ErrorMessage,
		ChunkCount:   d.ChunkCount,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    updatedAt,
	}
}

func (m *DocumentMapper) ToEntities(documents []*model.Document) []*entity.Document {
	entities := make([]*entity.Document, len(documents))
	for i, d := range documents {
		entities[i] = m.ToEntity(d)
	}
	return entities
}
