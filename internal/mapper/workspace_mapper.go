package mapper

import (
	"time"

	"rag-workspace-be/internal/entity"
	"rag-workspace-be/internal/model"

	"gorm.io/gorm"
)

type WorkspaceMapper struct{}

func NewWorkspaceMapper() *WorkspaceMapper {
	return &WorkspaceMapper{}
}

func (m *WorkspaceMapper) ToEntity(w *model.Workspace) *entity.Workspace {
	if w == nil {
		return nil
	}

	var deletedAt *time.Time
	if w.DeletedAt.Valid {
		t := w.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !w.UpdatedAt.IsZero() {
		t := w.UpdatedAt
		updatedAt = &t
	}

	return &entity.Workspace{
		Id:        w.Id,
		Name:      w.Name,
		CreatedAt: w.CreatedAt,
		UpdatedAt: updatedAt,
		DeletedAt: deletedAt,
		IsDeleted: w.DeletedAt.Valid,
	}
}

func (m *WorkspaceMapper) ToModel(w *entity.Workspace) *model.Workspace {
	if w == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if w.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *w.DeletedAt, Valid: true}
	}

	var updatedAt time.Time
	if w.UpdatedAt != nil {
		updatedAt = *w.UpdatedAt
	}

	return &model.Workspace{
		Id:        w.Id,
		Name:      w.Name,
		CreatedAt: w.CreatedAt,
		UpdatedAt: updatedAt,
		DeletedAt: deletedAt,
	}
}
