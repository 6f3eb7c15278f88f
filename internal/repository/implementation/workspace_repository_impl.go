package implementation

import (
	"context"
	"errors"

	"rag-workspace-be/internal/entity"
	"rag-workspace-be/internal/mapper"
	"rag-workspace-be/internal/model"
	"rag-workspace-be/internal/repository/contract"
	"rag-workspace-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WorkspaceRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.WorkspaceMapper
}

func NewWorkspaceRepository(db *gorm.DB) contract.WorkspaceRepository {
	return &WorkspaceRepositoryImpl{
		db:     db,
		mapper: mapper.NewWorkspaceMapper(),
	}
}

func (r *WorkspaceRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *WorkspaceRepositoryImpl) Create(ctx context.Context, workspace *entity.Workspace) error {
	m := r.mapper.ToModel(workspace)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*workspace = *r.mapper.ToEntity(m)
	return nil
}

func (r *WorkspaceRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Workspace{}, id).Error
}

func (r *WorkspaceRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Workspace, error) {
	var m model.Workspace
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *WorkspaceRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Workspace, error) {
	var models []*model.Workspace
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.Workspace, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}
