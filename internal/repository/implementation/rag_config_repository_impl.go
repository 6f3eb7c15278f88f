package implementation

import (
	"context"
	"errors"

	"rag-workspace-be/internal/entity"
	"rag-workspace-be/internal/mapper"
	"rag-workspace-be/internal/model"
	"rag-workspace-be/internal/repository/contract"
	"rag-workspace-be/internal/repository/specification"

	"gorm.io/gorm"
)

type RagConfigRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.RagConfigMapper
}

func NewRagConfigRepository(db *gorm.DB) contract.RagConfigRepository {
	return &RagConfigRepositoryImpl{
		db:     db,
		mapper: mapper.NewRagConfigMapper(),
	}
}

func (r *RagConfigRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *RagConfigRepositoryImpl) Create(ctx context.Context, config *entity.RagConfig) error {
	m := r.mapper.ToModel(config)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*config = *r.mapper.ToEntity(m)
	return nil
}

func (r *RagConfigRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.RagConfig, error) {
	var m model.RagConfig
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}
