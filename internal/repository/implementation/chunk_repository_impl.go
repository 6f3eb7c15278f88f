package implementation

import (
	"context"

	"rag-workspace-be/internal/entity"
	"rag-workspace-be/internal/mapper"
	"rag-workspace-be/internal/model"
	"rag-workspace-be/internal/repository/contract"
	"rag-workspace-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChunkRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChunkMapper
}

func NewChunkRepository(db *gorm.DB) contract.ChunkRepository {
	return &ChunkRepositoryImpl{
		db:     db,
		mapper: mapper.NewChunkMapper(),
	}
}

func (r *ChunkRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ChunkRepositoryImpl) CreateBulk(ctx context.Context, chunks []*entity.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	models := r.mapper.ToModels(chunks)
	if err := r.db.WithContext(ctx).Create(models).Error; err != nil {
		return err
	}
	for i, m := range models {
		*chunks[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

// Upsert overwrites an existing chunk row by id, making re-indexing idempotent.
func (r *ChunkRepositoryImpl) Upsert(ctx context.Context, chunk *entity.Chunk) error {
	m := r.mapper.ToModel(chunk)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(m).Error
}

func (r *ChunkRepositoryImpl) DeleteByDocumentId(ctx context.Context, documentId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("document_id = ?", documentId).Delete(&model.Chunk{}).Error
}

func (r *ChunkRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Chunk, error) {
	var models []*model.Chunk
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *ChunkRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.Chunk{}).Count(&count).Error
	return count, err
}

// SearchSimilar returns chunks with similarity scores, filtered by threshold.
// Cosine distance in pgvector is 1 - cosine_similarity, so we select
// 1 - (embedding <=> query_vector). Only chunks of ready documents in the
// given workspace are visible; documents mid-deletion are simply excluded.
func (r *ChunkRepositoryImpl) SearchSimilar(ctx context.Context, embedding []float32, limit int, workspaceId uuid.UUID, threshold float64) ([]*contract.ScoredChunk, error) {
	if limit <= 0 {
		limit = 5
	}

	type result struct {
		model.Chunk
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	err := r.db.WithContext(ctx).
		Table("chunks").
		Select("chunks.*, 1 - (embedding <=> ?) as similarity", queryVector).
		Joins("JOIN documents ON documents.id = chunks.document_id").
		Where("documents.workspace_id = ?", workspaceId).
		Where("documents.status = ?", entity.DocumentStatusReady).
		Where("documents.deleted_at IS NULL").
		Where("1 - (embedding <=> ?) >= ?", queryVector, threshold).
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error

	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredChunk, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredChunk{
			Chunk:      r.mapper.ToEntity(&res.Chunk),
			Similarity: res.Similarity,
		}
	}
	return scored, nil
}
