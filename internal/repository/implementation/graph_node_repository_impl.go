package implementation

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"rag-workspace-be/internal/entity"
	"rag-workspace-be/internal/mapper"
	"rag-workspace-be/internal/model"
	"rag-workspace-be/internal/repository/contract"
	"rag-workspace-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type GraphNodeRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.GraphMapper
}

func NewGraphNodeRepository(db *gorm.DB) contract.GraphNodeRepository {
	return &GraphNodeRepositoryImpl{
		db:     db,
		mapper: mapper.NewGraphMapper(),
	}
}

func (r *GraphNodeRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

// UpsertByLabel merges on the (workspace_id, canonical_label) key. The merge
// unions document references rather than overwriting them, so nodes shared
// across documents keep every back-reference.
func (r *GraphNodeRepositoryImpl) UpsertByLabel(ctx context.Context, node *entity.GraphNode) error {
	var existing model.GraphNode
	err := r.db.WithContext(ctx).
		Where("workspace_id = ? AND canonical_label = ?", node.WorkspaceId, node.CanonicalLabel).
		First(&existing).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		m := r.mapper.NodeToModel(node)
		if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
			return err
		}
		*node = *r.mapper.NodeToEntity(m)
		return nil
	}
	if err != nil {
		return err
	}

	var docIds []uuid.UUID
	if len(existing.DocumentIds) > 0 {
		_ = json.Unmarshal(existing.DocumentIds, &docIds)
	}
	seen := make(map[uuid.UUID]bool, len(docIds))
	for _, id := range docIds {
		seen[id] = true
	}
	for _, id := range node.DocumentIds {
		if !seen[id] {
			docIds = append(docIds, id)
			seen[id] = true
		}
	}
	merged, _ := json.Marshal(docIds)

	updates := map[string]interface{}{
		"document_ids": datatypes.JSON(merged),
		"updated_at":   time.Now(),
	}
	if existing.Type == "" && node.Type != "" {
		updates["type"] = node.Type
	}
	if err := r.db.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
		return err
	}

	existing.DocumentIds = datatypes.JSON(merged)
	*node = *r.mapper.NodeToEntity(&existing)
	return nil
}

func (r *GraphNodeRepositoryImpl) UpdateCluster(ctx context.Context, id uuid.UUID, clusterId int) error {
	return r.db.WithContext(ctx).Model(&model.GraphNode{}).
		Where("id = ?", id).
		Update("cluster_id", clusterId).Error
}

// RemoveDocumentRef strips one document id from every node that references it.
func (r *GraphNodeRepositoryImpl) RemoveDocumentRef(ctx context.Context, documentId uuid.UUID) error {
	ref, _ := json.Marshal([]uuid.UUID{documentId})
	var models []*model.GraphNode
	if err := r.db.WithContext(ctx).
		Where("document_ids @> ?", string(ref)).
		Find(&models).Error; err != nil {
		return err
	}

	for _, m := range models {
		var docIds []uuid.UUID
		_ = json.Unmarshal(m.DocumentIds, &docIds)
		kept := docIds[:0]
		for _, id := range docIds {
			if id != documentId {
				kept = append(kept, id)
			}
		}
		remaining, _ := json.Marshal(kept)
		if err := r.db.WithContext(ctx).Model(m).
			Update("document_ids", datatypes.JSON(remaining)).Error; err != nil {
			return err
		}
	}
	return nil
}

// DeleteOrphans removes nodes that no longer reference any document.
func (r *GraphNodeRepositoryImpl) DeleteOrphans(ctx context.Context, workspaceId uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceId).
		Where("document_ids = '[]'::jsonb OR document_ids IS NULL").
		Delete(&model.GraphNode{}).Error
}

func (r *GraphNodeRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.GraphNode, error) {
	var m model.GraphNode
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.NodeToEntity(&m), nil
}

func (r *GraphNodeRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.GraphNode, error) {
	var models []*model.GraphNode
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.NodesToEntities(models), nil
}

// FindByLabelSimilarity resolves query terms to candidate seed nodes using
// trigram-friendly ILIKE matching on the canonical label.
func (r *GraphNodeRepositoryImpl) FindByLabelSimilarity(ctx context.Context, workspaceId uuid.UUID, term string, limit int) ([]*entity.GraphNode, error) {
	if limit <= 0 {
		limit = 5
	}
	var models []*model.GraphNode
	err := r.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceId).
		Where("canonical_label ILIKE ?", "%"+term+"%").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return r.mapper.NodesToEntities(models), nil
}

func (r *GraphNodeRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.GraphNode{}).Count(&count).Error
	return count, err
}
