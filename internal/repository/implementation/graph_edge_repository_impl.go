package implementation

import (
	"context"
	"encoding/json"
	"errors"

	"rag-workspace-be/internal/entity"
	"rag-workspace-be/internal/mapper"
	"rag-workspace-be/internal/model"
	"rag-workspace-be/internal/repository/contract"
	"rag-workspace-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type GraphEdgeRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.GraphMapper
}

func NewGraphEdgeRepository(db *gorm.DB) contract.GraphEdgeRepository {
	return &GraphEdgeRepositoryImpl{
		db:     db,
		mapper: mapper.NewGraphMapper(),
	}
}

func (r *GraphEdgeRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

// Upsert merges on (source, target, relation). Parallel edges with different
// relations stay distinct; re-extracting the same triple bumps the weight and
// unions document references.
func (r *GraphEdgeRepositoryImpl) Upsert(ctx context.Context, edge *entity.GraphEdge) error {
	var existing model.GraphEdge
	err := r.db.WithContext(ctx).
		Where("source_node_id = ? AND target_node_id = ? AND relation = ?",
			edge.SourceNodeId, edge.TargetNodeId, edge.Relation).
		First(&existing).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		m := r.mapper.EdgeToModel(edge)
		if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
			return err
		}
		*edge = *r.mapper.EdgeToEntity(m)
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
	for _, id := range edge.DocumentIds {
		if !seen[id] {
			docIds = append(docIds, id)
			seen[id] = true
		}
	}
	merged, _ := json.Marshal(docIds)

	weight := existing.Weight
	if edge.Weight > weight {
		weight = edge.Weight
	}

	if err := r.db.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
		"document_ids": datatypes.JSON(merged),
		"weight":       weight,
	}).Error; err != nil {
		return err
	}

	existing.DocumentIds = datatypes.JSON(merged)
	existing.Weight = weight
	*edge = *r.mapper.EdgeToEntity(&existing)
	return nil
}

func (r *GraphEdgeRepositoryImpl) RemoveDocumentRef(ctx context.Context, documentId uuid.UUID) error {
	ref, _ := json.Marshal([]uuid.UUID{documentId})
	var models []*model.GraphEdge
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

func (r *GraphEdgeRepositoryImpl) DeleteOrphans(ctx context.Context, workspaceId uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceId).
		Where("document_ids = '[]'::jsonb OR document_ids IS NULL").
		Delete(&model.GraphEdge{}).Error; err != nil {
		return err
	}

	// Edges whose endpoints were removed as orphan nodes go too.
	return r.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceId).
		Where("source_node_id NOT IN (?) OR target_node_id NOT IN (?)",
			r.db.Table("graph_nodes").Select("id").Where("workspace_id = ?", workspaceId),
			r.db.Table("graph_nodes").Select("id").Where("workspace_id = ?", workspaceId),
		).
		Delete(&model.GraphEdge{}).Error
}

func (r *GraphEdgeRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.GraphEdge, error) {
	var models []*model.GraphEdge
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.EdgesToEntities(models), nil
}

// FindByNodeIds returns all edges touching any of the given nodes in either
// direction, used by the traversal frontier expansion.
func (r *GraphEdgeRepositoryImpl) FindByNodeIds(ctx context.Context, workspaceId uuid.UUID, nodeIds []uuid.UUID) ([]*entity.GraphEdge, error) {
	if len(nodeIds) == 0 {
		return nil, nil
	}
	var models []*model.GraphEdge
	err := r.db.WithContext(ctx).
		Where("workspace_id = ?", workspaceId).
		Where("source_node_id IN ? OR target_node_id IN ?", nodeIds, nodeIds).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return r.mapper.EdgesToEntities(models), nil
}

func (r *GraphEdgeRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.GraphEdge{}).Count(&count).Error
	return count, err
}
