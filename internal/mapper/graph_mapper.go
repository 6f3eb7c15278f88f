package mapper

import (
	"encoding/json"
	"time"

	"rag-workspace-be/internal/entity"
	"rag-workspace-be/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type GraphMapper struct{}

func NewGraphMapper() *GraphMapper {
	return &GraphMapper{}
}

func (m *GraphMapper) NodeToEntity(n *model.GraphNode) *entity.GraphNode {
	if n == nil {
		return nil
	}

	var docIds []uuid.UUID
	if len(n.DocumentIds) > 0 {
		_ = json.Unmarshal(n.DocumentIds, &docIds)
	}

	var updatedPtr *time.Time
	if !n.UpdatedAt.IsZero() {
		t := n.UpdatedAt
		updatedPtr = &t
	}

	return &entity.GraphNode{
		Id:             n.Id,
		WorkspaceId:    n.WorkspaceId,
		CanonicalLabel: n.CanonicalLabel,
		Label:          n.Label,
		Type:           n.Type,
		ClusterId:      n.ClusterId,
		DocumentIds:    docIds,
		CreatedAt:      n.CreatedAt,
		UpdatedAt:      updatedPtr,
	}
}

func (m *GraphMapper) NodeToModel(n *entity.GraphNode) *model.GraphNode {
	if n == nil {
		return nil
	}

	docIds, _ := json.Marshal(n.DocumentIds)

	node := &model.GraphNode{
		Id:             n.Id,
		WorkspaceId:    n.WorkspaceId,
		CanonicalLabel: n.CanonicalLabel,
		Label:          n.Label,
		Type:           n.Type,
		ClusterId:      n.ClusterId,
		DocumentIds:    datatypes.JSON(docIds),
		CreatedAt:      n.CreatedAt,
	}
	if n.UpdatedAt != nil {
		node.UpdatedAt = *n.UpdatedAt
	}
	return node
}

func (m *GraphMapper) EdgeToEntity(e *model.GraphEdge) *entity.GraphEdge {
	if e == nil {
		return nil
	}

	var docIds []uuid.UUID
	if len(e.DocumentIds) > 0 {
		_ = json.Unmarshal(e.DocumentIds, &docIds)
	}

	return &entity.GraphEdge{
		Id:           e.Id,
		WorkspaceId:  e.WorkspaceId,
		SourceNodeId: e.SourceNodeId,
		TargetNodeId: e.TargetNodeId,
		Relation:     e.Relation,
		Weight:       e.Weight,
		DocumentIds:  docIds,
		CreatedAt:    e.CreatedAt,
	}
}

func (m *GraphMapper) EdgeToModel(e *entity.GraphEdge) *model.GraphEdge {
	if e == nil {
		return nil
	}

	docIds, _ := json.Marshal(e.DocumentIds)

	return &model.GraphEdge{
		Id:           e.Id,
		WorkspaceId:  e.WorkspaceId,
		SourceNodeId: e.SourceNodeId,
		TargetNodeId: e.TargetNodeId,
		Relation:     e.Relation,
		Weight:       e.Weight,
		DocumentIds:  datatypes.JSON(docIds),
		CreatedAt:    e.CreatedAt,
	}
}

func (m *GraphMapper) NodesToEntities(nodes []*model.GraphNode) []*entity.GraphNode {
	entities := make([]*entity.GraphNode, len(nodes))
	for i, n := range nodes {
		entities[i] = m.NodeToEntity(n)
	}
	return entities
}

func (m *GraphMapper) EdgesToEntities(edges []*model.GraphEdge) []*entity.GraphEdge {
	entities := make([]*entity.GraphEdge, len(edges))
	for i, e := range edges {
		entities[i] = m.EdgeToEntity(e)
	}
	return entities
}
