package contract

import (
	"context"

	"rag-workspace-be/internal/entity"
	"rag-workspace-be/internal/repository/specification"

	"github.com/google/uuid"
)

type GraphNodeRepository interface {
	// UpsertByLabel merges on (workspace_id, canonical_label): an existing node
	// accumulates the new node's document references, a missing one is created.
	UpsertByLabel(ctx context.Context, node *entity.GraphNode) error
	UpdateCluster(ctx context.Context, id uuid.UUID, clusterId int) error
	RemoveDocumentRef(ctx context.Context, documentId uuid.UUID) error
	DeleteOrphans(ctx context.Context, workspaceId uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.GraphNode, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.GraphNode, error)
	FindByLabelSimilarity(ctx context.Context, workspaceId uuid.UUID, term string, limit int) ([]*entity.GraphNode, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}

type GraphEdgeRepository interface {
	Upsert(ctx context.Context, edge *entity.GraphEdge) error
	RemoveDocumentRef(ctx context.Context, documentId uuid.UUID) error
	DeleteOrphans(ctx context.Context, workspaceId uuid.UUID) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.GraphEdge, error)
	FindByNodeIds(ctx context.Context, workspaceId uuid.UUID, nodeIds []uuid.UUID) ([]*entity.GraphEdge, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
