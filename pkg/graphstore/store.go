package graphstore

import (
	"context"

	"github.com/google/uuid"

	"rag-workspace-be/internal/entity"
	"rag-workspace-be/internal/repository/contract"
	"rag-workspace-be/internal/repository/specification"
)

// Neighborhood is the subgraph reached from a set of seed nodes, with the
// hop distance of every visited node.
type Neighborhood struct {
	Nodes     []*entity.GraphNode
	Edges     []*entity.GraphEdge
	Distances map[uuid.UUID]int
}

// Store wraps the node and edge repositories with the traversal and cascade
// operations the retrieval and deletion paths need.
type Store struct {
	nodes contract.GraphNodeRepository
	edges contract.GraphEdgeRepository
}

func NewStore(nodes contract.GraphNodeRepository, edges contract.GraphEdgeRepository) *Store {
	return &Store{nodes: nodes, edges: edges}
}

func (s *Store) UpsertNode(ctx context.Context, node *entity.GraphNode) error {
	return s.nodes.UpsertByLabel(ctx, node)
}

func (s *Store) UpsertEdge(ctx context.Context, edge *entity.GraphEdge) error {
	return s.edges.Upsert(ctx, edge)
}

func (s *Store) FindSeeds(ctx context.Context, workspaceId uuid.UUID, term string, limit int) ([]*entity.GraphNode, error) {
	return s.nodes.FindByLabelSimilarity(ctx, workspaceId, term, limit)
}

// Neighbors expands outward from the seeds up to maxHops, breadth first.
// maxNodes bounds the visited set so dense graphs cannot blow up retrieval;
// zero means no bound. Edges between visited nodes are returned regardless of
// the hop at which they were discovered.
func (s *Store) Neighbors(ctx context.Context, workspaceId uuid.UUID, seeds []*entity.GraphNode, maxHops, maxNodes int) (*Neighborhood, error) {
	nb := &Neighborhood{Distances: make(map[uuid.UUID]int)}
	if len(seeds) == 0 {
		return nb, nil
	}

	visited := make(map[uuid.UUID]*entity.GraphNode)
	var frontier []uuid.UUID
	for _, seed := range seeds {
		if _, ok := visited[seed.Id]; ok {
			continue
		}
		visited[seed.Id] = seed
		nb.Distances[seed.Id] = 0
		frontier = append(frontier, seed.Id)
	}

	edgesSeen := make(map[uuid.UUID]*entity.GraphEdge)

	for hop := 1; hop <= maxHops && len(frontier) > 0; hop++ {
		if maxNodes > 0 && len(visited) >= maxNodes {
			break
		}

		edges, err := s.edges.FindByNodeIds(ctx, workspaceId, frontier)
		if err != nil {
			return nil, err
		}

		var nextIds []uuid.UUID
		for _, edge := range edges {
			edgesSeen[edge.Id] = edge
			for _, endpoint := range []uuid.UUID{edge.SourceNodeId, edge.TargetNodeId} {
				if _, ok := nb.Distances[endpoint]; ok {
					continue
				}
				if maxNodes > 0 && len(nb.Distances) >= maxNodes {
					continue
				}
				nb.Distances[endpoint] = hop
				nextIds = append(nextIds, endpoint)
			}
		}

		if len(nextIds) > 0 {
			nodes, err := s.nodes.FindAll(ctx, specification.ByIDs{IDs: nextIds})
			if err != nil {
				return nil, err
			}
			for _, node := range nodes {
				visited[node.Id] = node
			}
		}
		frontier = nextIds
	}

	for id := range nb.Distances {
		if node, ok := visited[id]; ok {
			nb.Nodes = append(nb.Nodes, node)
		} else {
			// Endpoint discovered through an edge but never loaded (bound hit).
			delete(nb.Distances, id)
		}
	}
	for _, edge := range edgesSeen {
		if _, okS := nb.Distances[edge.SourceNodeId]; !okS {
			continue
		}
		if _, okT := nb.Distances[edge.TargetNodeId]; !okT {
			continue
		}
		nb.Edges = append(nb.Edges, edge)
	}

	return nb, nil
}

// WorkspaceGraph loads the full node and edge sets of one workspace, used by
// the clustering stage.
func (s *Store) WorkspaceGraph(ctx context.Context, workspaceId uuid.UUID) ([]*entity.GraphNode, []*entity.GraphEdge, error) {
	nodes, err := s.nodes.FindAll(ctx, specification.ByWorkspaceID{WorkspaceID: workspaceId})
	if err != nil {
		return nil, nil, err
	}
	edges, err := s.edges.FindAll(ctx, specification.ByWorkspaceID{WorkspaceID: workspaceId})
	if err != nil {
		return nil, nil, err
	}
	return nodes, edges, nil
}

// TagClusters writes cluster assignments back onto the nodes.
func (s *Store) TagClusters(ctx context.Context, assignment map[uuid.UUID]int) error {
	for id, cluster := range assignment {
		if err := s.nodes.UpdateCluster(ctx, id, cluster); err != nil {
			return err
		}
	}
	return nil
}

// DeleteByDocument removes a document's references from nodes and edges, then
// sweeps anything left orphaned.
func (s *Store) DeleteByDocument(ctx context.Context, workspaceId, documentId uuid.UUID) error {
	if err := s.edges.RemoveDocumentRef(ctx, documentId); err != nil {
		return err
	}
	if err := s.nodes.RemoveDocumentRef(ctx, documentId); err != nil {
		return err
	}
	if err := s.nodes.DeleteOrphans(ctx, workspaceId); err != nil {
		return err
	}
	return s.edges.DeleteOrphans(ctx, workspaceId)
}
