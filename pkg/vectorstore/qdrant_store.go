package vectorstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	qdrantclient "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"

	"rag-workspace-be/internal/entity"
)

// QdrantStore indexes embeddings in a qdrant instance over gRPC, one
// collection per workspace. Chunk text and document id travel in the point
// payload so search results need no relational lookup.
type QdrantStore struct {
	collections qdrantclient.CollectionsClient
	points      qdrantclient.PointsClient
}

func NewQdrantStore(conn *grpc.ClientConn) *QdrantStore {
	return &QdrantStore{
		collections: qdrantclient.NewCollectionsClient(conn),
		points:      qdrantclient.NewPointsClient(conn),
	}
}

func collectionName(workspaceId uuid.UUID) string {
	return "ws_" + workspaceId.String()
}

func (s *QdrantStore) EnsureWorkspace(ctx context.Context, workspaceId uuid.UUID, dimensions int) error {
	name := collectionName(workspaceId)

	collections, err := s.collections.List(ctx, &qdrantclient.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	for _, col := range collections.GetCollections() {
		if col.GetName() == name {
			return nil
		}
	}

	_, err = s.collections.Create(ctx, &qdrantclient.CreateCollection{
		CollectionName: name,
		VectorsConfig: &qdrantclient.VectorsConfig{
			Config: &qdrantclient.VectorsConfig_Params{
				Params: &qdrantclient.VectorParams{
					Size:     uint64(dimensions),
					Distance: qdrantclient.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	return nil
}

func (s *QdrantStore) Upsert(ctx context.Context, workspaceId uuid.UUID, chunks []*entity.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	points := make([]*qdrantclient.PointStruct, 0, len(chunks))
	for _, chunk := range chunks {
		points = append(points, &qdrantclient.PointStruct{
			Id: &qdrantclient.PointId{
				PointIdOptions: &qdrantclient.PointId_Uuid{
					Uuid: chunk.Id.String(),
				},
			},
			Vectors: &qdrantclient.Vectors{
				VectorsOptions: &qdrantclient.Vectors_Vector{
					Vector: &qdrantclient.Vector{
						Data: chunk.Embedding,
					},
				},
			},
			Payload: map[string]*qdrantclient.Value{
				"text":        {Kind: &qdrantclient.Value_StringValue{StringValue: chunk.Text}},
				"document_id": {Kind: &qdrantclient.Value_StringValue{StringValue: chunk.DocumentId.String()}},
			},
		})
	}

	_, err := s.points.Upsert(ctx, &qdrantclient.UpsertPoints{
		CollectionName: collectionName(workspaceId),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}
	return nil
}

func (s *QdrantStore) Search(ctx context.Context, workspaceId uuid.UUID, vector []float32, limit int, threshold float64) ([]Match, error) {
	if limit <= 0 {
		limit = 5
	}
	scoreThreshold := float32(threshold)

	resp, err := s.points.Search(ctx, &qdrantclient.SearchPoints{
		CollectionName: collectionName(workspaceId),
		Vector:         vector,
		Limit:          uint64(limit),
		ScoreThreshold: &scoreThreshold,
		WithPayload: &qdrantclient.WithPayloadSelector{
			SelectorOptions: &qdrantclient.WithPayloadSelector_Include{
				Include: &qdrantclient.PayloadIncludeSelector{
					Fields: []string{"text", "document_id"},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("search points: %w", err)
	}

	matches := make([]Match, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		chunkId, err := uuid.Parse(point.GetId().GetUuid())
		if err != nil {
			continue
		}
		var documentId uuid.UUID
		if val, ok := point.Payload["document_id"]; ok {
			documentId, _ = uuid.Parse(val.GetStringValue())
		}
		text := ""
		if val, ok := point.Payload["text"]; ok {
			text = val.GetStringValue()
		}
		matches = append(matches, Match{
			ChunkId:    chunkId,
			DocumentId: documentId,
			Text:       text,
			Score:      float64(point.GetScore()),
		})
	}
	return matches, nil
}

func (s *QdrantStore) DeleteByDocument(ctx context.Context, workspaceId, documentId uuid.UUID) error {
	_, err := s.points.Delete(ctx, &qdrantclient.DeletePoints{
		CollectionName: collectionName(workspaceId),
		Points: &qdrantclient.PointsSelector{
			PointsSelectorOneOf: &qdrantclient.PointsSelector_Filter{
				Filter: &qdrantclient.Filter{
					Must: []*qdrantclient.Condition{
						{
							ConditionOneOf: &qdrantclient.Condition_Field{
								Field: &qdrantclient.FieldCondition{
									Key: "document_id",
									Match: &qdrantclient.Match{
										MatchValue: &qdrantclient.Match_Keyword{
											Keyword: documentId.String(),
										},
									},
								},
							},
						},
					},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("delete points: %w", err)
	}
	return nil
}

func (s *QdrantStore) DeleteWorkspace(ctx context.Context, workspaceId uuid.UUID) error {
	_, err := s.collections.Delete(ctx, &qdrantclient.DeleteCollection{
		CollectionName: collectionName(workspaceId),
	})
	if err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	return nil
}
