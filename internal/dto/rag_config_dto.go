package dto

import (
	"time"

	"github.com/google/uuid"
)

type VectorParamsPayload struct {
	Chunker      string `json:"chunker" validate:"required"`
	ChunkSize    int    `json:"chunk_size"`
	ChunkOverlap int    `json:"chunk_overlap"`
	// Embedder left empty selects the deployment's default provider.
	Embedder string `json:"embedder"`
	TopK         int    `json:"top_k"`
	Reranker     string `json:"reranker"`
}

type GraphParamsPayload struct {
	EntityExtractor   string `json:"entity_extractor" validate:"required"`
	RelationExtractor string `json:"relation_extractor" validate:"required"`
	Clustering        string `json:"clustering" validate:"required"`
	MaxHops           int    `json:"max_hops"`
	MinClusterSize    int    `json:"min_cluster_size"`
	MaxClusterSize    int    `json:"max_cluster_size"`
}

// CreateRagConfigRequest carries exactly one of Vector/Graph, discriminated
// by Mode. The other must be absent.
type CreateRagConfigRequest struct {
	WorkspaceId uuid.UUID            `json:"-"`
	Mode        string               `json:"mode" validate:"required,oneof=vector graph"`
	Vector      *VectorParamsPayload `json:"vector,omitempty"`
	Graph       *GraphParamsPayload  `json:"graph,omitempty"`
}

type RagConfigResponse struct {
	Id          uuid.UUID            `json:"id"`
	WorkspaceId uuid.UUID            `json:"workspace_id"`
	Mode        string               `json:"mode"`
	Vector      *VectorParamsPayload `json:"vector,omitempty"`
	Graph       *GraphParamsPayload  `json:"graph,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
}

// RagOption is one selectable identifier with its human-readable description.
type RagOption struct {
	Id          string `json:"id"`
	Description string `json:"description"`
}

// RagOptionsResponse enumerates the identifiers a client may use when
// composing a config, straight from the registries.
type RagOptionsResponse struct {
	Modes              []RagOption `json:"modes"`
	Chunkers           []RagOption `json:"chunkers"`
	Embedders          []RagOption `json:"embedders"`
	Rerankers          []RagOption `json:"rerankers"`
	EntityExtractors   []RagOption `json:"entity_extractors"`
	RelationExtractors []RagOption `json:"relation_extractors"`
	Clusterers         []RagOption `json:"clusterers"`
	ContentTypes       []RagOption `json:"content_types"`
}
