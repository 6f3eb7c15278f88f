package entity

import (
	"time"

	"github.com/google/uuid"
)

// Retrieval modes. A workspace is created with exactly one mode and keeps it
// for its whole lifetime.
const (
	RagModeVector = "vector"
	RagModeGraph  = "graph"
)

// VectorParams holds the vector-mode pipeline knobs.
type VectorParams struct {
	Chunker      string
	ChunkSize    int
	ChunkOverlap int
	Embedder     string
	TopK         int
	Reranker     string // empty means no reranking
}

// GraphParams holds the graph-mode pipeline knobs.
type GraphParams struct {
	EntityExtractor   string
	RelationExtractor string
	Clustering        string
	MaxHops           int
	MinClusterSize    int
	MaxClusterSize    int
}

// RagConfig is the per-workspace retrieval configuration. It is immutable
// after creation; only one of Vector/Graph is meaningful, discriminated by Mode.
type RagConfig struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey"`
	WorkspaceId uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	Mode        string
	Vector      VectorParams
	Graph       GraphParams
	CreatedAt   time.Time
}
