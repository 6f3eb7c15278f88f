package model

import (
	"time"

	"github.com/google/uuid"
)

type RagConfig struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	WorkspaceId uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	Mode        string    `gorm:"not null"`

	// Vector mode columns
	Chunker      string
	ChunkSize    int
	ChunkOverlap int
	Embedder     string
	TopK         int
	Reranker     string

	// Graph mode columns
	EntityExtractor   string
	RelationExtractor string
	Clustering        string
	MaxHops           int
	MinClusterSize    int
	MaxClusterSize    int

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (RagConfig) TableName() string {
	return "rag_configs"
}
