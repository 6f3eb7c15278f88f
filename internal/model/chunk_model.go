package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type Chunk struct {
	Id         uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DocumentId uuid.UUID       `gorm:"type:uuid;not null;index"`
	Ordinal    int             `gorm:"not null;default:0"`
	Text       string          `gorm:"type:text"`
	Metadata   datatypes.JSON  `gorm:"type:jsonb"`
	// Null for graph-mode documents; dimension must match the configured
	// embedder when the pgvector backend is active.
	Embedding *pgvector.Vector `gorm:"type:vector(768)"`
	CreatedAt  time.Time       `gorm:"autoCreateTime"`
}

func (Chunk) TableName() string {
	return "chunks"
}
