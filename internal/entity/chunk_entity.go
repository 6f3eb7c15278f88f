package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChunkMetadata is derived at chunking time and stored alongside the text.
type ChunkMetadata struct {
	TokenCount  int    `json:"token_count"`
	Language    string `json:"language,omitempty"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
}

type Chunk struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey"`
	DocumentId uuid.UUID `gorm:"type:uuid;index"`
	Ordinal    int
	Text       string
	Metadata   ChunkMetadata
	Embedding  []float32
	CreatedAt  time.Time
}
