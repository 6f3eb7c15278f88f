package entity

import (
	"time"

	"github.com/google/uuid"
)

// Document processing statuses. Transitions are strictly forward-moving;
// see pkg/ingest for the legal transition table.
const (
	DocumentStatusPending   = "pending"
	DocumentStatusParsing   = "parsing"
	DocumentStatusChunking  = "chunking"
	DocumentStatusEmbedding = "embedding"
	DocumentStatusIndexing  = "indexing"
	DocumentStatusReady     = "ready"
	DocumentStatusFailed    = "failed"
	DocumentStatusDeleting  = "deleting"
	DocumentStatusDeleted   = "deleted"
)

type Document struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey"`
	WorkspaceId  uuid.UUID `gorm:"type:uuid;index"`
	Filename     string
	ContentType  string
	SizeBytes    int64
	ContentHash  string
	Status       string
	ErrorMessage string
	ChunkCount   int
	CreatedAt    time.Time
	UpdatedAt    *time.Time
}
