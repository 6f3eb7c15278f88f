package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
)

// MessageProvenance ties an assistant message back to the retrieved snippets
// it was grounded on.
type MessageProvenance struct {
	DocumentId uuid.UUID `json:"document_id"`
	ChunkId    uuid.UUID `json:"chunk_id,omitempty"`
	NodeId     uuid.UUID `json:"node_id,omitempty"`
	Score      float64   `json:"score"`
}

type ChatMessage struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey"`
	ChatSessionId uuid.UUID `gorm:"type:uuid;index"`
	Role          string
	Content       string
	Provenance    []MessageProvenance
	CreatedAt     time.Time
}
