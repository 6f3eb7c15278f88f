package dto

import (
	"time"

	"github.com/google/uuid"
)

type UploadDocumentRequest struct {
	WorkspaceId uuid.UUID
	Filename    string `validate:"required"`
	ContentType string `validate:"required"`
	Data        []byte `validate:"required"`
}

type UploadDocumentResponse struct {
	Id          uuid.UUID `json:"id"`
	Status      string    `json:"status"`
	IsDuplicate bool      `json:"is_duplicate"`
}

type DocumentResponse struct {
	Id           uuid.UUID `json:"id"`
	WorkspaceId  uuid.UUID `json:"workspace_id"`
	Filename     string    `json:"filename"`
	ContentType  string    `json:"content_type"`
	SizeBytes    int64     `json:"size_bytes"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	ChunkCount   int       `json:"chunk_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// IngestDocumentMessage travels through the ingestion queue. Raw carries the
// uploaded bytes so the worker never re-reads the upload.
type IngestDocumentMessage struct {
	DocumentId  uuid.UUID `json:"document_id"`
	WorkspaceId uuid.UUID `json:"workspace_id"`
	ContentType string    `json:"content_type"`
	Raw         []byte    `json:"raw"`
}
