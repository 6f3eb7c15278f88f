package rag

import (
	"context"

	"github.com/google/uuid"
)

// Result is the uniform retrieval unit both paths produce: a text snippet,
// its relevance, and where it came from.
type Result struct {
	Text       string
	Score      float64
	DocumentId uuid.UUID
	ChunkId    *uuid.UUID
	NodeId     *uuid.UUID
}

// Retrieval carries either ranked results or an explicit no-context signal.
// An empty result set is never returned silently; NoContext says why.
type Retrieval struct {
	Results   []Result
	NoContext bool
	Reason    string
}

// Retriever is the single contract both retrieval paths implement.
type Retriever interface {
	Retrieve(ctx context.Context, workspaceId uuid.UUID, query string, topK int) (*Retrieval, error)
}

func noContext(reason string) *Retrieval {
	return &Retrieval{NoContext: true, Reason: reason}
}
