package unitofwork

import (
	"context"

	"rag-workspace-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	WorkspaceRepository() contract.WorkspaceRepository
	RagConfigRepository() contract.RagConfigRepository
	DocumentRepository() contract.DocumentRepository
	ChunkRepository() contract.ChunkRepository
	GraphNodeRepository() contract.GraphNodeRepository
	GraphEdgeRepository() contract.GraphEdgeRepository
	ChatSessionRepository() contract.ChatSessionRepository
	ChatMessageRepository() contract.ChatMessageRepository
}
