package unitofwork

import (
	"context"
	"fmt"

	"rag-workspace-be/internal/repository/contract"
	"rag-workspace-be/internal/repository/implementation"

	"gorm.io/gorm"
)

type UnitOfWorkImpl struct {
	db *gorm.DB
	tx *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &UnitOfWorkImpl{
		db: db,
	}
}

// getDB returns the active transaction when one is open, the base handle
// otherwise. Repositories obtained before Begin see the base handle.
func (u *UnitOfWorkImpl) getDB() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *UnitOfWorkImpl) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}
	u.tx = u.db.WithContext(ctx).Begin()
	return u.tx.Error
}

func (u *UnitOfWorkImpl) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}
	err := u.tx.Commit().Error
	u.tx = nil
	return err
}

func (u *UnitOfWorkImpl) Rollback() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to rollback")
	}
	err := u.tx.Rollback().Error
	u.tx = nil
	return err
}

// Repository Accessors

func (u *UnitOfWorkImpl) WorkspaceRepository() contract.WorkspaceRepository {
	return implementation.NewWorkspaceRepository(u.getDB())
}

func (u *UnitOfWorkImpl) RagConfigRepository() contract.RagConfigRepository {
	return implementation.NewRagConfigRepository(u.getDB())
}

func (u *UnitOfWorkImpl) DocumentRepository() contract.DocumentRepository {
	return implementation.NewDocumentRepository(u.getDB())
}

func (u *UnitOfWorkImpl) ChunkRepository() contract.ChunkRepository {
	return implementation.NewChunkRepository(u.getDB())
}

func (u *UnitOfWorkImpl) GraphNodeRepository() contract.GraphNodeRepository {
	return implementation.NewGraphNodeRepository(u.getDB())
}

func (u *UnitOfWorkImpl) GraphEdgeRepository() contract.GraphEdgeRepository {
	return implementation.NewGraphEdgeRepository(u.getDB())
}

func (u *UnitOfWorkImpl) ChatSessionRepository() contract.ChatSessionRepository {
	return implementation.NewChatSessionRepository(u.getDB())
}

func (u *UnitOfWorkImpl) ChatMessageRepository() contract.ChatMessageRepository {
	return implementation.NewChatMessageRepository(u.getDB())
}
