package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"rag-workspace-be/internal/apperror"
	"rag-workspace-be/internal/dto"
	"rag-workspace-be/internal/entity"
	"rag-workspace-be/internal/repository/specification"
	"rag-workspace-be/internal/repository/unitofwork"
	"rag-workspace-be/pkg/events"
	"rag-workspace-be/pkg/graphstore"
	pkgNats "rag-workspace-be/pkg/nats"
	"rag-workspace-be/pkg/vectorstore"
)

type IWorkspaceService interface {
	Create(ctx context.Context, req *dto.CreateWorkspaceRequest) (*dto.CreateWorkspaceResponse, error)
	List(ctx context.Context) ([]*dto.WorkspaceResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.WorkspaceResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type workspaceService struct {
	uowFactory     unitofwork.RepositoryFactory
	configService  IRagConfigService
	vectors        vectorstore.Store
	graphs         *graphstore.Store
	eventPublisher pkgNats.EventPublisher
}

func NewWorkspaceService(
	uowFactory unitofwork.RepositoryFactory,
	configService IRagConfigService,
	vectors vectorstore.Store,
	graphs *graphstore.Store,
	eventPublisher pkgNats.EventPublisher,
) IWorkspaceService {
	return &workspaceService{
		uowFactory:     uowFactory,
		configService:  configService,
		vectors:        vectors,
		graphs:         graphs,
		eventPublisher: eventPublisher,
	}
}

// Create makes the workspace and its config in one step. A workspace is never
// visible without a config, so the retrieval mode is fixed from birth.
func (s *workspaceService) Create(ctx context.Context, req *dto.CreateWorkspaceRequest) (*dto.CreateWorkspaceResponse, error) {
	workspace := &entity.Workspace{
		Id:        uuid.New(),
		Name:      req.Name,
		CreatedAt: time.Now(),
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.WorkspaceRepository().Create(ctx, workspace); err != nil {
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	req.Config.WorkspaceId = workspace.Id
	configResp, err := s.configService.Create(ctx, req.Config)
	if err != nil {
		// Invalid config means the workspace must not survive either.
		cleanupUow := s.uowFactory.NewUnitOfWork(ctx)
		_ = cleanupUow.WorkspaceRepository().Delete(ctx, workspace.Id)
		return nil, err
	}

	return &dto.CreateWorkspaceResponse{
		Id:     workspace.Id,
		Config: configResp,
	}, nil
}

func (s *workspaceService) List(ctx context.Context) ([]*dto.WorkspaceResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	workspaces, err := uow.WorkspaceRepository().FindAll(ctx, specification.OrderBy{Field: "created_at", Desc: true})
	if err != nil {
		return nil, err
	}

	responses := make([]*dto.WorkspaceResponse, len(workspaces))
	for i, ws := range workspaces {
		responses[i] = toWorkspaceResponse(ws)
	}
	return responses, nil
}

func (s *workspaceService) Get(ctx context.Context, id uuid.UUID) (*dto.WorkspaceResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	workspace, err := uow.WorkspaceRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if workspace == nil {
		return nil, apperror.ErrNotFound
	}
	return toWorkspaceResponse(workspace), nil
}

// Delete cascades: retrieval artifacts first, then rows. A half-finished
// cascade leaves rows intact so the delete can be retried.
func (s *workspaceService) Delete(ctx context.Context, id uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	workspace, err := uow.WorkspaceRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return err
	}
	if workspace == nil {
		return apperror.ErrNotFound
	}

	documents, err := uow.DocumentRepository().FindAll(ctx, specification.ByWorkspaceID{WorkspaceID: id})
	if err != nil {
		return err
	}
	for _, doc := range documents {
		if err := s.vectors.DeleteByDocument(ctx, id, doc.Id); err != nil {
			return err
		}
		if err := s.graphs.DeleteByDocument(ctx, id, doc.Id); err != nil {
			return err
		}
	}
	if err := s.vectors.DeleteWorkspace(ctx, id); err != nil {
		return err
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	for _, doc := range documents {
		if err := uow.ChunkRepository().DeleteByDocumentId(ctx, doc.Id); err != nil {
			return err
		}
		if err := uow.DocumentRepository().Delete(ctx, doc.Id); err != nil {
			return err
		}
	}

	sessions, err := uow.ChatSessionRepository().FindAll(ctx, specification.ByWorkspaceID{WorkspaceID: id})
	if err != nil {
		return err
	}
	for _, session := range sessions {
		if err := uow.ChatMessageRepository().DeleteByChatSessionId(ctx, session.Id); err != nil {
			return err
		}
		if err := uow.ChatSessionRepository().Delete(ctx, session.Id); err != nil {
			return err
		}
	}

	if err := uow.WorkspaceRepository().Delete(ctx, id); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	if s.eventPublisher != nil {
		// Delivery is best effort; the workspace is gone either way.
		_ = s.eventPublisher.Publish(ctx, events.WorkspaceStatus(id, "deleted"))
	}
	return nil
}

func toWorkspaceResponse(ws *entity.Workspace) *dto.WorkspaceResponse {
	return &dto.WorkspaceResponse{
		Id:        ws.Id,
		Name:      ws.Name,
		CreatedAt: ws.CreatedAt,
	}
}
