package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"rag-workspace-be/internal/apperror"
	"rag-workspace-be/internal/dto"
	"rag-workspace-be/internal/entity"
	"rag-workspace-be/internal/pkg/logger"
	"rag-workspace-be/internal/repository/specification"
	"rag-workspace-be/internal/repository/unitofwork"
	"rag-workspace-be/pkg/events"
	"rag-workspace-be/pkg/graphstore"
	pkgNats "rag-workspace-be/pkg/nats"
	"rag-workspace-be/pkg/vectorstore"
)

type IDocumentService interface {
	Upload(ctx context.Context, req *dto.UploadDocumentRequest) (*dto.UploadDocumentResponse, error)
	List(ctx context.Context, workspaceId uuid.UUID, status string) ([]*dto.DocumentResponse, error)
	Get(ctx context.Context, workspaceId, id uuid.UUID) (*dto.DocumentResponse, error)
	Delete(ctx context.Context, workspaceId, id uuid.UUID) error
}

type documentService struct {
	uowFactory       unitofwork.RepositoryFactory
	publisherService IPublisherService
	eventPublisher   pkgNats.EventPublisher
	vectors          vectorstore.Store
	graphs           *graphstore.Store
	log              logger.ILogger
}

func NewDocumentService(
	uowFactory unitofwork.RepositoryFactory,
	publisherService IPublisherService,
	eventPublisher pkgNats.EventPublisher,
	vectors vectorstore.Store,
	graphs *graphstore.Store,
	log logger.ILogger,
) IDocumentService {
	return &documentService{
		uowFactory:       uowFactory,
		publisherService: publisherService,
		eventPublisher:   eventPublisher,
		vectors:          vectors,
		graphs:           graphs,
		log:              log,
	}
}

// Upload registers the document and enqueues ingestion. A byte-identical
// upload into the same workspace returns the existing record untouched.
func (s *documentService) Upload(ctx context.Context, req *dto.UploadDocumentRequest) (*dto.UploadDocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	workspace, err := uow.WorkspaceRepository().FindOne(ctx, specification.ByID{ID: req.WorkspaceId})
	if err != nil {
		return nil, err
	}
	if workspace == nil {
		return nil, apperror.ErrNotFound
	}

	sum := sha256.Sum256(req.Data)
	hash := hex.EncodeToString(sum[:])

	existing, err := uow.DocumentRepository().FindOne(ctx,
		specification.ByWorkspaceID{WorkspaceID: req.WorkspaceId},
		specification.ByContentHash{Hash: hash},
	)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Status != entity.DocumentStatusDeleting && existing.Status != entity.DocumentStatusDeleted {
		return &dto.UploadDocumentResponse{
			Id:          existing.Id,
			Status:      existing.Status,
			IsDuplicate: true,
		}, nil
	}

	document := &entity.Document{
		Id:          uuid.New(),
		WorkspaceId: req.WorkspaceId,
		Filename:    req.Filename,
		ContentType: req.ContentType,
		SizeBytes:   int64(len(req.Data)),
		ContentHash: hash,
		Status:      entity.DocumentStatusPending,
		CreatedAt:   time.Now(),
	}
	if err := uow.DocumentRepository().Create(ctx, document); err != nil {
		return nil, err
	}

	msg := dto.IngestDocumentMessage{
		DocumentId:  document.Id,
		WorkspaceId: document.WorkspaceId,
		ContentType: document.ContentType,
		Raw:         req.Data,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	if err := s.publisherService.Publish(ctx, payload); err != nil {
		return nil, err
	}

	s.publishStatus(ctx, document.WorkspaceId, document.Id, entity.DocumentStatusPending, "")

	return &dto.UploadDocumentResponse{
		Id:     document.Id,
		Status: document.Status,
	}, nil
}

// List returns the workspace's documents, optionally filtered to one
// processing status.
func (s *documentService) List(ctx context.Context, workspaceId uuid.UUID, status string) ([]*dto.DocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	specs := []specification.Specification{
		specification.ByWorkspaceID{WorkspaceID: workspaceId},
		specification.OrderBy{Field: "created_at", Desc: true},
	}
	if status != "" {
		specs = append(specs, specification.ByStatus{Status: status})
	}
	documents, err := uow.DocumentRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	responses := make([]*dto.DocumentResponse, len(documents))
	for i, doc := range documents {
		responses[i] = toDocumentResponse(doc)
	}
	return responses, nil
}

func (s *documentService) Get(ctx context.Context, workspaceId, id uuid.UUID) (*dto.DocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	document, err := uow.DocumentRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.ByWorkspaceID{WorkspaceID: workspaceId},
	)
	if err != nil {
		return nil, err
	}
	if document == nil {
		return nil, apperror.ErrNotFound
	}
	return toDocumentResponse(document), nil
}

// Delete moves the document through deleting and clears its retrieval
// artifacts before the row disappears. Deletion is legal from any state; an
// in-flight ingestion run aborts at its next transition once the status reads
// deleting.
func (s *documentService) Delete(ctx context.Context, workspaceId, id uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	document, err := uow.DocumentRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.ByWorkspaceID{WorkspaceID: workspaceId},
	)
	if err != nil {
		return err
	}
	if document == nil {
		return apperror.ErrNotFound
	}
	if document.Status == entity.DocumentStatusDeleted {
		return nil
	}

	if err := uow.DocumentRepository().UpdateStatus(ctx, id, entity.DocumentStatusDeleting, ""); err != nil {
		return err
	}
	s.publishStatus(ctx, workspaceId, id, entity.DocumentStatusDeleting, "")

	if err := s.vectors.DeleteByDocument(ctx, workspaceId, id); err != nil {
		return err
	}
	if err := s.graphs.DeleteByDocument(ctx, workspaceId, id); err != nil {
		return err
	}
	if err := uow.ChunkRepository().DeleteByDocumentId(ctx, id); err != nil {
		return err
	}

	if err := uow.DocumentRepository().UpdateStatus(ctx, id, entity.DocumentStatusDeleted, ""); err != nil {
		return err
	}
	if err := uow.DocumentRepository().Delete(ctx, id); err != nil {
		return err
	}
	s.publishStatus(ctx, workspaceId, id, entity.DocumentStatusDeleted, "")
	return nil
}

// publishStatus emits a document status event. Event delivery is auxiliary
// and never fails the operation.
func (s *documentService) publishStatus(ctx context.Context, workspaceId, documentId uuid.UUID, status, errorMessage string) {
	if s.eventPublisher == nil {
		return
	}
	evt := events.DocumentStatus(workspaceId, documentId, status, errorMessage)
	if err := s.eventPublisher.Publish(ctx, evt); err != nil {
		s.log.Warn("document_service", "failed to publish status event", map[string]interface{}{
			"document_id": documentId.String(),
			"status":      status,
			"error":       err.Error(),
		})
	}
}

func toDocumentResponse(doc *entity.Document) *dto.DocumentResponse {
	return &dto.DocumentResponse{
		Id:           doc.Id,
		WorkspaceId:  doc.WorkspaceId,
		Filename:     doc.Filename,
		ContentType:  doc.ContentType,
		SizeBytes:    doc.SizeBytes,
		Status:       doc.Status,
		ErrorMessage: doc.ErrorMessage,
		ChunkCount:   doc.ChunkCount,
		CreatedAt:    doc.CreatedAt,
	}
}
