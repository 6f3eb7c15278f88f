package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"rag-workspace-be/internal/apperror"
	"rag-workspace-be/internal/dto"
	"rag-workspace-be/internal/entity"
	"rag-workspace-be/internal/pkg/logger"
	"rag-workspace-be/internal/repository/memory"
	"rag-workspace-be/internal/repository/specification"
	"rag-workspace-be/internal/repository/unitofwork"
	"rag-workspace-be/pkg/events"
	"rag-workspace-be/pkg/ingest"
	pkgNats "rag-workspace-be/pkg/nats"
)

type IIngestWorkerService interface {
	Consume(ctx context.Context) error
}

// ingestWorkerService drains the ingestion queue and drives one document at a
// time through the pipeline. A second message for a document whose run is
// still active is acked and dropped; the live state guarantees at most one
// active run per document id.
type ingestWorkerService struct {
	pubSub         *gochannel.GoChannel
	topicName      string
	uowFactory     unitofwork.RepositoryFactory
	pipeline       *ingest.Pipeline
	liveState      *memory.LiveStateRepository
	eventPublisher pkgNats.EventPublisher
	log            logger.ILogger
}

func NewIngestWorkerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	pipeline *ingest.Pipeline,
	liveState *memory.LiveStateRepository,
	eventPublisher pkgNats.EventPublisher,
	log logger.ILogger,
) IIngestWorkerService {
	return &ingestWorkerService{
		pubSub:         pubSub,
		topicName:      topicName,
		uowFactory:     uowFactory,
		pipeline:       pipeline,
		liveState:      liveState,
		eventPublisher: eventPublisher,
		log:            log,
	}
}

func (s *ingestWorkerService) Consume(ctx context.Context) error {
	messages, err := s.pubSub.Subscribe(ctx, s.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			s.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (s *ingestWorkerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.IngestDocumentMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		s.log.Error("ingest_worker", "failed to unmarshal queue message", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack()
		return
	}

	if !s.liveState.TryStartIngestion(payload.DocumentId) {
		// A run is already active for this document; retriggering is a no-op.
		msg.Ack()
		return
	}
	defer s.liveState.FinishIngestion(payload.DocumentId)

	if err := s.runDocument(ctx, payload); err != nil {
		s.log.Error("ingest_worker", "document run failed", map[string]interface{}{
			"document_id": payload.DocumentId.String(),
			"error":       err.Error(),
		})
	}
	// Failures are persisted on the document row; redelivery cannot fix them.
	msg.Ack()
}

func (s *ingestWorkerService) runDocument(ctx context.Context, payload dto.IngestDocumentMessage) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: payload.DocumentId})
	if err != nil {
		return err
	}
	if document == nil {
		s.log.Warn("ingest_worker", "document vanished before ingestion", map[string]interface{}{
			"document_id": payload.DocumentId.String(),
		})
		return nil
	}
	if document.Status != entity.DocumentStatusPending {
		s.log.Info("ingest_worker", "skipping document not in pending state", map[string]interface{}{
			"document_id": document.Id.String(),
			"status":      document.Status,
		})
		return nil
	}

	config, err := uow.RagConfigRepository().FindOne(ctx, specification.ByWorkspaceID{WorkspaceID: payload.WorkspaceId})
	if err != nil {
		return err
	}
	if config == nil {
		return s.markFailed(ctx, uow, payload, "workspace has no retrieval config")
	}

	job := ingest.Job{
		DocumentId:  payload.DocumentId,
		WorkspaceId: payload.WorkspaceId,
		ContentType: payload.ContentType,
		Raw:         payload.Raw,
	}

	hooks := ingest.Hooks{
		OnStatus: func(ctx context.Context, status string) error {
			return s.advanceStatus(ctx, uow, payload, status)
		},
		OnChunks: func(ctx context.Context, chunks []*entity.Chunk) error {
			return s.persistChunks(ctx, uow, payload.DocumentId, chunks)
		},
		OnError: func(chunkIndex int, err error) {
			s.log.Warn("ingest_worker", "extraction failed for chunk", map[string]interface{}{
				"document_id": payload.DocumentId.String(),
				"chunk_index": chunkIndex,
				"error":       err.Error(),
			})
		},
	}

	result, err := s.pipeline.Run(ctx, job, config, hooks)
	if err != nil {
		var transitionErr *ingest.TransitionError
		if errors.As(err, &transitionErr) {
			// The document left the pipeline's hands, most likely a concurrent
			// delete. Nothing to persist.
			s.log.Info("ingest_worker", "run aborted by status change", map[string]interface{}{
				"document_id": payload.DocumentId.String(),
				"error":       err.Error(),
			})
			return nil
		}
		return s.markFailed(ctx, uow, payload, failureMessage(err))
	}

	if err := uow.DocumentRepository().SetChunkCount(ctx, payload.DocumentId, result.ChunkCount); err != nil {
		return err
	}
	if err := s.advanceStatus(ctx, uow, payload, entity.DocumentStatusReady); err != nil {
		return err
	}

	s.log.Info("ingest_worker", "document ready", map[string]interface{}{
		"document_id": payload.DocumentId.String(),
		"chunks":      result.ChunkCount,
		"nodes":       result.NodeCount,
		"edges":       result.EdgeCount,
	})
	return nil
}

// advanceStatus validates the transition against the current row, persists it
// and broadcasts the new status. Reloading catches a concurrent delete.
func (s *ingestWorkerService) advanceStatus(ctx context.Context, uow unitofwork.UnitOfWork, payload dto.IngestDocumentMessage, next string) error {
	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: payload.DocumentId})
	if err != nil {
		return err
	}
	if document == nil {
		return fmt.Errorf("document %s disappeared mid-run", payload.DocumentId)
	}

	if _, err := ingest.Transition(document.Status, next); err != nil {
		return err
	}
	if err := uow.DocumentRepository().UpdateStatus(ctx, payload.DocumentId, next, ""); err != nil {
		return err
	}
	s.publishStatus(ctx, payload.WorkspaceId, payload.DocumentId, next, "")
	return nil
}

func (s *ingestWorkerService) persistChunks(ctx context.Context, uow unitofwork.UnitOfWork, documentId uuid.UUID, chunks []*entity.Chunk) error {
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChunkRepository().DeleteByDocumentId(ctx, documentId); err != nil {
		return err
	}
	if err := uow.ChunkRepository().CreateBulk(ctx, chunks); err != nil {
		return err
	}
	return uow.Commit()
}

func (s *ingestWorkerService) markFailed(ctx context.Context, uow unitofwork.UnitOfWork, payload dto.IngestDocumentMessage, reason string) error {
	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: payload.DocumentId})
	if err != nil {
		return err
	}
	if document == nil || !ingest.CanTransition(document.Status, entity.DocumentStatusFailed) {
		return nil
	}
	if err := uow.DocumentRepository().UpdateStatus(ctx, payload.DocumentId, entity.DocumentStatusFailed, reason); err != nil {
		return err
	}
	s.publishStatus(ctx, payload.WorkspaceId, payload.DocumentId, entity.DocumentStatusFailed, reason)
	return nil
}

// failureMessage keeps the stage prefix so the document row records where the
// run died.
func failureMessage(err error) string {
	var stageErr *apperror.StageError
	if errors.As(err, &stageErr) {
		return stageErr.Error()
	}
	return err.Error()
}

func (s *ingestWorkerService) publishStatus(ctx context.Context, workspaceId, documentId uuid.UUID, status, errorMessage string) {
	if s.eventPublisher == nil {
		return
	}
	evt := events.DocumentStatus(workspaceId, documentId, status, errorMessage)
	if err := s.eventPublisher.Publish(ctx, evt); err != nil {
		s.log.Warn("ingest_worker", "failed to publish status event", map[string]interface{}{
			"document_id": documentId.String(),
			"status":      status,
			"error":       err.Error(),
		})
	}
}
