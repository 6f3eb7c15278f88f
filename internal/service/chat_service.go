package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"rag-workspace-be/internal/apperror"
	"rag-workspace-be/internal/cache"
	"rag-workspace-be/internal/dto"
	"rag-workspace-be/internal/entity"
	"rag-workspace-be/internal/pkg/logger"
	"rag-workspace-be/internal/repository/memory"
	"rag-workspace-be/internal/repository/specification"
	"rag-workspace-be/internal/repository/unitofwork"
	"rag-workspace-be/pkg/events"
	"rag-workspace-be/pkg/llm"
	pkgNats "rag-workspace-be/pkg/nats"
	"rag-workspace-be/pkg/rag"
)

const (
	historyWindow  = 20
	maxTitleLength = 60

	systemPromptTemplate = `You are an assistant answering questions about the documents in this workspace.
Ground every answer in the context below. If the context does not cover the question, say so instead of inventing an answer.

Context:
%s`

	systemPromptBare = `You are an assistant answering questions about the documents in this workspace.
No relevant context was found for this question; answer from general knowledge and say that the workspace documents do not cover it.`
)

type IChatService interface {
	CreateSession(ctx context.Context, req *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error)
	ListSessions(ctx context.Context, workspaceId uuid.UUID) ([]*dto.SessionResponse, error)
	History(ctx context.Context, sessionId uuid.UUID) ([]*dto.ChatMessageResponse, error)
	SendMessage(ctx context.Context, req *dto.SendMessageRequest) (*dto.SendMessageStream, error)
	Cancel(ctx context.Context, sessionId uuid.UUID) bool
	DeleteSession(ctx context.Context, sessionId uuid.UUID) error
}

type chatService struct {
	uowFactory     unitofwork.RepositoryFactory
	engine         *rag.Engine
	llmProvider    llm.Provider
	liveState      *memory.LiveStateRepository
	historyCache   *cache.HistoryCache
	eventPublisher pkgNats.EventPublisher
	log            logger.ILogger
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	engine *rag.Engine,
	llmProvider llm.Provider,
	liveState *memory.LiveStateRepository,
	historyCache *cache.HistoryCache,
	eventPublisher pkgNats.EventPublisher,
	log logger.ILogger,
) IChatService {
	return &chatService{
		uowFactory:     uowFactory,
		engine:         engine,
		llmProvider:    llmProvider,
		liveState:      liveState,
		historyCache:   historyCache,
		eventPublisher: eventPublisher,
		log:            log,
	}
}

func (s *chatService) CreateSession(ctx context.Context, req *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	workspace, err := uow.WorkspaceRepository().FindOne(ctx, specification.ByID{ID: req.WorkspaceId})
	if err != nil {
		return nil, err
	}
	if workspace == nil {
		return nil, apperror.ErrNotFound
	}

	session := &entity.ChatSession{
		Id:          uuid.New(),
		WorkspaceId: req.WorkspaceId,
		CreatedAt:   time.Now(),
	}
	if err := uow.ChatSessionRepository().Create(ctx, session); err != nil {
		return nil, err
	}
	return &dto.CreateSessionResponse{Id: session.Id}, nil
}

func (s *chatService) ListSessions(ctx context.Context, workspaceId uuid.UUID) ([]*dto.SessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	sessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.ByWorkspaceID{WorkspaceID: workspaceId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	responses := make([]*dto.SessionResponse, len(sessions))
	for i, session := range sessions {
		responses[i] = &dto.SessionResponse{
			Id:        session.Id,
			Title:     session.Title,
			CreatedAt: session.CreatedAt,
		}
	}
	return responses, nil
}

func (s *chatService) History(ctx context.Context, sessionId uuid.UUID) ([]*dto.ChatMessageResponse, error) {
	messages, err := s.loadHistory(ctx, sessionId)
	if err != nil {
		return nil, err
	}

	responses := make([]*dto.ChatMessageResponse, len(messages))
	for i, msg := range messages {
		responses[i] = &dto.ChatMessageResponse{
			Id:         msg.Id,
			Role:       msg.Role,
			Content:    msg.Content,
			Provenance: msg.Provenance,
			CreatedAt:  msg.CreatedAt,
		}
	}
	return responses, nil
}

// loadHistory serves the recent window from redis when warm, otherwise from
// postgres, warming the cache on the way out.
func (s *chatService) loadHistory(ctx context.Context, sessionId uuid.UUID) ([]*entity.ChatMessage, error) {
	if s.historyCache != nil {
		cached, found, err := s.historyCache.GetHistory(ctx, sessionId)
		if err != nil {
			s.log.Warn("chat_service", "history cache read failed", map[string]interface{}{
				"session_id": sessionId.String(),
				"error":      err.Error(),
			})
		} else if found {
			return cached, nil
		}
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := uow.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: sessionId})
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperror.ErrNotFound
	}

	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	if s.historyCache != nil {
		if err := s.historyCache.SetHistory(ctx, sessionId, messages); err != nil {
			s.log.Warn("chat_service", "history cache write failed", map[string]interface{}{
				"session_id": sessionId.String(),
				"error":      err.Error(),
			})
		}
	}
	return messages, nil
}

// SendMessage runs one chat turn. The user message is persisted immediately;
// the assistant message is persisted only when the stream completes. On error
// or cancellation nothing of the assistant turn survives.
func (s *chatService) SendMessage(ctx context.Context, req *dto.SendMessageRequest) (*dto.SendMessageStream, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: req.SessionId})
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperror.ErrNotFound
	}

	config, err := uow.RagConfigRepository().FindOne(ctx, specification.ByWorkspaceID{WorkspaceID: session.WorkspaceId})
	if err != nil {
		return nil, err
	}
	if config == nil {
		return nil, apperror.ErrNotFound
	}

	// The generation detaches from the request context: the stream keeps
	// running if the HTTP connection drops, and only Cancel stops it early.
	genCtx, cancel := context.WithCancel(context.Background())
	if !s.liveState.TryStartGeneration(req.SessionId, cancel) {
		cancel()
		return nil, apperror.ErrGenerationInFlight
	}

	stream, err := s.startTurn(ctx, genCtx, session, config, req)
	if err != nil {
		s.liveState.FinishGeneration(req.SessionId)
		cancel()
		return nil, err
	}
	if stream.NoContext {
		s.liveState.FinishGeneration(req.SessionId)
		cancel()
	}
	return stream, nil
}

func (s *chatService) startTurn(ctx, genCtx context.Context, session *entity.ChatSession, config *entity.RagConfig, req *dto.SendMessageRequest) (*dto.SendMessageStream, error) {
	history, err := s.loadHistory(ctx, session.Id)
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	userMessage := &entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: session.Id,
		Role:          entity.ChatMessageRoleUser,
		Content:       req.Content,
		CreatedAt:     time.Now(),
	}
	if err := uow.ChatMessageRepository().Create(ctx, userMessage); err != nil {
		return nil, err
	}
	s.invalidateHistory(ctx, session.Id)

	if session.Title == "" {
		s.setTitleFromFirstMessage(ctx, uow, session, req.Content)
	}

	retrieval, err := s.engine.Retrieve(ctx, session.WorkspaceId, config, req.Content)
	if err != nil {
		return nil, err
	}

	var block *rag.ContextBlock
	if retrieval.NoContext {
		if !req.ContinueWithoutContext {
			s.publishEvent(ctx, events.NoContextFound(session.Id, retrieval.Reason))
			return &dto.SendMessageStream{NoContext: true, Reason: retrieval.Reason}, nil
		}
	} else {
		block = s.engine.BuildContext(retrieval.Results)
	}

	messages := buildPrompt(block, history, req.Content)

	fragments, err := s.llmProvider.ChatStream(genCtx, messages)
	if err != nil {
		return nil, err
	}

	out := make(chan llm.Fragment, 16)
	go s.pumpStream(genCtx, session.Id, block, fragments, out)

	return &dto.SendMessageStream{Fragments: out}, nil
}

// pumpStream forwards fragments to the caller and the event bus, accumulating
// the full answer. The assistant message is written exactly once, on Done.
// Delivery never blocks past cancellation: a consumer that stopped draining
// cannot pin the goroutine or the session's generation slot.
func (s *chatService) pumpStream(genCtx context.Context, sessionId uuid.UUID, block *rag.ContextBlock, in <-chan llm.Fragment, out chan<- llm.Fragment) {
	defer close(out)
	defer s.liveState.FinishGeneration(sessionId)

	var answer strings.Builder

	for fragment := range in {
		switch {
		case fragment.Err != nil:
			if errors.Is(fragment.Err, context.Canceled) || errors.Is(genCtx.Err(), context.Canceled) {
				s.publishEvent(context.Background(), events.ChatCancelled(sessionId))
				deliver(genCtx, out, llm.Fragment{Err: apperror.ErrCancelled})
			} else {
				s.publishEvent(context.Background(), events.ChatError(sessionId, fragment.Err.Error()))
				deliver(genCtx, out, fragment)
			}
			return

		case fragment.Done:
			// Persist before attempting delivery so a vanished consumer
			// cannot lose the completed answer.
			messageId, err := s.persistAssistantMessage(sessionId, answer.String(), block)
			if err != nil {
				s.log.Error("chat_service", "failed to persist assistant message", map[string]interface{}{
					"session_id": sessionId.String(),
					"error":      err.Error(),
				})
				s.publishEvent(context.Background(), events.ChatError(sessionId, err.Error()))
				deliver(genCtx, out, llm.Fragment{Err: err})
				return
			}
			s.publishEvent(context.Background(), events.ChatComplete(sessionId, messageId))
			deliver(genCtx, out, fragment)
			return

		default:
			answer.WriteString(fragment.Content)
			s.publishEvent(genCtx, events.ChatChunk(sessionId, fragment.Content))
			if !deliver(genCtx, out, fragment) {
				// The cancelled provider closes its channel shortly; drain it
				// so its goroutine is released too.
				for range in {
				}
				s.publishEvent(context.Background(), events.ChatCancelled(sessionId))
				return
			}
		}
	}

	// Provider closed the channel without a terminal fragment.
	s.publishEvent(context.Background(), events.ChatError(sessionId, "stream ended without completion"))
	deliver(genCtx, out, llm.Fragment{Err: fmt.Errorf("stream ended without completion")})
}

// deliver hands a fragment to the consumer. The buffered attempt comes first
// so a draining consumer always receives terminal fragments even after the
// generation context is cancelled; once the buffer is full, cancellation wins
// over a consumer that went away.
func deliver(genCtx context.Context, out chan<- llm.Fragment, fragment llm.Fragment) bool {
	select {
	case out <- fragment:
		return true
	default:
	}
	select {
	case out <- fragment:
		return true
	case <-genCtx.Done():
		return false
	}
}

func (s *chatService) persistAssistantMessage(sessionId uuid.UUID, content string, block *rag.ContextBlock) (uuid.UUID, error) {
	ctx := context.Background()
	uow := s.uowFactory.NewUnitOfWork(ctx)

	message := &entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: sessionId,
		Role:          entity.ChatMessageRoleAssistant,
		Content:       content,
		Provenance:    provenanceFromBlock(block),
		CreatedAt:     time.Now(),
	}
	if err := uow.ChatMessageRepository().Create(ctx, message); err != nil {
		return uuid.Nil, err
	}
	s.invalidateHistory(ctx, sessionId)
	return message.Id, nil
}

func (s *chatService) setTitleFromFirstMessage(ctx context.Context, uow unitofwork.UnitOfWork, session *entity.ChatSession, content string) {
	title := strings.TrimSpace(content)
	// Truncate on rune boundaries; slicing bytes could split a multi-byte
	// character.
	if runes := []rune(title); len(runes) > maxTitleLength {
		title = string(runes[:maxTitleLength])
	}
	session.Title = title
	if err := uow.ChatSessionRepository().Update(ctx, session); err != nil {
		s.log.Warn("chat_service", "failed to set session title", map[string]interface{}{
			"session_id": session.Id.String(),
			"error":      err.Error(),
		})
	}
}

// Cancel stops an in-flight generation. Cancelling an idle session reports
// false and changes nothing.
func (s *chatService) Cancel(ctx context.Context, sessionId uuid.UUID) bool {
	return s.liveState.CancelGeneration(sessionId)
}

func (s *chatService) DeleteSession(ctx context.Context, sessionId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := uow.ChatSessionRepository().FindOne(ctx, specification.ByID{ID: sessionId})
	if err != nil {
		return err
	}
	if session == nil {
		return apperror.ErrNotFound
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChatMessageRepository().DeleteByChatSessionId(ctx, sessionId); err != nil {
		return err
	}
	if err := uow.ChatSessionRepository().Delete(ctx, sessionId); err != nil {
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	s.invalidateHistory(ctx, sessionId)
	return nil
}

func (s *chatService) invalidateHistory(ctx context.Context, sessionId uuid.UUID) {
	if s.historyCache == nil {
		return
	}
	if err := s.historyCache.DeleteHistory(ctx, sessionId); err != nil {
		s.log.Warn("chat_service", "history cache invalidation failed", map[string]interface{}{
			"session_id": sessionId.String(),
			"error":      err.Error(),
		})
	}
}

func (s *chatService) publishEvent(ctx context.Context, evt events.Event) {
	if s.eventPublisher == nil {
		return
	}
	if err := s.eventPublisher.Publish(ctx, evt); err != nil {
		s.log.Warn("chat_service", "failed to publish chat event", map[string]interface{}{
			"event": evt.EventType(),
			"error": err.Error(),
		})
	}
}

// buildPrompt assembles the system prompt, the trailing history window and
// the new user turn.
func buildPrompt(block *rag.ContextBlock, history []*entity.ChatMessage, content string) []llm.Message {
	var messages []llm.Message

	if block != nil && block.Text != "" {
		messages = append(messages, llm.Message{
			Role:    llm.RoleSystem,
			Content: fmt.Sprintf(systemPromptTemplate, block.Text),
		})
	} else {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPromptBare})
	}

	start := 0
	if len(history) > historyWindow {
		start = len(history) - historyWindow
	}
	for _, msg := range history[start:] {
		role := llm.RoleUser
		if msg.Role == entity.ChatMessageRoleAssistant {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: msg.Content})
	}

	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: content})
	return messages
}

func provenanceFromBlock(block *rag.ContextBlock) []entity.MessageProvenance {
	if block == nil || len(block.Provenance) == 0 {
		return nil
	}
	provenance := make([]entity.MessageProvenance, len(block.Provenance))
	for i, p := range block.Provenance {
		entry := entity.MessageProvenance{
			DocumentId: p.DocumentId,
			Score:      p.Score,
		}
		if p.ChunkId != nil {
			entry.ChunkId = *p.ChunkId
		}
		if p.NodeId != nil {
			entry.NodeId = *p.NodeId
		}
		provenance[i] = entry
	}
	return provenance
}
