package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-workspace-be/internal/apperror"
	"rag-workspace-be/internal/dto"
	"rag-workspace-be/internal/entity"
	"rag-workspace-be/internal/repository/contract"
	"rag-workspace-be/internal/repository/memory"
	"rag-workspace-be/internal/repository/specification"
	"rag-workspace-be/internal/repository/unitofwork"
	"rag-workspace-be/pkg/embedding"
	"rag-workspace-be/pkg/events"
	"rag-workspace-be/pkg/llm"
	"rag-workspace-be/pkg/rag"
	"rag-workspace-be/pkg/vectorstore"
)

// ---- fakes ----

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*entity.ChatSession
}

func (r *fakeSessionRepo) Create(ctx context.Context, session *entity.ChatSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.Id] = session
	return nil
}

func (r *fakeSessionRepo) Update(ctx context.Context, session *entity.ChatSession) error {
	return r.Create(ctx, session)
}

func (r *fakeSessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *fakeSessionRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, spec := range specs {
		if byId, ok := spec.(specification.ByID); ok {
			return r.sessions[byId.ID], nil
		}
	}
	return nil, nil
}

func (r *fakeSessionRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.ChatSession
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out, nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages []*entity.ChatMessage
}

func (r *fakeMessageRepo) Create(ctx context.Context, message *entity.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	return nil
}

func (r *fakeMessageRepo) DeleteByChatSessionId(ctx context.Context, sessionId uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*entity.ChatMessage
	for _, m := range r.messages {
		if m.ChatSessionId != sessionId {
			kept = append(kept, m)
		}
	}
	r.messages = kept
	return nil
}

func (r *fakeMessageRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.ChatMessage, len(r.messages))
	copy(out, r.messages)
	return out, nil
}

func (r *fakeMessageRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.messages)), nil
}

func (r *fakeMessageRepo) byRole(role string) []*entity.ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.ChatMessage
	for _, m := range r.messages {
		if m.Role == role {
			out = append(out, m)
		}
	}
	return out
}

type fakeConfigRepo struct {
	config *entity.RagConfig
}

func (r *fakeConfigRepo) Create(ctx context.Context, config *entity.RagConfig) error {
	r.config = config
	return nil
}

func (r *fakeConfigRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.RagConfig, error) {
	return r.config, nil
}

type fakeUow struct {
	sessions   *fakeSessionRepo
	messages   *fakeMessageRepo
	configs    *fakeConfigRepo
	workspaces *fakeWorkspaceRepo
	documents  *fakeDocumentRepo
	chunks     *fakeChunkRepo
}

func (u *fakeUow) Begin(ctx context.Context) error { return nil }
func (u *fakeUow) Commit() error                   { return nil }
func (u *fakeUow) Rollback() error                 { return nil }

func (u *fakeUow) WorkspaceRepository() contract.WorkspaceRepository     { return u.workspaces }
func (u *fakeUow) RagConfigRepository() contract.RagConfigRepository     { return u.configs }
func (u *fakeUow) DocumentRepository() contract.DocumentRepository       { return u.documents }
func (u *fakeUow) ChunkRepository() contract.ChunkRepository             { return u.chunks }
func (u *fakeUow) GraphNodeRepository() contract.GraphNodeRepository     { return nil }
func (u *fakeUow) GraphEdgeRepository() contract.GraphEdgeRepository     { return nil }
func (u *fakeUow) ChatSessionRepository() contract.ChatSessionRepository { return u.sessions }
func (u *fakeUow) ChatMessageRepository() contract.ChatMessageRepository { return u.messages }

type fakeUowFactory struct {
	uow *fakeUow
}

func (f *fakeUowFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork { return f.uow }

type fakeVectorStore struct {
	matches []vectorstore.Match
}

func (s *fakeVectorStore) EnsureWorkspace(ctx context.Context, workspaceId uuid.UUID, dimensions int) error {
	return nil
}

func (s *fakeVectorStore) Upsert(ctx context.Context, workspaceId uuid.UUID, chunks []*entity.Chunk) error {
	return nil
}

func (s *fakeVectorStore) Search(ctx context.Context, workspaceId uuid.UUID, vector []float32, limit int, threshold float64) ([]vectorstore.Match, error) {
	return s.matches, nil
}

func (s *fakeVectorStore) DeleteByDocument(ctx context.Context, workspaceId, documentId uuid.UUID) error {
	return nil
}

func (s *fakeVectorStore) DeleteWorkspace(ctx context.Context, workspaceId uuid.UUID) error {
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(ctx context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt.EventType())
	return nil
}

func (p *recordingPublisher) has(eventType string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.events {
		if e == eventType {
			return true
		}
	}
	return false
}

// scriptedProvider streams the given fragments. With block set it emits them
// and then waits for cancellation before reporting the context error.
type scriptedProvider struct {
	fragments []string
	block     bool
}

func (p *scriptedProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return "", nil
}

func (p *scriptedProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return "", nil
}

func (p *scriptedProvider) ChatStream(ctx context.Context, history []llm.Message, options ...llm.Option) (<-chan llm.Fragment, error) {
	out := make(chan llm.Fragment)
	go func() {
		defer close(out)
		for _, content := range p.fragments {
			select {
			case out <- llm.Fragment{Content: content}:
			case <-ctx.Done():
				out <- llm.Fragment{Err: ctx.Err()}
				return
			}
		}
		if p.block {
			<-ctx.Done()
			out <- llm.Fragment{Err: ctx.Err()}
			return
		}
		out <- llm.Fragment{Done: true}
	}()
	return out, nil
}

// ---- harness ----

type chatHarness struct {
	service   IChatService
	sessionId uuid.UUID
	sessions  *fakeSessionRepo
	messages  *fakeMessageRepo
	publisher *recordingPublisher
}

func newChatHarness(t *testing.T, provider llm.Provider, matches []vectorstore.Match) *chatHarness {
	t.Helper()

	workspaceId := uuid.New()
	session := &entity.ChatSession{
		Id:          uuid.New(),
		WorkspaceId: workspaceId,
		CreatedAt:   time.Now(),
	}

	uow := &fakeUow{
		sessions: &fakeSessionRepo{sessions: map[uuid.UUID]*entity.ChatSession{session.Id: session}},
		messages: &fakeMessageRepo{},
		configs: &fakeConfigRepo{config: &entity.RagConfig{
			Id:          uuid.New(),
			WorkspaceId: workspaceId,
			Mode:        entity.RagModeVector,
			Vector: entity.VectorParams{
				Chunker:   "sentence",
				ChunkSize: 500,
				Embedder:  "stub",
				TopK:      3,
			},
		}},
	}

	embedders := embedding.NewRegistry()
	embedders.Register(stubEmbedder{})
	engine := rag.NewEngine(embedders, rag.NewRerankerRegistry(), &fakeVectorStore{matches: matches}, nil, 8000, 0.35, 200)

	publisher := &recordingPublisher{}
	svc := NewChatService(
		&fakeUowFactory{uow: uow},
		engine,
		provider,
		memory.NewLiveStateRepository(),
		nil,
		publisher,
		nopLogger{},
	)

	return &chatHarness{
		service:   svc,
		sessionId: session.Id,
		sessions:  uow.sessions,
		messages:  uow.messages,
		publisher: publisher,
	}
}

func someMatches() []vectorstore.Match {
	return []vectorstore.Match{
		{ChunkId: uuid.New(), DocumentId: uuid.New(), Text: "go routines are lightweight threads", Score: 0.91},
		{ChunkId: uuid.New(), DocumentId: uuid.New(), Text: "channels pass values between goroutines", Score: 0.84},
	}
}

func drain(t *testing.T, fragments <-chan llm.Fragment) (string, llm.Fragment) {
	t.Helper()
	var content string
	var last llm.Fragment
	for f := range fragments {
		last = f
		content += f.Content
	}
	return content, last
}

// ---- tests ----

func TestSendMessagePersistsAssistantOnCompletion(t *testing.T) {
	h := newChatHarness(t, &scriptedProvider{fragments: []string{"Goroutines ", "are cheap."}}, someMatches())

	stream, err := h.service.SendMessage(context.Background(), &dto.SendMessageRequest{
		SessionId: h.sessionId,
		Content:   "what are goroutines?",
	})
	require.NoError(t, err)
	require.False(t, stream.NoContext)

	content, last := drain(t, stream.Fragments)
	require.NoError(t, last.Err)
	assert.True(t, last.Done)
	assert.Equal(t, "Goroutines are cheap.", content)

	assistant := h.messages.byRole(entity.ChatMessageRoleAssistant)
	require.Len(t, assistant, 1)
	assert.Equal(t, "Goroutines are cheap.", assistant[0].Content)
	assert.NotEmpty(t, assistant[0].Provenance)

	require.Len(t, h.messages.byRole(entity.ChatMessageRoleUser), 1)
	assert.True(t, h.publisher.has(events.TypeChatComplete))
	assert.True(t, h.publisher.has(events.TypeChatChunk))
}

func TestSendMessageRejectsConcurrentGeneration(t *testing.T) {
	h := newChatHarness(t, &scriptedProvider{fragments: []string{"thinking"}, block: true}, someMatches())

	stream, err := h.service.SendMessage(context.Background(), &dto.SendMessageRequest{
		SessionId: h.sessionId,
		Content:   "first question",
	})
	require.NoError(t, err)

	_, err = h.service.SendMessage(context.Background(), &dto.SendMessageRequest{
		SessionId: h.sessionId,
		Content:   "impatient second question",
	})
	assert.ErrorIs(t, err, apperror.ErrGenerationInFlight)

	require.True(t, h.service.Cancel(context.Background(), h.sessionId))
	drain(t, stream.Fragments)
}

func TestCancelLeavesNoPartialAssistantMessage(t *testing.T) {
	h := newChatHarness(t, &scriptedProvider{fragments: []string{"partial ", "answer "}, block: true}, someMatches())

	stream, err := h.service.SendMessage(context.Background(), &dto.SendMessageRequest{
		SessionId: h.sessionId,
		Content:   "tell me everything",
	})
	require.NoError(t, err)

	// Let the stream emit its fragments before cancelling.
	deadline := time.Now().Add(2 * time.Second)
	for !h.publisher.has(events.TypeChatChunk) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	require.True(t, h.service.Cancel(context.Background(), h.sessionId))

	_, last := drain(t, stream.Fragments)
	assert.ErrorIs(t, last.Err, apperror.ErrCancelled)

	assert.Empty(t, h.messages.byRole(entity.ChatMessageRoleAssistant))
	require.Len(t, h.messages.byRole(entity.ChatMessageRoleUser), 1)
	assert.True(t, h.publisher.has(events.TypeChatCancelled))

	// The slot is free again once the stream winds down.
	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := h.service.SendMessage(context.Background(), &dto.SendMessageRequest{
			SessionId: h.sessionId,
			Content:   "try again",
		}); err == nil {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("generation slot never freed after cancel")
}

func TestCancelFreesSlotWhenConsumerStopsDraining(t *testing.T) {
	// Enough fragments to overrun the stream buffer many times over.
	contents := make([]string, 40)
	for i := range contents {
		contents[i] = "chunk "
	}
	h := newChatHarness(t, &scriptedProvider{fragments: contents}, someMatches())

	_, err := h.service.SendMessage(context.Background(), &dto.SendMessageRequest{
		SessionId: h.sessionId,
		Content:   "long answer please",
	})
	require.NoError(t, err)

	// Nobody reads the stream. Give the pump time to fill the buffer and
	// block on delivery, then cancel the abandoned generation.
	deadline := time.Now().Add(2 * time.Second)
	for !h.publisher.has(events.TypeChatChunk) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	require.True(t, h.service.Cancel(context.Background(), h.sessionId))

	// The slot must free even though the abandoned stream is never drained.
	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		stream, err := h.service.SendMessage(context.Background(), &dto.SendMessageRequest{
			SessionId: h.sessionId,
			Content:   "follow-up",
		})
		if err == nil {
			drain(t, stream.Fragments)
			return
		}
		require.ErrorIs(t, err, apperror.ErrGenerationInFlight)
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("generation slot never freed after the consumer stopped draining")
}

func TestSendMessageNoContextShortCircuits(t *testing.T) {
	h := newChatHarness(t, &scriptedProvider{fragments: []string{"unused"}}, nil)

	stream, err := h.service.SendMessage(context.Background(), &dto.SendMessageRequest{
		SessionId: h.sessionId,
		Content:   "question with no matching documents",
	})
	require.NoError(t, err)

	assert.True(t, stream.NoContext)
	assert.NotEmpty(t, stream.Reason)
	assert.Nil(t, stream.Fragments)
	assert.True(t, h.publisher.has(events.TypeNoContextFound))

	// The user turn is recorded even when no stream starts.
	require.Len(t, h.messages.byRole(entity.ChatMessageRoleUser), 1)
	assert.Empty(t, h.messages.byRole(entity.ChatMessageRoleAssistant))
}

func TestSendMessageContinueWithoutContext(t *testing.T) {
	h := newChatHarness(t, &scriptedProvider{fragments: []string{"General knowledge answer."}}, nil)

	stream, err := h.service.SendMessage(context.Background(), &dto.SendMessageRequest{
		SessionId:              h.sessionId,
		Content:                "question with no matching documents",
		ContinueWithoutContext: true,
	})
	require.NoError(t, err)
	require.False(t, stream.NoContext)

	content, last := drain(t, stream.Fragments)
	assert.True(t, last.Done)
	assert.Equal(t, "General knowledge answer.", content)

	assistant := h.messages.byRole(entity.ChatMessageRoleAssistant)
	require.Len(t, assistant, 1)
	assert.Empty(t, assistant[0].Provenance)
}

func TestSessionTitleTruncatesOnRuneBoundary(t *testing.T) {
	h := newChatHarness(t, &scriptedProvider{fragments: []string{"ok"}}, someMatches())

	// Multi-byte runes placed so a byte-wise cut would land mid-character.
	question := strings.Repeat("héllo wörld ", 12)
	stream, err := h.service.SendMessage(context.Background(), &dto.SendMessageRequest{
		SessionId: h.sessionId,
		Content:   question,
	})
	require.NoError(t, err)
	drain(t, stream.Fragments)

	session, err := h.sessions.FindOne(context.Background(), specification.ByID{ID: h.sessionId})
	require.NoError(t, err)
	require.NotNil(t, session)

	assert.True(t, utf8.ValidString(session.Title))
	assert.Len(t, []rune(session.Title), maxTitleLength)
	assert.Equal(t, string([]rune(question)[:maxTitleLength]), session.Title)
}

func TestCancelIdleSessionIsNoOp(t *testing.T) {
	h := newChatHarness(t, &scriptedProvider{}, nil)
	assert.False(t, h.service.Cancel(context.Background(), h.sessionId))
}
