package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rag-workspace-be/internal/dto"
	"rag-workspace-be/internal/entity"
	"rag-workspace-be/internal/repository/contract"
	"rag-workspace-be/internal/repository/specification"
	"rag-workspace-be/pkg/events"
	"rag-workspace-be/pkg/graphstore"
)

// ---- fakes ----

type fakeWorkspaceRepo struct {
	workspaces map[uuid.UUID]*entity.Workspace
}

func (r *fakeWorkspaceRepo) Create(ctx context.Context, workspace *entity.Workspace) error {
	r.workspaces[workspace.Id] = workspace
	return nil
}

func (r *fakeWorkspaceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(r.workspaces, id)
	return nil
}

func (r *fakeWorkspaceRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Workspace, error) {
	for _, spec := range specs {
		if byId, ok := spec.(specification.ByID); ok {
			return r.workspaces[byId.ID], nil
		}
	}
	return nil, nil
}

func (r *fakeWorkspaceRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Workspace, error) {
	var out []*entity.Workspace
	for _, w := range r.workspaces {
		out = append(out, w)
	}
	return out, nil
}

// fakeDocumentRepo mirrors the Postgres behavior the service depends on: a
// unique (workspace_id, content_hash) slot that stays occupied until the row
// is removed outright.
type fakeDocumentRepo struct {
	mu        sync.Mutex
	documents map[uuid.UUID]*entity.Document
	hashSlots map[string]uuid.UUID
}

func newFakeDocumentRepo() *fakeDocumentRepo {
	return &fakeDocumentRepo{
		documents: make(map[uuid.UUID]*entity.Document),
		hashSlots: make(map[string]uuid.UUID),
	}
}

func hashSlotKey(workspaceId uuid.UUID, hash string) string {
	return workspaceId.String() + "/" + hash
}

func (r *fakeDocumentRepo) Create(ctx context.Context, document *entity.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := hashSlotKey(document.WorkspaceId, document.ContentHash)
	if _, taken := r.hashSlots[key]; taken {
		return fmt.Errorf("duplicate key value violates unique constraint %q", "idx_documents_hash")
	}
	r.hashSlots[key] = document.Id
	r.documents[document.Id] = document
	return nil
}

func (r *fakeDocumentRepo) Update(ctx context.Context, document *entity.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.documents[document.Id] = document
	return nil
}

func (r *fakeDocumentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc, ok := r.documents[id]; ok {
		doc.Status = status
		doc.ErrorMessage = errorMessage
	}
	return nil
}

func (r *fakeDocumentRepo) SetChunkCount(ctx context.Context, id uuid.UUID, count int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc, ok := r.documents[id]; ok {
		doc.ChunkCount = count
	}
	return nil
}

func (r *fakeDocumentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc, ok := r.documents[id]; ok {
		delete(r.hashSlots, hashSlotKey(doc.WorkspaceId, doc.ContentHash))
		delete(r.documents, id)
	}
	return nil
}

func (r *fakeDocumentRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, doc := range r.documents {
		if documentMatches(doc, specs) {
			return doc, nil
		}
	}
	return nil, nil
}

func (r *fakeDocumentRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Document
	for _, doc := range r.documents {
		if documentMatches(doc, specs) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (r *fakeDocumentRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	docs, _ := r.FindAll(ctx, specs...)
	return int64(len(docs)), nil
}

func documentMatches(doc *entity.Document, specs []specification.Specification) bool {
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			if doc.Id != s.ID {
				return false
			}
		case specification.ByWorkspaceID:
			if doc.WorkspaceId != s.WorkspaceID {
				return false
			}
		case specification.ByContentHash:
			if doc.ContentHash != s.Hash {
				return false
			}
		case specification.ByStatus:
			if doc.Status != s.Status {
				return false
			}
		}
	}
	return true
}

type fakeChunkRepo struct {
	mu      sync.Mutex
	deleted []uuid.UUID
}

func (r *fakeChunkRepo) CreateBulk(ctx context.Context, chunks []*entity.Chunk) error { return nil }
func (r *fakeChunkRepo) Upsert(ctx context.Context, chunk *entity.Chunk) error        { return nil }

func (r *fakeChunkRepo) DeleteByDocumentId(ctx context.Context, documentId uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, documentId)
	return nil
}

func (r *fakeChunkRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Chunk, error) {
	return nil, nil
}

func (r *fakeChunkRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return 0, nil
}

func (r *fakeChunkRepo) SearchSimilar(ctx context.Context, embedding []float32, limit int, workspaceId uuid.UUID, threshold float64) ([]*contract.ScoredChunk, error) {
	return nil, nil
}

type fakeGraphNodeRepo struct{}

func (fakeGraphNodeRepo) UpsertByLabel(ctx context.Context, node *entity.GraphNode) error { return nil }
func (fakeGraphNodeRepo) UpdateCluster(ctx context.Context, id uuid.UUID, clusterId int) error {
	return nil
}
func (fakeGraphNodeRepo) RemoveDocumentRef(ctx context.Context, documentId uuid.UUID) error {
	return nil
}
func (fakeGraphNodeRepo) DeleteOrphans(ctx context.Context, workspaceId uuid.UUID) error { return nil }
func (fakeGraphNodeRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.GraphNode, error) {
	return nil, nil
}
func (fakeGraphNodeRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.GraphNode, error) {
	return nil, nil
}
func (fakeGraphNodeRepo) FindByLabelSimilarity(ctx context.Context, workspaceId uuid.UUID, term string, limit int) ([]*entity.GraphNode, error) {
	return nil, nil
}
func (fakeGraphNodeRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return 0, nil
}

type fakeGraphEdgeRepo struct{}

func (fakeGraphEdgeRepo) Upsert(ctx context.Context, edge *entity.GraphEdge) error { return nil }
func (fakeGraphEdgeRepo) RemoveDocumentRef(ctx context.Context, documentId uuid.UUID) error {
	return nil
}
func (fakeGraphEdgeRepo) DeleteOrphans(ctx context.Context, workspaceId uuid.UUID) error { return nil }
func (fakeGraphEdgeRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.GraphEdge, error) {
	return nil, nil
}
func (fakeGraphEdgeRepo) FindByNodeIds(ctx context.Context, workspaceId uuid.UUID, nodeIds []uuid.UUID) ([]*entity.GraphEdge, error) {
	return nil, nil
}
func (fakeGraphEdgeRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return 0, nil
}

type fakeQueuePublisher struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (p *fakeQueuePublisher) Publish(ctx context.Context, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	return nil
}

func (p *fakeQueuePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.payloads)
}

// ---- harness ----

type documentHarness struct {
	service     IDocumentService
	workspaceId uuid.UUID
	documents   *fakeDocumentRepo
	chunks      *fakeChunkRepo
	queue       *fakeQueuePublisher
	publisher   *recordingPublisher
}

func newDocumentHarness(t *testing.T) *documentHarness {
	t.Helper()

	workspace := &entity.Workspace{Id: uuid.New(), Name: "notes", CreatedAt: time.Now()}
	uow := &fakeUow{
		workspaces: &fakeWorkspaceRepo{workspaces: map[uuid.UUID]*entity.Workspace{workspace.Id: workspace}},
		documents:  newFakeDocumentRepo(),
		chunks:     &fakeChunkRepo{},
	}

	queue := &fakeQueuePublisher{}
	publisher := &recordingPublisher{}
	svc := NewDocumentService(
		&fakeUowFactory{uow: uow},
		queue,
		publisher,
		&fakeVectorStore{},
		graphstore.NewStore(fakeGraphNodeRepo{}, fakeGraphEdgeRepo{}),
		nopLogger{},
	)

	return &documentHarness{
		service:     svc,
		workspaceId: workspace.Id,
		documents:   uow.documents,
		chunks:      uow.chunks,
		queue:       queue,
		publisher:   publisher,
	}
}

// ---- tests ----

func TestUploadDeduplicatesIdenticalContent(t *testing.T) {
	h := newDocumentHarness(t)
	data := []byte("the same bytes twice")

	first, err := h.service.Upload(context.Background(), &dto.UploadDocumentRequest{
		WorkspaceId: h.workspaceId,
		Filename:    "notes.txt",
		ContentType: "text/plain",
		Data:        data,
	})
	require.NoError(t, err)
	assert.False(t, first.IsDuplicate)

	second, err := h.service.Upload(context.Background(), &dto.UploadDocumentRequest{
		WorkspaceId: h.workspaceId,
		Filename:    "renamed.txt",
		ContentType: "text/plain",
		Data:        data,
	})
	require.NoError(t, err)
	assert.True(t, second.IsDuplicate)
	assert.Equal(t, first.Id, second.Id)

	// Only the first upload reaches the ingestion queue.
	assert.Equal(t, 1, h.queue.count())
}

func TestUploadAfterDeleteAcceptsSameContent(t *testing.T) {
	h := newDocumentHarness(t)
	data := []byte("delete me, then bring me back")

	first, err := h.service.Upload(context.Background(), &dto.UploadDocumentRequest{
		WorkspaceId: h.workspaceId,
		Filename:    "doc.md",
		ContentType: "text/markdown",
		Data:        data,
	})
	require.NoError(t, err)

	require.NoError(t, h.service.Delete(context.Background(), h.workspaceId, first.Id))

	// The row and its hash slot are gone, artifacts included.
	assert.Empty(t, h.documents.documents)
	assert.Empty(t, h.documents.hashSlots)
	assert.Contains(t, h.chunks.deleted, first.Id)
	assert.True(t, h.publisher.has(events.TypeDocumentStatus))

	// Byte-identical content uploads again as a brand-new document.
	again, err := h.service.Upload(context.Background(), &dto.UploadDocumentRequest{
		WorkspaceId: h.workspaceId,
		Filename:    "doc.md",
		ContentType: "text/markdown",
		Data:        data,
	})
	require.NoError(t, err)
	assert.False(t, again.IsDuplicate)
	assert.NotEqual(t, first.Id, again.Id)
	assert.Equal(t, entity.DocumentStatusPending, again.Status)
}
