package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Generation tracks one in-flight answer stream for a chat session.
type Generation struct {
	SessionId uuid.UUID
	StartedAt time.Time
	Cancel    context.CancelFunc
}

// LiveStateRepository holds transient per-process state that must not touch
// the database: which sessions have a generation running and which documents
// have an ingestion run active. Entries expire as a safety net in case a
// worker dies without cleaning up.
type LiveStateRepository struct {
	mu          sync.Mutex
	generations *cache.Cache
	ingestions  *cache.Cache
}

func NewLiveStateRepository() *LiveStateRepository {
	return &LiveStateRepository{
		generations: cache.New(30*time.Minute, 5*time.Minute),
		ingestions:  cache.New(2*time.Hour, 10*time.Minute),
	}
}

// TryStartGeneration registers a generation for the session. It returns false
// without registering when one is already running, so a session never has two
// concurrent streams.
func (r *LiveStateRepository) TryStartGeneration(sessionId uuid.UUID, cancel context.CancelFunc) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := sessionId.String()
	if _, found := r.generations.Get(key); found {
		return false
	}
	r.generations.Set(key, &Generation{
		SessionId: sessionId,
		StartedAt: time.Now(),
		Cancel:    cancel,
	}, cache.DefaultExpiration)
	return true
}

// CancelGeneration invokes the stored cancel func if a generation is running.
// It reports whether anything was cancelled; cancelling an idle session is a
// no-op.
func (r *LiveStateRepository) CancelGeneration(sessionId uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := sessionId.String()
	x, found := r.generations.Get(key)
	if !found {
		return false
	}
	gen := x.(*Generation)
	gen.Cancel()
	r.generations.Delete(key)
	return true
}

// FinishGeneration clears the slot once a stream completes or fails.
func (r *LiveStateRepository) FinishGeneration(sessionId uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generations.Delete(sessionId.String())
}

func (r *LiveStateRepository) IsGenerating(sessionId uuid.UUID) bool {
	_, found := r.generations.Get(sessionId.String())
	return found
}

// TryStartIngestion marks a document as having an active pipeline run.
// Returns false if a run is already active for that document.
func (r *LiveStateRepository) TryStartIngestion(documentId uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := documentId.String()
	if _, found := r.ingestions.Get(key); found {
		return false
	}
	r.ingestions.Set(key, time.Now(), cache.DefaultExpiration)
	return true
}

func (r *LiveStateRepository) FinishIngestion(documentId uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ingestions.Delete(documentId.String())
}

func (r *LiveStateRepository) IsIngesting(documentId uuid.UUID) bool {
	_, found := r.ingestions.Get(documentId.String())
	return found
}
