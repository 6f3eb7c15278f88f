package dto

import (
	"time"

	"github.com/google/uuid"

	"rag-workspace-be/internal/entity"
	"rag-workspace-be/pkg/llm"
)

type CreateSessionRequest struct {
	WorkspaceId uuid.UUID `json:"workspace_id" validate:"required"`
}

type CreateSessionResponse struct {
	Id uuid.UUID `json:"id"`
}

type SessionResponse struct {
	Id        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

type ChatMessageResponse struct {
	Id         uuid.UUID                  `json:"id"`
	Role       string                     `json:"role"`
	Content    string                     `json:"content"`
	Provenance []entity.MessageProvenance `json:"provenance,omitempty"`
	CreatedAt  time.Time                  `json:"created_at"`
}

type SendMessageRequest struct {
	SessionId              uuid.UUID `json:"-"`
	Content                string    `json:"content" validate:"required"`
	ContinueWithoutContext bool      `json:"continue_without_context"`
}

// SendMessageStream is the handle SendMessage returns. When NoContext is set
// the stream never started: Fragments is nil and Reason explains why. The
// user message is persisted either way.
type SendMessageStream struct {
	Fragments <-chan llm.Fragment
	NoContext bool
	Reason    string
}
