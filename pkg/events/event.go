package events

import (
	"time"

	"github.com/google/uuid"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "DOCUMENT_STATUS").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type codes emitted by the pipelines and the chat engine.
const (
	TypeDocumentStatus  = "DOCUMENT_STATUS"
	TypeWorkspaceStatus = "WORKSPACE_STATUS"
	TypeChatChunk       = "CHAT_CHUNK"
	TypeChatComplete    = "CHAT_COMPLETE"
	TypeChatError       = "CHAT_ERROR"
	TypeChatCancelled   = "CHAT_CANCELLED"
	TypeNoContextFound  = "NO_CONTEXT_FOUND"
)

// BaseEvent is the generic implementation the constructors below produce.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

func newEvent(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{Type: eventType, Data: data, OccurredAt: time.Now()}
}

// DocumentStatus reports a document state transition; errorMessage is empty
// except for the failed status.
func DocumentStatus(workspaceId, documentId uuid.UUID, status, errorMessage string) Event {
	data := map[string]interface{}{
		"workspace_id": workspaceId.String(),
		"document_id":  documentId.String(),
		"status":       status,
	}
	if errorMessage != "" {
		data["error"] = errorMessage
	}
	return newEvent(TypeDocumentStatus, data)
}

func WorkspaceStatus(workspaceId uuid.UUID, status string) Event {
	return newEvent(TypeWorkspaceStatus, map[string]interface{}{
		"workspace_id": workspaceId.String(),
		"status":       status,
	})
}

func ChatChunk(sessionId uuid.UUID, content string) Event {
	return newEvent(TypeChatChunk, map[string]interface{}{
		"session_id": sessionId.String(),
		"content":    content,
	})
}

func ChatComplete(sessionId, messageId uuid.UUID) Event {
	return newEvent(TypeChatComplete, map[string]interface{}{
		"session_id": sessionId.String(),
		"message_id": messageId.String(),
	})
}

func ChatError(sessionId uuid.UUID, message string) Event {
	return newEvent(TypeChatError, map[string]interface{}{
		"session_id": sessionId.String(),
		"error":      message,
	})
}

func ChatCancelled(sessionId uuid.UUID) Event {
	return newEvent(TypeChatCancelled, map[string]interface{}{
		"session_id": sessionId.String(),
	})
}

// NoContextFound signals that retrieval produced nothing above threshold and
// the caller may choose to continue without context.
func NoContextFound(sessionId uuid.UUID, reason string) Event {
	return newEvent(TypeNoContextFound, map[string]interface{}{
		"session_id": sessionId.String(),
		"reason":     reason,
	})
}
