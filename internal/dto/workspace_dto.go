package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateWorkspaceRequest struct {
	Name   string                  `json:"name" validate:"required,max=120"`
	Config *CreateRagConfigRequest `json:"rag_config" validate:"required"`
}

type CreateWorkspaceResponse struct {
	Id     uuid.UUID          `json:"id"`
	Config *RagConfigResponse `json:"rag_config"`
}

type WorkspaceResponse struct {
	Id        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
