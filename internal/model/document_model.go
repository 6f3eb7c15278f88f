package model

import (
	"time"

	"github.com/google/uuid"
)

type Document struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	WorkspaceId  uuid.UUID `gorm:"type:uuid;not null;index:idx_documents_workspace;index:idx_documents_hash,unique,composite:hash"`
	Filename     string    `gorm:"not null"`
	ContentType  string
	SizeBytes    int64
	ContentHash  string `gorm:"not null;index:idx_documents_hash,unique,composite:hash"`
	Status       string `gorm:"not null;default:pending"`
	ErrorMessage string
	ChunkCount   int
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (Document) TableName() string {
	return "documents"
}
