package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ChatMessage struct {
	Id            uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ChatSessionId uuid.UUID      `gorm:"type:uuid;not null;index"`
	Role          string         `gorm:"not null"`
	Content       string         `gorm:"type:text"`
	Provenance    datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt     time.Time      `gorm:"autoCreateTime"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
