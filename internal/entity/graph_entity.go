package entity

import (
	"time"

	"github.com/google/uuid"
)

// GraphNode is a deduplicated entity extracted from document chunks.
// CanonicalLabel is the case/whitespace-normalized merge key; nodes extracted
// from several documents accumulate all of their DocumentIds.
type GraphNode struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey"`
	WorkspaceId    uuid.UUID `gorm:"type:uuid;index"`
	CanonicalLabel string
	Label          string
	Type           string
	ClusterId      int
	DocumentIds    []uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}

// GraphEdge is a directed relation between two nodes. Parallel edges with
// different relations between the same pair are allowed.
type GraphEdge struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey"`
	WorkspaceId  uuid.UUID `gorm:"type:uuid;index"`
	SourceNodeId uuid.UUID `gorm:"type:uuid;index"`
	TargetNodeId uuid.UUID `gorm:"type:uuid;index"`
	Relation     string
	Weight       float64
	DocumentIds  []uuid.UUID
	CreatedAt    time.Time
}
