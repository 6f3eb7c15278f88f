package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type GraphNode struct {
	Id             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	WorkspaceId    uuid.UUID      `gorm:"type:uuid;not null;index:idx_graph_nodes_label,unique,composite:label"`
	CanonicalLabel string         `gorm:"not null;index:idx_graph_nodes_label,unique,composite:label"`
	Label          string         `gorm:"not null"`
	Type           string
	ClusterId      int            `gorm:"default:0"`
	DocumentIds    datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt      time.Time      `gorm:"autoCreateTime"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime"`
}

func (GraphNode) TableName() string {
	return "graph_nodes"
}

type GraphEdge struct {
	Id           uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	WorkspaceId  uuid.UUID      `gorm:"type:uuid;not null;index"`
	SourceNodeId uuid.UUID      `gorm:"type:uuid;not null;index"`
	TargetNodeId uuid.UUID      `gorm:"type:uuid;not null;index"`
	Relation     string         `gorm:"not null"`
	Weight       float64        `gorm:"default:1"`
	DocumentIds  datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt    time.Time      `gorm:"autoCreateTime"`
}

func (GraphEdge) TableName() string {
	return "graph_edges"
}
