package specification

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByID matches a single row by primary key.
type ByID struct {
	ID uuid.UUID
}

func (s ByID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("id = ?", s.ID)
}

// ByIDs matches any row whose primary key is in the set.
type ByIDs struct {
	IDs []uuid.UUID
}

func (s ByIDs) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("id IN ?", s.IDs)
}

// ByWorkspaceID scopes a query to a workspace.
type ByWorkspaceID struct {
	WorkspaceID uuid.UUID
}

func (s ByWorkspaceID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("workspace_id = ?", s.WorkspaceID)
}

// OrderBy sorts on one column.
type OrderBy struct {
	Field string
	Desc  bool
}

func (s OrderBy) Apply(db *gorm.DB) *gorm.DB {
	direction := "ASC"
	if s.Desc {
		direction = "DESC"
	}
	return db.Order(fmt.Sprintf("%s %s", s.Field, direction))
}
