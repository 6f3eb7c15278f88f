package specification

import (
	"gorm.io/gorm"
)

// ByContentHash matches a document by its upload content hash (dedup lookup).
type ByContentHash struct {
	Hash string
}

func (s ByContentHash) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("content_hash = ?", s.Hash)
}

// ByStatus filters documents by processing status.
type ByStatus struct {
	Status string
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}
