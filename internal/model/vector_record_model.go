package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// ChunkRecord persists one embedded passage. Keyed by (collection, record id)
// so upserts by deterministic id replace the previous row.
type ChunkRecord struct {
	CollectionName string          `gorm:"type:varchar(100);primaryKey"`
	RecordId       string          `gorm:"type:varchar(512);primaryKey"`
	SourceId       string          `gorm:"type:varchar(400);not null;index"`
	ChunkIndex     int             `gorm:"not null;default:0"`
	Document       string          `gorm:"type:text"`
	Embedding      pgvector.Vector `gorm:"type:vector(768)"` // dimension must match EMBEDDING_DIM; cmd/migrate recreates the column when they differ
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime"`
}

func (ChunkRecord) TableName() string {
	return "chunk_records"
}

// VectorCollection registers a named collection with its fixed dimension and
// distance metric. All records in chunk_records reference a row here.
type VectorCollection struct {
	Name      string    `gorm:"type:varchar(100);primaryKey"`
	Dimension int       `gorm:"not null"`
	Metric    string    `gorm:"type:varchar(20);not null;default:'cosine'"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (VectorCollection) TableName() string {
	return "vector_collections"
}
