package entity

import "time"

// VectorRecord is one persisted passage. The Id is derived from the source
// document and chunk position ("<sourceId>:<chunkIndex>"), which makes
// re-ingestion overwrite instead of duplicate.
type VectorRecord struct {
	Id         string
	SourceId   string
	ChunkIndex int
	Text       string
	Embedding  []float32
	CreatedAt  time.Time
	UpdatedAt  *time.Time
}

// ScoredRecord pairs a record with its normalized relevance score.
// Higher is always more relevant regardless of the collection metric.
type ScoredRecord struct {
	Record *VectorRecord
	Score  float64
}

type Collection struct {
	Name      string
	Dimension int
	Metric    string
	CreatedAt time.Time
}
