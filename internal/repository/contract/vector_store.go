package contract

import (
	"context"

	"doc-qa-be/internal/entity"
)

// VectorStore persists (id, vector, payload) triples in named collections
// and answers nearest-neighbor queries. Implementations must normalize
// scores so results always sort by descending relevance, with ties broken
// by ascending record id.
type VectorStore interface {
	// EnsureCollection creates the collection if absent. An existing
	// collection with a different dimension or metric is a
	// StoreError(DIMENSION_CONFLICT).
	EnsureCollection(ctx context.Context, name string, dimension int, metric string) error

	// Upsert inserts or replaces records by id. A vector whose length
	// disagrees with the collection dimension fails the whole batch with
	// StoreError(DIMENSION_MISMATCH); a partially applied batch reports
	// the failing ids via StoreError(PARTIAL_UPSERT).
	Upsert(ctx context.Context, collection string, records []*entity.VectorRecord) error

	// Search returns up to topK records ordered by descending relevance.
	Search(ctx context.Context, collection string, queryVector []float32, topK int) ([]*entity.ScoredRecord, error)

	// CountRecords reports the number of records in a collection.
	CountRecords(ctx context.Context, collection string) (int64, error)
}
