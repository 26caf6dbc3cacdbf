package integration

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"doc-qa-be/internal/constant"
	"doc-qa-be/internal/entity"
	"doc-qa-be/internal/model"
	"doc-qa-be/internal/repository/implementation"
	"doc-qa-be/pkg/database"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requires a Postgres with the vector extension. Skipped when
// DB_CONNECTION_STRING is not set.
func TestPgVectorStoreRoundTrip(t *testing.T) {
	if err := godotenv.Load("../../.env"); err != nil {
		t.Logf("Warning: Could not load ../../.env: %v", err)
	}
	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("DB_CONNECTION_STRING not set, skipping pgvector integration test")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	require.NoError(t, err)

	require.NoError(t, db.Exec(`CREATE EXTENSION IF NOT EXISTS vector`).Error)
	require.NoError(t, db.AutoMigrate(&model.VectorCollection{}, &model.ChunkRecord{}))

	collection := fmt.Sprintf("it_docs_%d", time.Now().UnixNano())
	defer func() {
		db.Exec(`DELETE FROM chunk_records WHERE collection_name = ?`, collection)
		db.Exec(`DELETE FROM vector_collections WHERE name = ?`, collection)
	}()

	store := implementation.NewPgVectorStore(db)
	ctx := context.Background()

	require.NoError(t, store.EnsureCollection(ctx, collection, 768, constant.MetricCosine))
	// Second ensure with identical parameters is a no-op
	require.NoError(t, store.EnsureCollection(ctx, collection, 768, constant.MetricCosine))

	vec := func(lead float32) []float32 {
		v := make([]float32, 768)
		v[0] = lead
		v[1] = 1 - lead
		return v
	}

	records := []*entity.VectorRecord{
		{Id: "it:0", SourceId: "it", ChunkIndex: 0, Text: "aligned chunk", Embedding: vec(1)},
		{Id: "it:1", SourceId: "it", ChunkIndex: 1, Text: "half aligned", Embedding: vec(0.5)},
		{Id: "it:2", SourceId: "it", ChunkIndex: 2, Text: "orthogonal", Embedding: vec(0)},
	}
	require.NoError(t, store.Upsert(ctx, collection, records))

	// Idempotent re-upsert
	require.NoError(t, store.Upsert(ctx, collection, records))
	count, err := store.CountRecords(ctx, collection)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	results, err := store.Search(ctx, collection, vec(1), 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "it:0", results[0].Record.Id)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}
