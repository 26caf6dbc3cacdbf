package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"doc-qa-be/internal/constant"
	"doc-qa-be/internal/entity"
	"doc-qa-be/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedStore(t *testing.T, metric string) *VectorStore {
	t.Helper()
	store := NewVectorStore()
	require.NoError(t, store.EnsureCollection(context.Background(), "docs", 3, metric))
	return store
}

func record(id string, index int, vec []float32) *entity.VectorRecord {
	return &entity.VectorRecord{
		Id:         id,
		SourceId:   "src",
		ChunkIndex: index,
		Text:       "chunk " + id,
		Embedding:  vec,
	}
}

func TestSearchOrdersByDescendingRelevance(t *testing.T) {
	store := seedStore(t, constant.MetricCosine)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "docs", []*entity.VectorRecord{
		record("src:0", 0, []float32{1, 0, 0}),
		record("src:1", 1, []float32{0.7, 0.7, 0}),
		record("src:2", 2, []float32{0, 1, 0}),
	}))

	results, err := store.Search(ctx, "docs", []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "src:0", results[0].Record.Id)
	assert.Equal(t, "src:1", results[1].Record.Id)
	assert.Equal(t, "src:2", results[2].Record.Id)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestSearchSelfSimilarityWinsUnderEveryMetric(t *testing.T) {
	for _, metric := range []string{constant.MetricCosine, constant.MetricDot, constant.MetricEuclidean} {
		t.Run(metric, func(t *testing.T) {
			store := seedStore(t, metric)
			ctx := context.Background()

			target := []float32{0.6, 0.8, 0}
			require.NoError(t, store.Upsert(ctx, "docs", []*entity.VectorRecord{
				record("src:0", 0, []float32{0, 0.2, 0.9}),
				record("src:1", 1, target),
				record("src:2", 2, []float32{0.9, 0, 0.1}),
			}))

			results, err := store.Search(ctx, "docs", target, 1)
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, "src:1", results[0].Record.Id)
		})
	}
}

func TestSearchTieBreaksByAscendingId(t *testing.T) {
	store := seedStore(t, constant.MetricCosine)
	ctx := context.Background()

	same := []float32{1, 0, 0}
	require.NoError(t, store.Upsert(ctx, "docs", []*entity.VectorRecord{
		record("src:2", 2, same),
		record("src:0", 0, same),
		record("src:1", 1, same),
	}))

	results, err := store.Search(ctx, "docs", same, 10)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "src:0", results[0].Record.Id)
	assert.Equal(t, "src:1", results[1].Record.Id)
	assert.Equal(t, "src:2", results[2].Record.Id)
}

func TestSearchReturnsAtMostTopKWithoutPadding(t *testing.T) {
	store := seedStore(t, constant.MetricCosine)
	ctx := context.Background()

	var records []*entity.VectorRecord
	for i := 0; i < 4; i++ {
		records = append(records, record(fmt.Sprintf("src:%d", i), i, []float32{float32(i + 1), 1, 0}))
	}
	require.NoError(t, store.Upsert(ctx, "docs", records))

	results, err := store.Search(ctx, "docs", []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	// Fewer records than topK: return what exists, never pad
	results, err = store.Search(ctx, "docs", []float32{1, 0, 0}, 50)
	require.NoError(t, err)
	assert.Len(t, results, 4)
}

func TestUpsertSameIdsIsIdempotent(t *testing.T) {
	store := seedStore(t, constant.MetricCosine)
	ctx := context.Background()

	batch := []*entity.VectorRecord{
		record("src:0", 0, []float32{1, 0, 0}),
		record("src:1", 1, []float32{0, 1, 0}),
	}
	require.NoError(t, store.Upsert(ctx, "docs", batch))
	require.NoError(t, store.Upsert(ctx, "docs", batch))

	count, err := store.CountRecords(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestUpsertReplacesExistingRecord(t *testing.T) {
	store := seedStore(t, constant.MetricCosine)
	ctx := context.Background()

	require.NoError(t, store.Upsert(ctx, "docs", []*entity.VectorRecord{
		record("src:0", 0, []float32{1, 0, 0}),
	}))

	updated := record("src:0", 0, []float32{0, 1, 0})
	updated.Text = "rewritten"
	require.NoError(t, store.Upsert(ctx, "docs", []*entity.VectorRecord{updated}))

	results, err := store.Search(ctx, "docs", []float32{0, 1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "rewritten", results[0].Record.Text)
}

func TestUpsertRejectsWrongDimension(t *testing.T) {
	store := seedStore(t, constant.MetricCosine)
	ctx := context.Background()

	err := store.Upsert(ctx, "docs", []*entity.VectorRecord{
		record("src:0", 0, []float32{1, 0}),
	})
	require.Error(t, err)

	var storeErr *apperr.StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, apperr.KindDimensionMismatch, storeErr.Kind)

	// Nothing from the failed batch may be visible
	count, err := store.CountRecords(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestEnsureCollectionConflicts(t *testing.T) {
	store := seedStore(t, constant.MetricCosine)
	ctx := context.Background()

	// Same parameters: fine
	require.NoError(t, store.EnsureCollection(ctx, "docs", 3, constant.MetricCosine))

	err := store.EnsureCollection(ctx, "docs", 5, constant.MetricCosine)
	var storeErr *apperr.StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, apperr.KindDimensionConflict, storeErr.Kind)

	err = store.EnsureCollection(ctx, "docs", 3, constant.MetricDot)
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, apperr.KindDimensionConflict, storeErr.Kind)
}

func TestSearchMissingCollection(t *testing.T) {
	store := NewVectorStore()

	_, err := store.Search(context.Background(), "nowhere", []float32{1}, 5)
	var storeErr *apperr.StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, apperr.KindCollectionNotFound, storeErr.Kind)
}
