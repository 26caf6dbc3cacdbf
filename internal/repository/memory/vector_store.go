package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"doc-qa-be/internal/constant"
	"doc-qa-be/internal/entity"
	"doc-qa-be/internal/repository/contract"
	"doc-qa-be/pkg/apperr"
)

type memCollection struct {
	dimension int
	metric    string
	records   map[string]*entity.VectorRecord
}

// VectorStore is a process-local store with the same contract as the
// pgvector implementation. Used by tests and store-less deployments.
type VectorStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
}

func NewVectorStore() *VectorStore {
	return &VectorStore{
		collections: make(map[string]*memCollection),
	}
}

var _ contract.VectorStore = (*VectorStore)(nil)

func (s *VectorStore) EnsureCollection(_ context.Context, name string, dimension int, metric string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.collections[name]; ok {
		if c.dimension != dimension || c.metric != metric {
			return apperr.NewStoreError(apperr.KindDimensionConflict,
				fmt.Errorf("collection %q exists with dimension %d metric %q", name, c.dimension, c.metric))
		}
		return nil
	}
	s.collections[name] = &memCollection{
		dimension: dimension,
		metric:    metric,
		records:   make(map[string]*entity.VectorRecord),
	}
	return nil
}

func (s *VectorStore) Upsert(_ context.Context, collection string, records []*entity.VectorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collection]
	if !ok {
		return apperr.NewStoreError(apperr.KindCollectionNotFound,
			fmt.Errorf("collection %q does not exist", collection))
	}
	for _, rec := range records {
		if len(rec.Embedding) != c.dimension {
			return apperr.NewStoreError(apperr.KindDimensionMismatch,
				fmt.Errorf("record %q has vector length %d, collection dimension is %d",
					rec.Id, len(rec.Embedding), c.dimension))
		}
	}
	for _, rec := range records {
		cp := *rec
		c.records[rec.Id] = &cp
	}
	return nil
}

func (s *VectorStore) Search(_ context.Context, collection string, queryVector []float32, topK int) ([]*entity.ScoredRecord, error) {
	if topK <= 0 {
		topK = 5
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok {
		return nil, apperr.NewStoreError(apperr.KindCollectionNotFound,
			fmt.Errorf("collection %q does not exist", collection))
	}
	if len(queryVector) != c.dimension {
		return nil, apperr.NewStoreError(apperr.KindDimensionMismatch,
			fmt.Errorf("query vector length %d, collection dimension is %d", len(queryVector), c.dimension))
	}

	results := make([]*entity.ScoredRecord, 0, len(c.records))
	for _, rec := range c.records {
		score, err := relevance(c.metric, queryVector, rec.Embedding)
		if err != nil {
			return nil, apperr.NewStoreError(apperr.KindStoreQuery, err)
		}
		cp := *rec
		results = append(results, &entity.ScoredRecord{Record: &cp, Score: score})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Record.Id < results[j].Record.Id
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (s *VectorStore) CountRecords(_ context.Context, collection string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok {
		return 0, apperr.NewStoreError(apperr.KindCollectionNotFound,
			fmt.Errorf("collection %q does not exist", collection))
	}
	return int64(len(c.records)), nil
}

// relevance mirrors the pgvector score expressions: higher is always more
// relevant.
func relevance(metric string, a, b []float32) (float64, error) {
	switch metric {
	case constant.MetricCosine:
		return cosineSimilarity(a, b), nil
	case constant.MetricDot:
		return dotProduct(a, b), nil
	case constant.MetricEuclidean:
		return -euclideanDistance(a, b), nil
	default:
		return 0, fmt.Errorf("unknown distance metric %q", metric)
	}
}

func dotProduct(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func cosineSimilarity(a, b []float32) float64 {
	var magA, magB float64
	for i := range a {
		magA += float64(a[i]) * float64(a[i])
		magB += float64(b[i]) * float64(b[i])
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dotProduct(a, b) / (math.Sqrt(magA) * math.Sqrt(magB))
}

func euclideanDistance(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
