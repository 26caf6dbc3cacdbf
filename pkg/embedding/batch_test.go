package embedding

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"doc-qa-be/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider returns deterministic vectors keyed by input text, failing a
// configurable number of times per text first.
type fakeProvider struct {
	mu           sync.Mutex
	dimension    int
	failuresLeft map[string]int
	calls        map[string]int

	inFlight    int32
	maxInFlight int32
}

func newFakeProvider(dimension int) *fakeProvider {
	return &fakeProvider{
		dimension:    dimension,
		failuresLeft: make(map[string]int),
		calls:        make(map[string]int),
	}
}

func (p *fakeProvider) Generate(ctx context.Context, text string, taskType string) ([]float32, error) {
	current := atomic.AddInt32(&p.inFlight, 1)
	defer atomic.AddInt32(&p.inFlight, -1)
	for {
		observed := atomic.LoadInt32(&p.maxInFlight)
		if current <= observed || atomic.CompareAndSwapInt32(&p.maxInFlight, observed, current) {
			break
		}
	}

	// Hold the slot briefly so concurrent calls overlap
	time.Sleep(5 * time.Millisecond)

	p.mu.Lock()
	p.calls[text]++
	if p.failuresLeft[text] > 0 {
		p.failuresLeft[text]--
		p.mu.Unlock()
		return nil, errors.New("provider hiccup")
	}
	p.mu.Unlock()

	vec := make([]float32, p.dimension)
	vec[0] = float32(len(text))
	return vec, nil
}

func newTestEmbedder(provider EmbeddingProvider, dimension, maxInFlight, maxRetries int) *BatchEmbedder {
	embedder := NewBatchEmbedder(provider, dimension, maxInFlight, maxRetries, time.Second)
	embedder.retryInterval = time.Millisecond
	return embedder
}

func TestEmbedAllPreservesOrderAndLength(t *testing.T) {
	provider := newFakeProvider(4)
	embedder := newTestEmbedder(provider, 4, 2, 3)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vectors, err := embedder.EmbedAll(context.Background(), texts, "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))

	for i, text := range texts {
		assert.Equal(t, float32(len(text)), vectors[i][0], "vector %d belongs to wrong text", i)
		assert.Len(t, vectors[i], 4)
	}
}

func TestEmbedOneRetriesUntilSuccess(t *testing.T) {
	provider := newFakeProvider(4)
	provider.failuresLeft["stubborn"] = 2
	embedder := newTestEmbedder(provider, 4, 1, 3)

	vec, err := embedder.EmbedOne(context.Background(), "stubborn", "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	assert.Len(t, vec, 4)
	assert.Equal(t, 3, provider.calls["stubborn"])
}

func TestEmbedOneExhaustsRetryBudget(t *testing.T) {
	provider := newFakeProvider(4)
	provider.failuresLeft["doomed"] = 10
	embedder := newTestEmbedder(provider, 4, 1, 3)

	_, err := embedder.EmbedOne(context.Background(), "doomed", "RETRIEVAL_DOCUMENT")
	require.Error(t, err)

	var embeddingErr *apperr.EmbeddingError
	require.True(t, errors.As(err, &embeddingErr))
	assert.Equal(t, apperr.KindProviderFailure, embeddingErr.Kind)
	assert.Equal(t, 3, provider.calls["doomed"])
}

func TestEmbedOneDimensionMismatchAbortsWithoutRetry(t *testing.T) {
	provider := newFakeProvider(16) // provider disagrees with embedder
	embedder := newTestEmbedder(provider, 4, 1, 3)

	_, err := embedder.EmbedOne(context.Background(), "wide", "RETRIEVAL_DOCUMENT")
	require.Error(t, err)

	var embeddingErr *apperr.EmbeddingError
	require.True(t, errors.As(err, &embeddingErr))
	assert.Equal(t, apperr.KindDimensionMismatch, embeddingErr.Kind)
	assert.False(t, apperr.Retryable(err))
	assert.Equal(t, 1, provider.calls["wide"], "dimension mismatch must not be retried")
}

func TestEmbedAllFailureFailsBatch(t *testing.T) {
	provider := newFakeProvider(4)
	provider.failuresLeft["poison"] = 10
	embedder := newTestEmbedder(provider, 4, 2, 2)

	_, err := embedder.EmbedAll(context.Background(), []string{"fine", "poison", "also fine"}, "RETRIEVAL_DOCUMENT")
	require.Error(t, err)

	var embeddingErr *apperr.EmbeddingError
	assert.True(t, errors.As(err, &embeddingErr))
}

func TestEmbedAllRespectsConcurrencyCap(t *testing.T) {
	provider := newFakeProvider(4)
	embedder := newTestEmbedder(provider, 4, 2, 1)

	texts := make([]string, 20)
	for i := range texts {
		texts[i] = fmt.Sprintf("text-%d", i)
	}

	_, err := embedder.EmbedAll(context.Background(), texts, "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)

	assert.LessOrEqual(t, provider.maxInFlight, int32(2), "in-flight calls exceeded the cap")
}
