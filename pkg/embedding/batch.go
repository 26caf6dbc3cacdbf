package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"doc-qa-be/pkg/apperr"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/sync/errgroup"
)

// BatchEmbedder fans a batch of texts out to the provider with bounded
// concurrency, retrying transient failures per text. Results keep the
// input order.
type BatchEmbedder struct {
	provider    EmbeddingProvider
	dimension   int
	maxInFlight int
	maxRetries  int
	callTimeout time.Duration

	// first retry delay, grows exponentially after that
	retryInterval time.Duration
}

func NewBatchEmbedder(
	provider EmbeddingProvider,
	dimension int,
	maxInFlight int,
	maxRetries int,
	callTimeout time.Duration,
) *BatchEmbedder {
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &BatchEmbedder{
		provider:      provider,
		dimension:     dimension,
		maxInFlight:   maxInFlight,
		maxRetries:    maxRetries,
		callTimeout:   callTimeout,
		retryInterval: 500 * time.Millisecond,
	}
}

// EmbedOne embeds a single text, retrying provider failures up to the
// attempt budget. A vector of the wrong dimension aborts immediately;
// the provider cannot produce a different one on retry.
func (b *BatchEmbedder) EmbedOne(ctx context.Context, text string, taskType string) ([]float32, error) {
	operation := func() ([]float32, error) {
		callCtx, cancel := context.WithTimeout(ctx, b.callTimeout)
		defer cancel()

		vec, err := b.provider.Generate(callCtx, text, taskType)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, apperr.NewEmbeddingError(apperr.KindProviderTimeout, err)
			}
			return nil, apperr.NewEmbeddingError(apperr.KindProviderFailure, err)
		}
		if len(vec) != b.dimension {
			return nil, backoff.Permanent(apperr.NewEmbeddingError(
				apperr.KindDimensionMismatch,
				fmt.Errorf("provider returned %d dimensions, expected %d", len(vec), b.dimension),
			))
		}
		return vec, nil
	}

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = b.retryInterval

	return backoff.Retry(
		ctx,
		operation,
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(uint(b.maxRetries)),
	)
}

// EmbedAll embeds every text in the batch. The i-th vector in the result
// corresponds to texts[i]. The first text whose attempt budget is
// exhausted fails the whole batch.
func (b *BatchEmbedder) EmbedAll(ctx context.Context, texts []string, taskType string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(b.maxInFlight)

	for i, text := range texts {
		group.Go(func() error {
			vec, err := b.EmbedOne(groupCtx, text, taskType)
			if err != nil {
				return err
			}
			vectors[i] = vec
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// Dimension reports the vector width this embedder enforces.
func (b *BatchEmbedder) Dimension() int { return b.dimension }
