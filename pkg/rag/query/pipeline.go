package query

import (
	"context"
	"errors"
	"time"

	"doc-qa-be/internal/constant"
	"doc-qa-be/internal/repository/contract"
	"doc-qa-be/pkg/apperr"
	"doc-qa-be/pkg/embedding"
	"doc-qa-be/pkg/llm"
	"doc-qa-be/pkg/rag/prompt"
)

// AnswerResult is the final payload of one answered question.
type AnswerResult struct {
	Answer  string                `json:"answer"`
	Sources []prompt.ContextChunk `json:"sources"`
}

// Pipeline answers a question against the ingested corpus. Stages are
// exposed separately for the job worker; Run chains them.
type Pipeline struct {
	embedder    *embedding.BatchEmbedder
	store       contract.VectorStore
	provider    llm.LLMProvider
	builder     *prompt.ContextBuilder
	collection  string
	defaultTopK int
	scoreFloor  float64
	temperature float64
	maxTokens   int
	callTimeout time.Duration
}

func NewPipeline(
	embedder *embedding.BatchEmbedder,
	store contract.VectorStore,
	provider llm.LLMProvider,
	builder *prompt.ContextBuilder,
	collection string,
	defaultTopK int,
	scoreFloor float64,
	temperature float64,
	maxTokens int,
	callTimeout time.Duration,
) *Pipeline {
	return &Pipeline{
		embedder:    embedder,
		store:       store,
		provider:    provider,
		builder:     builder,
		collection:  collection,
		defaultTopK: defaultTopK,
		scoreFloor:  scoreFloor,
		temperature: temperature,
		maxTokens:   maxTokens,
		callTimeout: callTimeout,
	}
}

// EmbedQuestion embeds the question with the retrieval-query task type.
func (p *Pipeline) EmbedQuestion(ctx context.Context, question string) ([]float32, error) {
	return p.embedder.EmbedOne(ctx, question, constant.TaskTypeQuery)
}

// SearchChunks retrieves the topK most relevant chunks. A non-zero score
// floor drops anything below it; the floor is off by default because dot and
// euclidean relevance scores are legitimately negative. An empty result is
// not an error; the answer stage handles it with the no-context marker.
func (p *Pipeline) SearchChunks(ctx context.Context, queryVector []float32, topK int) ([]prompt.ContextChunk, error) {
	if topK <= 0 {
		topK = p.defaultTopK
	}

	scored, err := p.store.Search(ctx, p.collection, queryVector, topK)
	if err != nil {
		// A missing collection just means nothing was ingested yet
		var se *apperr.StoreError
		if errors.As(err, &se) && se.Kind == apperr.KindCollectionNotFound {
			return nil, nil
		}
		return nil, err
	}

	chunks := make([]prompt.ContextChunk, 0, len(scored))
	for _, record := range scored {
		if p.scoreFloor != 0 && record.Score < p.scoreFloor {
			continue
		}
		chunks = append(chunks, prompt.ContextChunk{
			SourceId: record.Record.SourceId,
			Text:     record.Record.Text,
			Score:    record.Score,
		})
	}
	return chunks, nil
}

// ComposeContext assembles the retrieved chunks into the grounding block.
func (p *Pipeline) ComposeContext(chunks []prompt.ContextChunk) string {
	return p.builder.Compose(chunks)
}

// GenerateAnswer asks the model, constrained to the supplied context. The
// call runs under the configured generation timeout.
func (p *Pipeline) GenerateAnswer(ctx context.Context, question string, contextBlock string) (string, error) {
	messages := p.builder.BuildMessages(contextBlock, question)

	if p.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.callTimeout)
		defer cancel()
	}

	answer, err := p.provider.Chat(ctx, messages,
		llm.WithTemperature(p.temperature),
		llm.WithMaxTokens(p.maxTokens),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", apperr.NewGenerationError(apperr.KindProviderTimeout, err)
		}
		return "", apperr.NewGenerationError(apperr.KindProviderFailure, err)
	}
	return answer, nil
}

// Run executes the full pipeline in one call.
func (p *Pipeline) Run(ctx context.Context, question string, topK int) (*AnswerResult, error) {
	vector, err := p.EmbedQuestion(ctx, question)
	if err != nil {
		return nil, err
	}

	chunks, err := p.SearchChunks(ctx, vector, topK)
	if err != nil {
		return nil, err
	}

	contextBlock := p.ComposeContext(chunks)

	answer, err := p.GenerateAnswer(ctx, question, contextBlock)
	if err != nil {
		return nil, err
	}

	return &AnswerResult{
		Answer:  answer,
		Sources: chunks,
	}, nil
}
