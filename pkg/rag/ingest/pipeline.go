package ingest

import (
	"context"
	"fmt"
	"time"

	"doc-qa-be/internal/constant"
	"doc-qa-be/internal/entity"
	"doc-qa-be/internal/repository/contract"
	"doc-qa-be/pkg/embedding"
	"doc-qa-be/pkg/extractor"
)

// Result summarizes one completed ingestion.
type Result struct {
	SourceId   string   `json:"source_id"`
	ChunkCount int      `json:"chunk_count"`
	RecordIDs  []string `json:"record_ids"`
}

// RecordID derives the deterministic store id for a chunk. Re-ingesting
// the same source overwrites the same ids instead of duplicating them.
func RecordID(sourceId string, chunkIndex int) string {
	return fmt.Sprintf("%s:%d", sourceId, chunkIndex)
}

// Pipeline turns a source document into searchable vector records. The
// three stages are exposed separately so the job worker can persist and
// resume them one at a time; Run chains them for synchronous callers.
type Pipeline struct {
	extractor  *extractor.ChunkExtractor
	embedder   *embedding.BatchEmbedder
	store      contract.VectorStore
	collection string
	metric     string
}

func NewPipeline(
	chunkExtractor *extractor.ChunkExtractor,
	embedder *embedding.BatchEmbedder,
	store contract.VectorStore,
	collection string,
	metric string,
) *Pipeline {
	return &Pipeline{
		extractor:  chunkExtractor,
		embedder:   embedder,
		store:      store,
		collection: collection,
		metric:     metric,
	}
}

// ExtractChunks reads the document and splits it into overlapping,
// sentence-aligned chunks.
func (p *Pipeline) ExtractChunks(doc extractor.Document) ([]extractor.Chunk, error) {
	return p.extractor.Extract(doc)
}

// EmbedChunks embeds every chunk, preserving order. The i-th vector
// belongs to chunks[i].
func (p *Pipeline) EmbedChunks(ctx context.Context, chunks []extractor.Chunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}
	return p.embedder.EmbedAll(ctx, texts, constant.TaskTypeDocument)
}

// UpsertRecords writes the embedded chunks into the collection, creating
// it on first use.
func (p *Pipeline) UpsertRecords(ctx context.Context, chunks []extractor.Chunk, vectors [][]float32) (*Result, error) {
	if len(chunks) != len(vectors) {
		return nil, fmt.Errorf("chunk/vector count mismatch: %d vs %d", len(chunks), len(vectors))
	}

	if err := p.store.EnsureCollection(ctx, p.collection, p.embedder.Dimension(), p.metric); err != nil {
		return nil, err
	}

	now := time.Now()
	records := make([]*entity.VectorRecord, len(chunks))
	recordIDs := make([]string, len(chunks))
	var sourceId string
	for i, chunk := range chunks {
		id := RecordID(chunk.SourceId, chunk.ChunkIndex)
		records[i] = &entity.VectorRecord{
			Id:         id,
			SourceId:   chunk.SourceId,
			ChunkIndex: chunk.ChunkIndex,
			Text:       chunk.Text,
			Embedding:  vectors[i],
			CreatedAt:  now,
		}
		recordIDs[i] = id
		sourceId = chunk.SourceId
	}

	if err := p.store.Upsert(ctx, p.collection, records); err != nil {
		return nil, err
	}

	return &Result{
		SourceId:   sourceId,
		ChunkCount: len(chunks),
		RecordIDs:  recordIDs,
	}, nil
}

// Run executes the full pipeline in one call.
func (p *Pipeline) Run(ctx context.Context, doc extractor.Document) (*Result, error) {
	chunks, err := p.ExtractChunks(doc)
	if err != nil {
		return nil, err
	}

	vectors, err := p.EmbedChunks(ctx, chunks)
	if err != nil {
		return nil, err
	}

	return p.UpsertRecords(ctx, chunks, vectors)
}
