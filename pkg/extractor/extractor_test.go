package extractor

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"doc-qa-be/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractInlineData(t *testing.T) {
	ex := NewChunkExtractor(1000, 200)

	chunks, err := ex.Extract(Document{
		SourceId: "doc-1",
		Data:     []byte("A first fact. A second fact. A third fact."),
	})
	require.NoError(t, err)
	require.Len(t, chunks, 1)

	assert.Equal(t, "doc-1", chunks[0].SourceId)
	assert.Equal(t, 0, chunks[0].ChunkIndex)
	assert.Contains(t, chunks[0].Text, "A second fact.")
}

func TestExtractChunkIndexesAreSequential(t *testing.T) {
	ex := NewChunkExtractor(300, 50)

	text := strings.Repeat("Sentences keep arriving until several chunks exist in the output. ", 40)
	chunks, err := ex.Extract(Document{SourceId: "doc-2", Data: []byte(text)})
	require.NoError(t, err)
	require.Greater(t, len(chunks), 2)

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.ChunkIndex)
		assert.Equal(t, "doc-2", chunk.SourceId)
	}
}

func TestExtractWhitespaceOnlyIsEmptyDocument(t *testing.T) {
	ex := NewChunkExtractor(1000, 200)

	_, err := ex.Extract(Document{SourceId: "blank", Data: []byte("   \n\t ")})
	require.Error(t, err)

	var extractionErr *apperr.ExtractionError
	require.True(t, errors.As(err, &extractionErr))
	assert.Equal(t, apperr.KindEmptyDocument, extractionErr.Kind)
	assert.False(t, apperr.Retryable(err))
}

func TestExtractNoDataNoPathIsEmptyDocument(t *testing.T) {
	ex := NewChunkExtractor(1000, 200)

	_, err := ex.Extract(Document{SourceId: "nothing"})

	var extractionErr *apperr.ExtractionError
	require.True(t, errors.As(err, &extractionErr))
	assert.Equal(t, apperr.KindEmptyDocument, extractionErr.Kind)
}

func TestExtractMissingFileIsCorruptDocument(t *testing.T) {
	ex := NewChunkExtractor(1000, 200)

	_, err := ex.Extract(Document{
		SourceId: "gone",
		Path:     filepath.Join(t.TempDir(), "does-not-exist.txt"),
	})

	var extractionErr *apperr.ExtractionError
	require.True(t, errors.As(err, &extractionErr))
	assert.Equal(t, apperr.KindCorruptDocument, extractionErr.Kind)
}

func TestExtractReadsTextFile(t *testing.T) {
	ex := NewChunkExtractor(1000, 200)

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("Facts live in files. Files live on disk."), 0o644))

	chunks, err := ex.Extract(Document{SourceId: "notes.txt", Path: path})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Text, "Files live on disk.")
}

func TestExtractDataTakesPrecedenceOverPath(t *testing.T) {
	ex := NewChunkExtractor(1000, 200)

	path := filepath.Join(t.TempDir(), "stale.txt")
	require.NoError(t, os.WriteFile(path, []byte("Stale file content."), 0o644))

	chunks, err := ex.Extract(Document{
		SourceId: "fresh",
		Path:     path,
		Data:     []byte("Fresh inline content."),
	})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Contains(t, chunks[0].Text, "Fresh inline content.")
	assert.NotContains(t, chunks[0].Text, "Stale")
}

func TestExtractCorruptPDF(t *testing.T) {
	ex := NewChunkExtractor(1000, 200)

	// Valid magic bytes, garbage body
	_, err := ex.Extract(Document{
		SourceId: "broken.pdf",
		Data:     []byte("%PDF-1.7 this is not really a pdf"),
	})
	require.Error(t, err)

	var extractionErr *apperr.ExtractionError
	require.True(t, errors.As(err, &extractionErr))
	assert.Equal(t, apperr.KindCorruptDocument, extractionErr.Kind)
}

func TestExtractBinaryNonPDFIsUnsupported(t *testing.T) {
	ex := NewChunkExtractor(1000, 200)

	_, err := ex.Extract(Document{
		SourceId: "photo.png",
		Data:     []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x01},
	})
	require.Error(t, err)

	var extractionErr *apperr.ExtractionError
	require.True(t, errors.As(err, &extractionErr))
	assert.Equal(t, apperr.KindUnsupportedFormat, extractionErr.Kind)
}
