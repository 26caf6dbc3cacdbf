package extractor

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"doc-qa-be/pkg/apperr"
)

// Document is an ingestion input. Data takes precedence over Path when both
// are set; the original bytes are never persisted by this package.
type Document struct {
	SourceId string
	Path     string
	Data     []byte
}

// Chunk is one overlapping span of extracted text, in document order.
type Chunk struct {
	SourceId   string `json:"source_id"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"text"`
}

type ChunkExtractor struct {
	chunkSize    int
	chunkOverlap int
}

func NewChunkExtractor(chunkSize, chunkOverlap int) *ChunkExtractor {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 0
	}
	return &ChunkExtractor{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Extract pulls plain text out of the document and splits it into
// sentence-aligned overlapping chunks. PDFs are extracted page by page;
// anything else is treated as UTF-8 text. The returned slice preserves
// document order and chunk indexes are the deterministic id component.
func (e *ChunkExtractor) Extract(doc Document) ([]Chunk, error) {
	units, err := e.extractUnits(doc)
	if err != nil {
		return nil, err
	}

	var chunks []Chunk
	for _, unit := range units {
		for _, text := range SplitText(unit, e.chunkSize, e.chunkOverlap) {
			chunks = append(chunks, Chunk{
				SourceId:   doc.SourceId,
				ChunkIndex: len(chunks),
				Text:       text,
			})
		}
	}

	if len(chunks) == 0 {
		return nil, apperr.NewExtractionError(apperr.KindEmptyDocument,
			fmt.Errorf("document %q has no extractable text", doc.SourceId))
	}
	return chunks, nil
}

// extractUnits returns the document's logical text units: one per PDF page,
// or the whole content for plain text.
func (e *ChunkExtractor) extractUnits(doc Document) ([]string, error) {
	data := doc.Data
	if data == nil {
		if doc.Path == "" {
			return nil, apperr.NewExtractionError(apperr.KindEmptyDocument,
				fmt.Errorf("document %q has neither data nor path", doc.SourceId))
		}
		var err error
		data, err = os.ReadFile(doc.Path)
		if err != nil {
			return nil, apperr.NewExtractionError(apperr.KindCorruptDocument,
				fmt.Errorf("read %s: %w", doc.Path, err))
		}
	}

	if isPDF(doc, data) {
		return extractPDFPages(data)
	}

	if bytes.ContainsRune(data, 0) {
		return nil, apperr.NewExtractionError(apperr.KindUnsupportedFormat,
			fmt.Errorf("document %q is binary and not a PDF", doc.SourceId))
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return nil, nil
	}
	return []string{text}, nil
}

func isPDF(doc Document, data []byte) bool {
	if strings.EqualFold(filepath.Ext(doc.Path), ".pdf") {
		return true
	}
	return len(data) >= 5 && string(data[:5]) == "%PDF-"
}
