package prompt

import (
	"fmt"
	"strings"

	"doc-qa-be/internal/constant"
	"doc-qa-be/pkg/llm"
)

// ContextChunk is one retrieved chunk ready for prompt assembly, already
// sorted by descending relevance.
type ContextChunk struct {
	SourceId string  `json:"source_id"`
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
}

// ContextBuilder assembles retrieved chunks into the grounding block fed
// to the answer model.
type ContextBuilder struct {
	maxChars int
}

func NewContextBuilder(maxChars int) *ContextBuilder {
	return &ContextBuilder{maxChars: maxChars}
}

// Compose joins chunks in relevance order, tagging each with its source.
// Chunks are kept whole: when the next chunk would push the block past
// the character budget, it and everything after it is dropped.
func (b *ContextBuilder) Compose(chunks []ContextChunk) string {
	if len(chunks) == 0 {
		return constant.NoContextMarker
	}

	var block strings.Builder
	for _, chunk := range chunks {
		entry := fmt.Sprintf("[source: %s]\n%s", chunk.SourceId, chunk.Text)

		projected := block.Len() + len(entry)
		if block.Len() > 0 {
			projected += len("\n\n")
		}
		if b.maxChars > 0 && projected > b.maxChars && block.Len() > 0 {
			break
		}

		if block.Len() > 0 {
			block.WriteString("\n\n")
		}
		block.WriteString(entry)
	}

	return block.String()
}

// BuildMessages wraps the context block and question into the chat
// history sent to the model.
func (b *ContextBuilder) BuildMessages(contextBlock string, question string) []llm.Message {
	var user strings.Builder
	user.WriteString("Context:\n")
	user.WriteString(contextBlock)
	user.WriteString("\n\nQuestion: ")
	user.WriteString(question)

	return []llm.Message{
		{Role: "system", Content: constant.AnswerSystemInstruction},
		{Role: "user", Content: user.String()},
	}
}
