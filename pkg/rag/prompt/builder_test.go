package prompt

import (
	"strings"
	"testing"

	"doc-qa-be/internal/constant"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeEmptyUsesNoContextMarker(t *testing.T) {
	builder := NewContextBuilder(8000)
	assert.Equal(t, constant.NoContextMarker, builder.Compose(nil))
	assert.Equal(t, constant.NoContextMarker, builder.Compose([]ContextChunk{}))
}

func TestComposeTagsEveryChunkWithSource(t *testing.T) {
	builder := NewContextBuilder(8000)

	block := builder.Compose([]ContextChunk{
		{SourceId: "manual.pdf", Text: "Section one.", Score: 0.9},
		{SourceId: "faq.txt", Text: "Answer two.", Score: 0.5},
	})

	assert.Contains(t, block, "[source: manual.pdf]\nSection one.")
	assert.Contains(t, block, "[source: faq.txt]\nAnswer two.")
	assert.Less(t, strings.Index(block, "manual.pdf"), strings.Index(block, "faq.txt"),
		"chunks must stay in relevance order")
}

func TestComposeDropsWholeChunksOverBudget(t *testing.T) {
	long := strings.Repeat("w", 120)
	chunks := []ContextChunk{
		{SourceId: "a", Text: long, Score: 0.9},
		{SourceId: "b", Text: long, Score: 0.8},
		{SourceId: "c", Text: long, Score: 0.7},
	}

	// Budget fits roughly two entries
	builder := NewContextBuilder(300)
	block := builder.Compose(chunks)

	assert.Contains(t, block, "[source: a]")
	assert.Contains(t, block, "[source: b]")
	assert.NotContains(t, block, "[source: c]", "lowest relevance chunk must be dropped whole")
	assert.NotContains(t, block, long[:60]+"\n\n[source: c]")
}

func TestComposeKeepsFirstChunkEvenWhenOversized(t *testing.T) {
	builder := NewContextBuilder(50)
	block := builder.Compose([]ContextChunk{
		{SourceId: "big", Text: strings.Repeat("x", 200), Score: 0.9},
	})

	// An empty context helps nobody: the single best chunk survives the budget
	assert.Contains(t, block, "[source: big]")
}

func TestBuildMessagesShape(t *testing.T) {
	builder := NewContextBuilder(8000)
	messages := builder.BuildMessages("[source: a]\nFact.", "What is the fact?")

	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].Role)
	assert.Equal(t, constant.AnswerSystemInstruction, messages[0].Content)
	assert.Equal(t, "user", messages[1].Role)
	assert.Contains(t, messages[1].Content, "Context:\n[source: a]\nFact.")
	assert.Contains(t, messages[1].Content, "Question: What is the fact?")
}
