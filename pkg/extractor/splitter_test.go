package extractor

import (
	"strings"
	"testing"
)

func TestSplitTextShortInput(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantChunks int
	}{
		{
			name:       "single short sentence",
			text:       "Go is a compiled language.",
			wantChunks: 1,
		},
		{
			name:       "few sentences under limit",
			text:       "First point. Second point. Third point.",
			wantChunks: 1,
		},
		{
			name:       "empty input",
			text:       "",
			wantChunks: 0,
		},
		{
			name:       "whitespace only",
			text:       "   \n\t  ",
			wantChunks: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := SplitText(tt.text, 1000, 200)
			if len(chunks) != tt.wantChunks {
				t.Errorf("chunk count = %d, want %d", len(chunks), tt.wantChunks)
			}
		})
	}
}

func TestSplitTextLongInputProducesMultipleChunks(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 60; i++ {
		sb.WriteString("This sentence pads the document with enough text to overflow one chunk. ")
	}
	text := sb.String()

	chunkSize := 1000
	chunks := SplitText(text, chunkSize, 200)

	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks for %d chars, got %d", len(text), len(chunks))
	}

	// No chunk overshoots the size by more than one sentence
	maxSentence := len("This sentence pads the document with enough text to overflow one chunk.")
	for i, chunk := range chunks {
		if len(chunk) > chunkSize+maxSentence {
			t.Errorf("chunk %d length %d exceeds size %d plus sentence slack", i, len(chunk), chunkSize)
		}
	}
}

func TestSplitTextOverlapSharesText(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 60; i++ {
		sb.WriteString("Padding sentence number for the overlap check, repeated many times over. ")
	}
	chunks := SplitText(sb.String(), 1000, 200)

	if len(chunks) < 2 {
		t.Fatalf("need at least 2 chunks, got %d", len(chunks))
	}

	for i := 1; i < len(chunks); i++ {
		// The next chunk must start with trailing sentences of the previous one
		head := strings.TrimSpace(chunks[i])
		firstSentenceEnd := strings.IndexAny(head, ".!?")
		if firstSentenceEnd < 0 {
			continue
		}
		lead := head[:firstSentenceEnd+1]
		if !strings.Contains(chunks[i-1], strings.TrimSpace(lead)) {
			t.Errorf("chunk %d does not share its leading sentence with chunk %d", i, i-1)
		}
	}
}

func TestSplitTextZeroOverlapSharesNothing(t *testing.T) {
	text := strings.Repeat("Alpha beta gamma delta epsilon zeta eta theta iota kappa lambda mu. ", 40)
	chunks := SplitText(text, 500, 0)

	if len(chunks) < 2 {
		t.Fatalf("need at least 2 chunks, got %d", len(chunks))
	}

	total := 0
	for _, chunk := range chunks {
		total += len(chunk)
	}
	// With no overlap the concatenated chunks cannot exceed the input
	if total > len(text) {
		t.Errorf("chunks total %d chars, more than input %d", total, len(text))
	}
}

func TestSplitTextOversizedSentenceIsItsOwnChunk(t *testing.T) {
	giant := strings.Repeat("x", 1500) + "."
	chunks := SplitText("Short intro. "+giant+" Short outro.", 1000, 200)

	found := false
	for _, chunk := range chunks {
		if strings.Contains(chunk, strings.Repeat("x", 1500)) {
			found = true
			break
		}
	}
	if !found {
		t.Error("oversized sentence was dropped instead of emitted as a chunk")
	}
}
