package extractor

import (
	"regexp"
	"strings"
)

var sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]+`)

// splitSentences breaks text into trimmed sentences. Trailing text without a
// terminator is kept as a final sentence so no content is dropped.
func splitSentences(text string) []string {
	matches := sentencePattern.FindAllStringIndex(text, -1)

	var sentences []string
	last := 0
	for _, m := range matches {
		if s := strings.TrimSpace(text[m[0]:m[1]]); s != "" {
			sentences = append(sentences, s)
		}
		last = m[1]
	}
	if rest := strings.TrimSpace(text[last:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

// SplitText splits text into sentence-aligned chunks targeting chunkSize
// characters, carrying roughly overlap characters of trailing context into
// the next chunk. Overlap is budgeted in characters but applied at sentence
// granularity, so no sentence is ever cut in half. A single sentence longer
// than chunkSize is emitted as its own oversized chunk rather than truncated.
func SplitText(text string, chunkSize, overlap int) []string {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 0
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	currentLen := 0

	flush := func() {
		if currentLen == 0 {
			return
		}
		chunks = append(chunks, strings.Join(current, " "))
		current, currentLen = overlapTail(current, overlap)
	}

	for _, sentence := range sentences {
		sentenceLen := len([]rune(sentence))
		if currentLen > 0 && currentLen+1+sentenceLen > chunkSize {
			flush()
		}
		if currentLen > 0 {
			currentLen++ // joining space
		}
		current = append(current, sentence)
		currentLen += sentenceLen
	}
	if currentLen > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}

	return chunks
}

// overlapTail returns the trailing sentences whose combined length fits the
// overlap budget, to seed the next chunk.
func overlapTail(sentences []string, overlap int) ([]string, int) {
	if overlap <= 0 {
		return nil, 0
	}

	total := 0
	start := len(sentences)
	for i := len(sentences) - 1; i >= 0; i-- {
		sentenceLen := len([]rune(sentences[i]))
		if total > 0 {
			sentenceLen++ // joining space
		}
		if total+sentenceLen > overlap {
			break
		}
		total += sentenceLen
		start = i
	}
	if start == len(sentences) {
		return nil, 0
	}

	tail := make([]string, len(sentences)-start)
	copy(tail, sentences[start:])
	return tail, total
}
