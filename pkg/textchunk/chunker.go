// Package textchunk splits transcripts into sentence-aligned, token-bounded
// chunks. Sentences are never split; a single sentence over the budget
// becomes its own oversized chunk.
package textchunk

import (
	"fmt"
	"strings"
	"unicode"

	"worker-transcript/pkg/tokencount"
)

const DefaultMaxTokens = 7000

// SplitSentences tokenizes text into sentences, preserving order. A
// sentence ends at a run of terminal punctuation (. ! ?) followed by
// whitespace or end of input; the punctuation stays with its sentence.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		current.WriteRune(r)

		if r != '.' && r != '!' && r != '?' {
			continue
		}
		// swallow the rest of the punctuation run ("...", "?!")
		for i+1 < len(runes) && isTerminal(runes[i+1]) {
			i++
			current.WriteRune(runes[i])
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

type Chunker struct {
	Counter   tokencount.Counter
	MaxTokens int
}

// Chunk greedily accumulates sentences into chunks of at most MaxTokens
// tokens. Joining the returned chunks with single spaces reproduces the
// original sentence sequence.
func (c Chunker) Chunk(text string) ([]string, error) {
	maxTokens := c.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	sentences := SplitSentences(text)
	var chunks []string
	var current []string
	currentTokens := 0

	for _, sentence := range sentences {
		sentenceTokens, err := c.Counter.Count(sentence)
		if err != nil {
			return nil, fmt.Errorf("count sentence tokens: %w", err)
		}
		if currentTokens+sentenceTokens > maxTokens && len(current) > 0 {
			chunks = append(chunks, strings.Join(current, " "))
			current = current[:0:0]
			currentTokens = 0
		}
		current = append(current, sentence)
		currentTokens += sentenceTokens
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks, nil
}
