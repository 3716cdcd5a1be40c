package service

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"worker-transcript/entities"
	"worker-transcript/pkg/tokencount"
)

// Selector assembles a token-budgeted summarization input from stored
// chunks, most relevant first. Relevance is the dot product of a chunk's
// embedding with the centroid of all embeddings; the unnormalized score is
// the documented default, cosine scoring sits behind Normalize.
type Selector struct {
	Counter   tokencount.Counter
	Normalize bool
}

func (s Selector) Select(chunks []*entities.TranscriptChunk, maxTokens int) (string, error) {
	if len(chunks) == 0 {
		return "", nil
	}

	centroid, err := centroid(chunks)
	if err != nil {
		return "", err
	}

	scored := make([]struct {
		chunk *entities.TranscriptChunk
		score float64
	}, len(chunks))
	for i, chunk := range chunks {
		scored[i].chunk = chunk
		scored[i].score = s.score(chunk.Embedding.Slice(), centroid)
	}

	// stable sort keeps original chunk order on ties, so the output is
	// deterministic for a given input set
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	var parts []string
	currentTokens := 0
	for _, sc := range scored {
		chunkTokens, err := s.Counter.Count(sc.chunk.ChunkText)
		if err != nil {
			return "", fmt.Errorf("count chunk tokens: %w", err)
		}
		if currentTokens+chunkTokens > maxTokens {
			break
		}
		parts = append(parts, sc.chunk.ChunkText)
		currentTokens += chunkTokens
	}

	return strings.TrimSpace(strings.Join(parts, " ")), nil
}

func centroid(chunks []*entities.TranscriptChunk) ([]float64, error) {
	dim := len(chunks[0].Embedding.Slice())
	sums := make([]float64, dim)
	for _, chunk := range chunks {
		vec := chunk.Embedding.Slice()
		if len(vec) != dim {
			return nil, errors.Join(ErrDimensionMismatch,
				fmt.Errorf("chunk %s has dimension %d, expected %d", chunk.ID, len(vec), dim))
		}
		for i, v := range vec {
			sums[i] += float64(v)
		}
	}
	for i := range sums {
		sums[i] /= float64(len(chunks))
	}
	return sums, nil
}

func (s Selector) score(vec []float32, centroid []float64) float64 {
	var dot float64
	for i, v := range vec {
		dot += float64(v) * centroid[i]
	}
	if !s.Normalize {
		return dot
	}

	var vecNorm, centroidNorm float64
	for i, v := range vec {
		vecNorm += float64(v) * float64(v)
		centroidNorm += centroid[i] * centroid[i]
	}
	denom := math.Sqrt(vecNorm) * math.Sqrt(centroidNorm)
	if denom == 0 {
		return 0
	}
	return dot / denom
}
