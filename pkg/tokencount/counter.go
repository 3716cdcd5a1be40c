// Package tokencount provides the token counting schemes used for chunk
// budgets. A deployment picks exactly one scheme; the same Counter instance
// is injected into every component that measures text so chunk production
// and read-time budgeting can never disagree.
package tokencount

import (
	"fmt"

	"github.com/sugarme/tokenizer"
	"github.com/sugarme/tokenizer/pretrained"
)

const (
	SchemeHeuristic = "heuristic"
	SchemeExact     = "exact"
)

type Counter interface {
	Count(text string) (int, error)
}

// Heuristic estimates one token per four bytes, rounded down.
type Heuristic struct{}

func (Heuristic) Count(text string) (int, error) {
	return len(text) / 4, nil
}

// Exact counts tokens with a real tokenizer vocabulary.
type Exact struct {
	tok *tokenizer.Tokenizer
}

func NewExact(vocabPath string) (*Exact, error) {
	tok, err := pretrained.FromFile(vocabPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}
	return &Exact{tok: tok}, nil
}

func (e *Exact) Count(text string) (int, error) {
	encoding, err := e.tok.EncodeSingle(text)
	if err != nil {
		return 0, fmt.Errorf("tokenize: %w", err)
	}
	return len(encoding.Ids), nil
}

// New builds the Counter for the configured scheme. vocabPath is only
// consulted for the exact scheme.
func New(scheme, vocabPath string) (Counter, error) {
	switch scheme {
	case "", SchemeHeuristic:
		return Heuristic{}, nil
	case SchemeExact:
		return NewExact(vocabPath)
	default:
		return nil, fmt.Errorf("unknown token scheme %q", scheme)
	}
}
