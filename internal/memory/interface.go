// Package memory defines the semantic nearest-neighbor store contract and an
// embedded implementation backed by chromem-go.
package memory

import (
	"context"
	"errors"
)

// Sentinel errors for memory store operations.
var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyQuestion indicates an empty question text.
	ErrEmptyQuestion = errors.New("empty question")
)

// Payload carries the stored question/solution/steps triple, optionally with
// the verbatim long-form solution text.
type Payload struct {
	Question         string   `json:"question"`
	Answer           string   `json:"solution"`
	Steps            []string `json:"steps"`
	OriginalSolution string   `json:"original_solution,omitempty"`
}

// Match is the best nearest-neighbor result for a query.
type Match struct {
	// ID is the stored record identifier.
	ID string

	// Score is the similarity score in [0,1]; higher is more similar.
	Score float64

	// Payload is the stored record.
	Payload Payload
}

// Store is the semantic store contract: given a query string, return the best
// match with its score, or nil when the store holds nothing.
type Store interface {
	// Search returns the single best match for the question, or nil when
	// the store is empty. Thresholding is the caller's concern.
	Search(ctx context.Context, question string) (*Match, error)

	// Add stores a payload keyed by its question text and returns the new
	// record id.
	Add(ctx context.Context, p Payload) (string, error)
}

// Embedder generates a vector embedding for a query string.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// EmbedderFunc adapts a plain function to the Embedder interface.
type EmbedderFunc func(ctx context.Context, text string) ([]float32, error)

// EmbedQuery implements Embedder.
func (f EmbedderFunc) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}
