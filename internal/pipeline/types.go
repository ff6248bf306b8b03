// Package pipeline implements the retrieval-augmented solve pipeline: decide
// source, build prompt, generate, validate, finalize.
package pipeline

import "github.com/fyrsmithlabs/mathd/internal/memory"

// State is one phase of the pipeline state machine.
type State string

const (
	// StateRetrieveMemory queries the semantic store. Unique initial state.
	StateRetrieveMemory State = "retrieve_memory"

	// StateRetrieveWeb queries the web-search tool.
	StateRetrieveWeb State = "retrieve_web"

	// StateGenerate assembles the prompt and produces the solution.
	StateGenerate State = "generate"

	// StateDone is the unique terminal state.
	StateDone State = "done"
)

// RetrievalKind tags the outcome of the semantic store lookup.
type RetrievalKind string

const (
	// RetrievalExact means score > exact threshold; the stored payload may
	// be copied verbatim without invoking generation.
	RetrievalExact RetrievalKind = "exact"

	// RetrievalStrong means score in (strong, exact]; the match is used as
	// generation context.
	RetrievalStrong RetrievalKind = "strong"

	// RetrievalNone means score at or below the strong threshold, an empty
	// store, or a store failure. Web search runs before generation.
	RetrievalNone RetrievalKind = "none"
)

// Retrieval is the tagged result of the memory stage. Match is non-nil for
// exact and strong outcomes only.
type Retrieval struct {
	Kind  RetrievalKind
	Match *memory.Match
}

// afterMemory is the pure transition out of the memory stage: any usable
// match skips web search.
func afterMemory(r Retrieval) State {
	if r.Kind == RetrievalNone {
		return StateRetrieveWeb
	}
	return StateGenerate
}
