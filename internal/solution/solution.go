// Package solution defines the answer types shared across the mathd pipeline.
package solution

// Solution is a step-by-step answer to a math question.
//
// Steps is non-empty for every solution the pipeline accepts. The two
// exceptions are terminal states: a guardrail rejection carries no steps at
// all, and a hard pipeline failure carries a single diagnostic step.
type Solution struct {
	// FinalAnswer is the concise final answer.
	FinalAnswer string `json:"solution"`

	// Steps is the ordered step-by-step explanation.
	Steps []string `json:"steps"`

	// SourceRetrieved is true when the answer came from (or was conditioned
	// on) a semantic memory match rather than generated from scratch.
	SourceRetrieved bool `json:"source_retrieved"`

	// ReferenceID identifies the record backing this solution: the memory
	// match inside the pipeline, the archive entry once stored.
	ReferenceID string `json:"reference_id,omitempty"`
}

// Clone returns a deep copy. Solutions are treated as immutable once
// returned, so callers that need to annotate one copy it first.
func (s *Solution) Clone() *Solution {
	if s == nil {
		return nil
	}
	out := *s
	out.Steps = append([]string(nil), s.Steps...)
	return &out
}
