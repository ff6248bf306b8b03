package guardrail

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/mathd/internal/solution"
)

// minSteps is the smallest step count accepted as a proper explanation.
const minSteps = 2

// ValidateSolution reports whether a solution is a well-formed mathematical
// answer, with a reason.
//
// A solution passes when it has a non-empty final answer, at least two
// non-blank steps, and at least one math vocabulary term somewhere in the
// answer or steps. Symbol presence alone does not satisfy the vocabulary
// check; this is deliberately stricter than the question classifier, which
// accepts on symbols alone.
func ValidateSolution(sol *solution.Solution) (bool, string) {
	if sol == nil {
		return false, "no solution provided"
	}

	if strings.TrimSpace(sol.FinalAnswer) == "" {
		return false, "solution is empty"
	}

	if len(sol.Steps) == 0 {
		return false, "no steps provided in the solution"
	}

	if len(sol.Steps) < minSteps {
		return false, "solution doesn't have enough steps for a proper explanation"
	}

	var blank []int
	for i, step := range sol.Steps {
		if strings.TrimSpace(step) == "" {
			blank = append(blank, i)
		}
	}
	if len(blank) > 0 {
		return false, fmt.Sprintf("empty steps found at positions: %v", blank)
	}

	if !containsVocabularyTerm(sol.FinalAnswer) {
		termFound := false
		for _, step := range sol.Steps {
			if containsVocabularyTerm(step) {
				termFound = true
				break
			}
		}
		if !termFound {
			return false, "no mathematical content found in solution or steps"
		}
	}

	return true, fmt.Sprintf("valid mathematical solution with %d steps", len(sol.Steps))
}
