package guardrail

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/mathd/internal/solution"
)

func TestValidateSolution(t *testing.T) {
	tests := []struct {
		name       string
		sol        *solution.Solution
		wantValid  bool
		wantReason string
	}{
		{
			name:       "nil solution",
			sol:        nil,
			wantValid:  false,
			wantReason: "no solution provided",
		},
		{
			name:       "empty answer",
			sol:        &solution.Solution{FinalAnswer: "   ", Steps: []string{"a", "b"}},
			wantValid:  false,
			wantReason: "solution is empty",
		},
		{
			name:       "no steps",
			sol:        &solution.Solution{FinalAnswer: "42"},
			wantValid:  false,
			wantReason: "no steps provided in the solution",
		},
		{
			name:       "single step is not an explanation",
			sol:        &solution.Solution{FinalAnswer: "42", Steps: []string{"just trust me"}},
			wantValid:  false,
			wantReason: "solution doesn't have enough steps for a proper explanation",
		},
		{
			name: "blank steps reported by position",
			sol: &solution.Solution{
				FinalAnswer: "42",
				Steps:       []string{"add the terms", "  ", "done", "\t"},
			},
			wantValid:  false,
			wantReason: "empty steps found at positions: [1 3]",
		},
		{
			name: "no math content anywhere",
			sol: &solution.Solution{
				FinalAnswer: "yes",
				Steps:       []string{"look at it", "think about it"},
			},
			wantValid:  false,
			wantReason: "no mathematical content found in solution or steps",
		},
		{
			name: "symbols alone do not count as math content",
			sol: &solution.Solution{
				FinalAnswer: "x = 5",
				Steps:       []string{"2x = 10", "x = 10 / 2"},
			},
			wantValid:  false,
			wantReason: "no mathematical content found in solution or steps",
		},
		{
			name: "vocabulary in a step is enough",
			sol: &solution.Solution{
				FinalAnswer: "5",
				Steps:       []string{"add 2 and 3", "the sum is 5"},
			},
			wantValid:  true,
			wantReason: "valid mathematical solution with 2 steps",
		},
		{
			name: "vocabulary in the answer is enough",
			sol: &solution.Solution{
				FinalAnswer: "the integral is x^2/2",
				Steps:       []string{"raise the power by one", "then do the division"},
			},
			wantValid:  true,
			wantReason: "valid mathematical solution with 2 steps",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, reason := ValidateSolution(tt.sol)
			assert.Equal(t, tt.wantValid, valid)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}
