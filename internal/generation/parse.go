package generation

import (
	"regexp"
	"strings"

	"github.com/fyrsmithlabs/mathd/internal/solution"
)

const (
	solutionMarker = "SOLUTION:"
	stepsMarker    = "STEPS:"
)

// stepItem matches the start of one numbered list item: a line-leading
// integer, a period, and whitespace. Item text runs to the next item or end of
// text. Anchoring to line starts keeps numbers inside a step ("add 2 and 3.")
// from being read as the next item.
var stepItem = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)

// parseSolution extracts the final answer and ordered steps from a raw
// backend reply.
//
// The expected shape is "SOLUTION: <answer> STEPS: 1. ... 2. ...". Replies
// without the markers are treated as a bare final answer with a single
// placeholder step, so a sloppy backend still yields a usable object.
func parseSolution(raw string) *solution.Solution {
	if !strings.Contains(raw, solutionMarker) {
		return &solution.Solution{
			FinalAnswer: raw,
			Steps:       []string{"No structured steps available"},
		}
	}

	answerPart, stepsPart, hasSteps := strings.Cut(raw, stepsMarker)
	answer := strings.TrimSpace(strings.Replace(answerPart, solutionMarker, "", 1))

	var steps []string
	if hasSteps {
		steps = parseSteps(stepsPart)
	}

	return &solution.Solution{
		FinalAnswer: answer,
		Steps:       steps,
	}
}

// parseSteps splits a numbered list into its items, preserving order and
// dropping blank items.
func parseSteps(text string) []string {
	markers := stepItem.FindAllStringIndex(text, -1)
	steps := make([]string, 0, len(markers))
	for i, loc := range markers {
		end := len(text)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		step := strings.TrimSpace(text[loc[1]:end])
		if step != "" {
			steps = append(steps, step)
		}
	}
	return steps
}
