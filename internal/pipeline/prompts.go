package pipeline

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/mathd/internal/websearch"
)

// webPrompt renders the generation prompt used when only web results are
// available. Result order is the search tool's relevance order and is
// preserved.
func webPrompt(question string, results []websearch.Result, feedbackBlock string) string {
	var ctx strings.Builder
	for i, r := range results {
		fmt.Fprintf(&ctx, "\n[%d] %s\n", i+1, r.Title)
		fmt.Fprintf(&ctx, "URL: %s\n", r.URL)
		fmt.Fprintf(&ctx, "Description: %s\n\n", r.Description)
	}

	var b strings.Builder
	b.WriteString("You are a mathematics professor expert at solving math problems step by step.\n\n")
	fmt.Fprintf(&b, "I need help solving this math problem:\n%q\n\n", question)
	b.WriteString("I've found the following information from the web that might be helpful:\n")
	b.WriteString(ctx.String())
	if feedbackBlock != "" {
		b.WriteString(feedbackBlock)
		b.WriteString("\n")
	}
	b.WriteString(`Please provide a detailed step-by-step solution to the problem. Format your response as follows:
SOLUTION: [concise final answer]
STEPS:
1. [first step]
2. [second step]
...and so on.

Use mathematical notation where appropriate and explain each step clearly.
`)
	return b.String()
}

// feedbackWrappedQuestion folds the few-shot feedback block around a bare
// question. Used on the strong-match and no-context paths when prior
// well-rated examples exist.
func feedbackWrappedQuestion(question, feedbackBlock string) string {
	var b strings.Builder
	b.WriteString("You are a mathematics professor solving the following question:\n\n")
	b.WriteString(question)
	b.WriteString("\n\n")
	b.WriteString(feedbackBlock)
	b.WriteString("\nBased on these examples and any corrections, please provide a detailed and accurate solution to the original question.\n")
	return b.String()
}

// correctionPrompt asks the backend to redo a solution incorporating an
// expert correction. Used by feedback submission.
func correctionPrompt(question, correction string) string {
	var b strings.Builder
	b.WriteString("You are a mathematics professor. You previously provided a solution to this question:\n\n")
	fmt.Fprintf(&b, "Question: %s\n\n", question)
	b.WriteString("Your solution had some issues, and a human expert has provided the following correction:\n")
	b.WriteString(correction)
	b.WriteString("\n\nPlease provide an improved solution incorporating this feedback. Format your response as:\n")
	b.WriteString("SOLUTION: [concise final answer]\nSTEPS:\n1. [first step]\n2. [second step]\n...and so on.\n")
	return b.String()
}
