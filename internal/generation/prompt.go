package generation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxReferenceChars bounds how much of a verbatim prior solution is folded
// into the prompt. Very large contexts slow the backend down and raise the
// timeout risk.
const maxReferenceChars = 2000

const truncationMarker = "... [truncated for brevity]"

const answerFormat = `Format your response as follows:
SOLUTION: [concise final answer]
STEPS:
1. [first step]
2. [second step]
...and so on.`

// promptWithReference renders the template used when a similar prior question
// was retrieved. When the reference carries a verbatim long-form solution,
// that text is preferred over the stored answer/steps pair and truncated to
// maxReferenceChars.
func promptWithReference(question string, ref *Reference) string {
	var b strings.Builder
	b.WriteString("You are a highly knowledgeable mathematics professor.\n\n")
	b.WriteString("I have a question similar to one in our database. Please provide a step-by-step solution.\n\n")
	fmt.Fprintf(&b, "Original question from database: %s\n\n", ref.Question)

	if ref.OriginalSolution != "" {
		original := ref.OriginalSolution
		if len(original) > maxReferenceChars {
			// Back up to a rune boundary so the cut never splits a
			// multi-byte symbol.
			cut := maxReferenceChars
			for cut > 0 && !utf8.RuneStart(original[cut]) {
				cut--
			}
			original = original[:cut] + truncationMarker
		}
		fmt.Fprintf(&b, "Original detailed solution:\n%s\n\n", original)
	} else {
		fmt.Fprintf(&b, "Original solution: %s\n", ref.Answer)
		fmt.Fprintf(&b, "Original steps: %s\n\n", strings.Join(ref.Steps, ", "))
	}

	fmt.Fprintf(&b, "My current question is: %s\n\n", question)
	b.WriteString("Please provide a detailed step-by-step solution to my current question, adapting the approach from the original solution if applicable. ")
	b.WriteString(answerFormat)
	b.WriteString("\n")
	return b.String()
}

// promptWithoutReference renders the bare template.
func promptWithoutReference(question string) string {
	var b strings.Builder
	b.WriteString("You are a highly knowledgeable mathematics professor.\n\n")
	fmt.Fprintf(&b, "I have the following question: %s\n\n", question)
	b.WriteString("Please provide a detailed step-by-step solution. ")
	b.WriteString(answerFormat)
	b.WriteString("\n")
	return b.String()
}
