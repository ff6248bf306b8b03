// Package guardrail provides the input and output gates around the solve
// pipeline: question admissibility and solution well-formedness.
//
// Both checks are pure functions of their input. They perform no I/O and are
// safe to call concurrently.
package guardrail

import (
	"fmt"
	"regexp"
	"strings"
)

// mathVocabulary lists terms whose whole-word presence marks a question (or
// solution) as mathematical.
var mathVocabulary = []string{
	// General terms
	"math", "mathematics", "equation", "formula", "calculate", "solve",
	"problem", "arithmetic", "algebra", "calculus", "geometry",
	"trigonometry", "statistics",

	// Operations
	"add", "subtract", "multiply", "divide", "square", "cube", "root",
	"power", "exponent", "logarithm", "differentiate", "integrate",
	"derivative", "integral",

	// Concepts
	"function", "variable", "constant", "coefficient", "expression", "term",
	"polynomial", "fraction", "decimal", "percentage", "ratio", "proportion",
	"sequence", "series", "limit", "infinity", "vector", "matrix",
	"determinant",

	// Geometry
	"angle", "triangle", "rectangle", "circle", "polygon", "sphere",
	"cylinder", "cone", "area", "volume", "perimeter", "circumference",

	// Number types
	"integer", "rational", "irrational", "real", "complex", "imaginary",
	"prime", "composite", "factorial", "odd", "even",

	// Probability and statistics
	"probability", "mean", "median", "mode", "variance", "deviation",
	"distribution", "random", "sample", "hypothesis", "confidence",
}

// nonMathSubjects lists subjects that disqualify a question outright, even
// when math terms also appear. The subject check runs first.
var nonMathSubjects = []string{
	"history", "geography", "politics", "art", "music", "literature",
	"language", "grammar", "spelling", "biology", "chemistry", "physics",
	"psychology", "sociology", "economics", "business", "marketing",
	"philosophy", "ethics", "religion", "culture", "sports",
	"entertainment", "technology", "computing", "programming", "coding",
	"software", "hardware", "internet", "web", "app",
}

// mathSymbols match anywhere in the raw text, not on word boundaries.
var mathSymbols = []string{
	"+", "-", "*", "/", "=", "<", ">", "≤", "≥", "≠", "±", "∫", "∑", "∏", "∂", "√",
}

// mathPhrasings are question openings common in math problems, checked last.
var mathPhrasings = []string{
	"find the",
	"calculate the",
	"solve for",
	"what is the value",
	"how many",
	"prove that",
	"simplify",
	"evaluate",
	"factor",
}

// shortQuestionTokens is the token cutoff below which a question containing
// digits is presumed mathematical.
const shortQuestionTokens = 15

var (
	digitsPattern     = regexp.MustCompile(`\d+`)
	expressionPattern = regexp.MustCompile(`\d+\s*[+\-*/^=]\s*\d+`)

	vocabPatterns   = compileWordPatterns(mathVocabulary)
	subjectPatterns = compileWordPatterns(nonMathSubjects)
)

// compileWordPatterns builds whole-word matchers so substrings inside
// unrelated words do not false-positive ("add" must not match "address").
func compileWordPatterns(words []string) map[string]*regexp.Regexp {
	patterns := make(map[string]*regexp.Regexp, len(words))
	for _, w := range words {
		patterns[w] = regexp.MustCompile(`\b` + regexp.QuoteMeta(w) + `\b`)
	}
	return patterns
}

// ClassifyQuestion reports whether a question is mathematical, with a reason.
// Checks run in fixed order and the first match wins:
//
//  1. A non-math subject word rejects.
//  2. A math vocabulary word accepts.
//  3. A math symbol anywhere in the raw text accepts.
//  4. A digits-operator-digits expression accepts.
//  5. A short question containing digits accepts.
//  6. A known math-question phrasing accepts.
//  7. Otherwise reject.
func ClassifyQuestion(question string) (bool, string) {
	lower := strings.ToLower(question)

	for _, subject := range nonMathSubjects {
		if subjectPatterns[subject].MatchString(lower) {
			return false, fmt.Sprintf("question appears to be about %s, not mathematics", subject)
		}
	}

	var found []string
	for _, term := range mathVocabulary {
		if vocabPatterns[term].MatchString(lower) {
			found = append(found, term)
		}
	}
	if len(found) > 0 {
		if len(found) > 3 {
			found = found[:3]
		}
		return true, "math-related terms found: " + strings.Join(found, ", ")
	}

	var symbols []string
	for _, sym := range mathSymbols {
		if strings.Contains(question, sym) {
			symbols = append(symbols, sym)
		}
	}
	if len(symbols) > 0 {
		return true, "mathematical symbols found: " + strings.Join(symbols, ", ")
	}

	if expressionPattern.MatchString(question) {
		return true, "question contains what appears to be a mathematical expression"
	}

	if digitsPattern.MatchString(question) && len(strings.Fields(question)) < shortQuestionTokens {
		return true, "short question with numbers is likely math-related"
	}

	for _, phrase := range mathPhrasings {
		if strings.Contains(lower, phrase) {
			return true, fmt.Sprintf("question contains math problem pattern: %q", phrase)
		}
	}

	return false, "no clear mathematical content detected"
}

// containsVocabularyTerm reports whether any math vocabulary term occurs as a
// whole word in the given text. Used by solution validation, where term
// presence (not symbol presence) decides the verdict.
func containsVocabularyTerm(text string) bool {
	lower := strings.ToLower(text)
	for _, term := range mathVocabulary {
		if vocabPatterns[term].MatchString(lower) {
			return true
		}
	}
	return false
}
