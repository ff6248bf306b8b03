package feedback

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	// defaultMinRating is the lowest rating that marks feedback as "good".
	defaultMinRating = 4

	// defaultMaxExamples caps how many prior solutions are rendered as
	// few-shot context.
	defaultMaxExamples = 2
)

// Archive is the read side of the feedback store the augmenter depends on.
type Archive interface {
	FindSimilarWithGoodFeedback(ctx context.Context, question string, minRating int) ([]StoredSolution, error)
}

// Example pairs a stored solution with its chosen feedback record, if any.
type Example struct {
	Stored StoredSolution

	// Best is the highest-rated feedback record carrying a non-empty
	// correction, or nil when no record does.
	Best *Record
}

// Augmenter selects prior well-rated solutions relevant to a new question and
// renders them as few-shot prompt context. It only reads the archive.
type Augmenter struct {
	archive     Archive
	minRating   int
	maxExamples int
	logger      *zap.Logger
}

// NewAugmenter creates an Augmenter. Zero minRating and maxExamples take the
// defaults (4 and 2); a nil logger is replaced with a no-op logger.
func NewAugmenter(archive Archive, minRating, maxExamples int, logger *zap.Logger) *Augmenter {
	if minRating == 0 {
		minRating = defaultMinRating
	}
	if maxExamples == 0 {
		maxExamples = defaultMaxExamples
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Augmenter{
		archive:     archive,
		minRating:   minRating,
		maxExamples: maxExamples,
		logger:      logger,
	}
}

// FindHelpfulExamples returns up to maxExamples stored solutions with good
// feedback, each paired with its best correction-bearing feedback record.
// Ties on rating break toward the first-seen record.
func (a *Augmenter) FindHelpfulExamples(ctx context.Context, question string) ([]Example, error) {
	candidates, err := a.archive.FindSimilarWithGoodFeedback(ctx, question, a.minRating)
	if err != nil {
		return nil, fmt.Errorf("finding solutions with good feedback: %w", err)
	}

	examples := make([]Example, 0, a.maxExamples)
	for _, stored := range candidates {
		if len(examples) == a.maxExamples {
			break
		}
		examples = append(examples, Example{
			Stored: stored,
			Best:   bestCorrection(stored.Feedback),
		})
	}

	a.logger.Debug("selected feedback examples",
		zap.Int("candidates", len(candidates)),
		zap.Int("selected", len(examples)))
	return examples, nil
}

// bestCorrection picks the highest-rated record with a non-empty correction.
func bestCorrection(records []Record) *Record {
	var best *Record
	for i := range records {
		rec := &records[i]
		if rec.Correction == "" {
			continue
		}
		if best == nil || rec.Rating > best.Rating {
			best = rec
		}
	}
	return best
}

// RenderFewShot renders examples as the few-shot block prepended to
// generation prompts. An empty example list renders as the empty string.
func RenderFewShot(examples []Example) string {
	if len(examples) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("I've found some similar questions with expert feedback that might be helpful:\n\n")
	for i, ex := range examples {
		fmt.Fprintf(&b, "Example %d:\n", i+1)
		fmt.Fprintf(&b, "Question: %s\n", ex.Stored.Question)
		fmt.Fprintf(&b, "Solution: %s\n", ex.Stored.Solution.FinalAnswer)
		if ex.Best != nil {
			fmt.Fprintf(&b, "Expert correction: %s\n\n", ex.Best.Correction)
		} else {
			b.WriteString("\n")
		}
	}
	return b.String()
}
