package feedback

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/mathd/internal/solution"
)

// archiveFunc adapts a function to the Archive interface.
type archiveFunc func(ctx context.Context, question string, minRating int) ([]StoredSolution, error)

func (f archiveFunc) FindSimilarWithGoodFeedback(ctx context.Context, question string, minRating int) ([]StoredSolution, error) {
	return f(ctx, question, minRating)
}

func storedWith(question string, feedback ...Record) StoredSolution {
	return StoredSolution{
		ID:       "sol-" + question,
		Question: question,
		Solution: solution.Solution{FinalAnswer: "answer to " + question, Steps: []string{"a", "b"}},
		Feedback: feedback,
	}
}

func TestFindHelpfulExamplesCapsResults(t *testing.T) {
	archive := archiveFunc(func(ctx context.Context, question string, minRating int) ([]StoredSolution, error) {
		assert.Equal(t, 4, minRating)
		return []StoredSolution{storedWith("q1"), storedWith("q2"), storedWith("q3")}, nil
	})
	aug := NewAugmenter(archive, 0, 0, nil)

	examples, err := aug.FindHelpfulExamples(context.Background(), "new question")
	require.NoError(t, err)
	require.Len(t, examples, 2)
	assert.Equal(t, "q1", examples[0].Stored.Question)
	assert.Equal(t, "q2", examples[1].Stored.Question)
}

func TestFindHelpfulExamplesArchiveError(t *testing.T) {
	archive := archiveFunc(func(ctx context.Context, question string, minRating int) ([]StoredSolution, error) {
		return nil, assert.AnError
	})
	aug := NewAugmenter(archive, 0, 0, nil)

	_, err := aug.FindHelpfulExamples(context.Background(), "q")
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestBestCorrection(t *testing.T) {
	tests := []struct {
		name    string
		records []Record
		wantID  string // empty means nil expected
	}{
		{
			name:   "no records",
			wantID: "",
		},
		{
			name: "records without corrections are skipped",
			records: []Record{
				{ID: "f1", Rating: 5},
				{ID: "f2", Rating: 5, Text: "nice"},
			},
			wantID: "",
		},
		{
			name: "highest rated correction wins",
			records: []Record{
				{ID: "f1", Rating: 3, Correction: "try again"},
				{ID: "f2", Rating: 5, Correction: "use the chain rule"},
				{ID: "f3", Rating: 4, Correction: "almost"},
			},
			wantID: "f2",
		},
		{
			name: "ties break toward the first seen",
			records: []Record{
				{ID: "f1", Rating: 4, Correction: "first"},
				{ID: "f2", Rating: 4, Correction: "second"},
			},
			wantID: "f1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			best := bestCorrection(tt.records)
			if tt.wantID == "" {
				assert.Nil(t, best)
				return
			}
			require.NotNil(t, best)
			assert.Equal(t, tt.wantID, best.ID)
		})
	}
}

func TestRenderFewShot(t *testing.T) {
	examples := []Example{
		{
			Stored: storedWith("What is 2+2?"),
			Best:   &Record{Rating: 5, Correction: "show the addition explicitly"},
		},
		{
			Stored: storedWith("What is 3*3?"),
		},
	}

	block := RenderFewShot(examples)

	assert.Contains(t, block, "similar questions with expert feedback")
	assert.Contains(t, block, "Example 1:")
	assert.Contains(t, block, "Question: What is 2+2?")
	assert.Contains(t, block, "Expert correction: show the addition explicitly")
	assert.Contains(t, block, "Example 2:")
	assert.Contains(t, block, "Question: What is 3*3?")
}

func TestRenderFewShotEmpty(t *testing.T) {
	assert.Empty(t, RenderFewShot(nil))
	assert.Empty(t, RenderFewShot([]Example{}))
}
