package pipeline

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mathd/internal/feedback"
	"github.com/fyrsmithlabs/mathd/internal/generation"
	"github.com/fyrsmithlabs/mathd/internal/guardrail"
	"github.com/fyrsmithlabs/mathd/internal/memory"
	"github.com/fyrsmithlabs/mathd/internal/solution"
)

// rejectionAnswer is returned when the input guardrail turns a question away.
const rejectionAnswer = "I can only help with mathematics questions. Please ask a question related to mathematics."

// apologyAnswer is the last-resort response when both the pipeline and the
// legacy flow produced invalid solutions.
const apologyAnswer = "I couldn't generate a valid mathematical solution for your question."

// Archive is the feedback-archive contract the solver depends on.
type Archive interface {
	StoreSolution(ctx context.Context, question string, sol *solution.Solution) (string, error)
	AddFeedback(ctx context.Context, solutionID string, rating int, text, correction string) (bool, error)
	GetSolutionWithFeedback(ctx context.Context, id string) (*feedback.StoredSolution, error)
}

// Solver wraps the pipeline with the input and output guardrails, the legacy
// single-path fallback, and archive persistence. It is the implementation
// behind the solve and feedback API surface.
type Solver struct {
	orchestrator *Orchestrator
	memory       memory.Store
	generator    Generator
	archive      Archive

	strongThreshold float64

	metrics *Metrics
	logger  *zap.Logger
}

// NewSolver creates a Solver. The metrics may be nil to disable counters; a
// nil logger is replaced with a no-op logger.
func NewSolver(orchestrator *Orchestrator, mem memory.Store, generator Generator, archive Archive, strongThreshold float64, metrics *Metrics, logger *zap.Logger) *Solver {
	if strongThreshold == 0 {
		strongThreshold = DefaultStrongThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Solver{
		orchestrator:    orchestrator,
		memory:          mem,
		generator:       generator,
		archive:         archive,
		strongThreshold: strongThreshold,
		metrics:         metrics,
		logger:          logger,
	}
}

// Solve answers one question. The result is always a well-formed solution
// object: a rejection (no steps), a validated answer, or the fixed apology.
func (s *Solver) Solve(ctx context.Context, question string) *solution.Solution {
	start := time.Now()
	defer func() {
		s.metrics.observeDuration(time.Since(start).Seconds())
	}()

	question = strings.TrimSpace(question)

	isMath, reason := guardrail.ClassifyQuestion(question)
	if !isMath {
		s.logger.Warn("question rejected by input guardrail",
			zap.String("question", question),
			zap.String("reason", reason))
		s.metrics.question("rejected")
		return &solution.Solution{
			FinalAnswer:     rejectionAnswer,
			Steps:           []string{},
			SourceRetrieved: false,
		}
	}
	s.logger.Info("question accepted", zap.String("reason", reason))
	s.metrics.question("accepted")

	sol := s.orchestrator.Run(ctx, question)
	path := "pipeline"

	if valid, vreason := guardrail.ValidateSolution(sol); !valid {
		s.logger.Warn("pipeline solution failed output guardrail",
			zap.String("reason", vreason))
		s.metrics.guardrailFailure()

		sol = s.legacySolve(ctx, question)
		path = "legacy"

		if valid, vreason := guardrail.ValidateSolution(sol); !valid {
			s.logger.Warn("legacy solution failed output guardrail",
				zap.String("reason", vreason))
			s.metrics.guardrailFailure()
			s.metrics.solved("apology")
			return &solution.Solution{
				FinalAnswer:     apologyAnswer,
				Steps:           []string{},
				SourceRetrieved: false,
			}
		}
	}

	// Archive the validated solution; its archive id is what callers use to
	// submit feedback, so it replaces any internal reference id.
	if s.archive != nil {
		id, err := s.archive.StoreSolution(ctx, question, sol)
		if err != nil {
			s.logger.Error("failed to archive solution", zap.Error(err))
		} else {
			sol.ReferenceID = id
		}
	}

	s.metrics.solved(path)
	return sol
}

// legacySolve is the simpler single-path fallback: one memory lookup, then
// direct generation. No web search, no feedback augmentation.
func (s *Solver) legacySolve(ctx context.Context, question string) *solution.Solution {
	match, err := s.memory.Search(ctx, question)
	if err != nil {
		s.logger.Warn("legacy memory search failed", zap.Error(err))
		match = nil
	}

	if match != nil && match.Score > s.strongThreshold {
		s.logger.Info("legacy flow using stored solution directly",
			zap.String("id", match.ID),
			zap.Float64("score", match.Score))
		return &solution.Solution{
			FinalAnswer:     match.Payload.Answer,
			Steps:           append([]string(nil), match.Payload.Steps...),
			SourceRetrieved: true,
			ReferenceID:     match.ID,
		}
	}

	var ref *generation.Reference
	if match != nil {
		ref = &generation.Reference{
			Question:         match.Payload.Question,
			Answer:           match.Payload.Answer,
			Steps:            match.Payload.Steps,
			OriginalSolution: match.Payload.OriginalSolution,
		}
	}

	sol := s.generator.Generate(ctx, question, ref)
	sol.SourceRetrieved = match != nil
	if match != nil {
		sol.ReferenceID = match.ID
	}
	return sol
}

// FeedbackOutcome is the result of a feedback submission.
type FeedbackOutcome struct {
	// Found is false when the solution id is unknown. Nothing was stored.
	Found bool

	// Improved is a regenerated solution incorporating the submitted
	// correction, present only when a correction was given and the
	// regenerated answer passed validation.
	Improved *solution.Solution
}

// SubmitFeedback records feedback against an archived solution. When a
// correction is supplied, the backend is asked for an improved solution; the
// improvement is included only if it passes the output guardrail.
func (s *Solver) SubmitFeedback(ctx context.Context, solutionID string, rating int, text, correction string) (*FeedbackOutcome, error) {
	ok, err := s.archive.AddFeedback(ctx, solutionID, rating, text, correction)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &FeedbackOutcome{Found: false}, nil
	}

	outcome := &FeedbackOutcome{Found: true}
	if correction == "" {
		return outcome, nil
	}

	stored, err := s.archive.GetSolutionWithFeedback(ctx, solutionID)
	if err != nil || stored == nil {
		s.logger.Warn("could not load solution for improvement",
			zap.String("solution_id", solutionID), zap.Error(err))
		return outcome, nil
	}

	improved := s.generator.Generate(ctx, correctionPrompt(stored.Question, correction), nil)
	if valid, _ := guardrail.ValidateSolution(improved); valid {
		improved.SourceRetrieved = false
		improved.ReferenceID = solutionID
		outcome.Improved = improved
	}
	return outcome, nil
}
