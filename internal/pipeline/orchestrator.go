package pipeline

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mathd/internal/feedback"
	"github.com/fyrsmithlabs/mathd/internal/generation"
	"github.com/fyrsmithlabs/mathd/internal/solution"
	"github.com/fyrsmithlabs/mathd/internal/websearch"
)

var tracer = otel.Tracer("mathd.pipeline")

// Generator is the generation backend contract. Implementations are total:
// they return a degraded solution rather than an error.
type Generator interface {
	Generate(ctx context.Context, question string, ref *generation.Reference) *solution.Solution
}

// Augmenter supplies few-shot examples from the feedback archive.
type Augmenter interface {
	FindHelpfulExamples(ctx context.Context, question string) ([]feedback.Example, error)
}

// Orchestrator runs one question through the pipeline state machine:
// RetrieveMemory, then either RetrieveWeb or Generate, then Done. Each
// instance is stateless across requests; instances may run fully in parallel.
type Orchestrator struct {
	coordinator *Coordinator
	generator   Generator
	augmenter   Augmenter
	logger      *zap.Logger
}

// NewOrchestrator creates an Orchestrator. The augmenter may be nil, which
// disables feedback few-shot context; a nil logger is replaced with a no-op
// logger.
func NewOrchestrator(coordinator *Coordinator, generator Generator, augmenter Augmenter, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		coordinator: coordinator,
		generator:   generator,
		augmenter:   augmenter,
		logger:      logger,
	}
}

// Run drives the state machine to completion and always returns a solution.
// Collaborator failures degrade stage by stage; an unexpected panic in the
// generate stage terminates with a single-diagnostic-step solution.
func (o *Orchestrator) Run(ctx context.Context, question string) *solution.Solution {
	ctx, span := tracer.Start(ctx, "pipeline.Run")
	defer span.End()

	var (
		retrieval  Retrieval
		webResults []websearch.Result
		sol        *solution.Solution
	)

	state := StateRetrieveMemory
	for state != StateDone {
		o.logger.Debug("pipeline state", zap.String("state", string(state)))

		switch state {
		case StateRetrieveMemory:
			retrieval = o.coordinator.Resolve(ctx, question)
			span.SetAttributes(attribute.String("retrieval.kind", string(retrieval.Kind)))
			state = afterMemory(retrieval)

		case StateRetrieveWeb:
			webResults = o.coordinator.SearchWeb(ctx, question)
			span.SetAttributes(attribute.Int("web.results", len(webResults)))
			state = StateGenerate

		case StateGenerate:
			sol = o.generate(ctx, question, retrieval, webResults)
			state = StateDone
		}
	}
	return sol
}

// generate assembles whatever context exists and produces the solution, in
// strict priority order: exact memory copy, memory-conditioned generation,
// web-conditioned generation, bare generation.
func (o *Orchestrator) generate(ctx context.Context, question string, retrieval Retrieval, webResults []websearch.Result) (sol *solution.Solution) {
	ctx, span := tracer.Start(ctx, "pipeline.generate")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("solution generation panicked", zap.Any("panic", r))
			sol = degradedSolution(fmt.Sprintf("solution generation error: %v", r))
		}
	}()

	feedbackBlock := o.feedbackContext(ctx, question)

	switch {
	case retrieval.Kind == RetrievalExact:
		// Copy the stored answer verbatim; the backend is not consulted.
		match := retrieval.Match
		o.logger.Info("using stored solution directly", zap.String("id", match.ID))
		span.SetAttributes(attribute.String("source", "memory_exact"))
		return &solution.Solution{
			FinalAnswer:     match.Payload.Answer,
			Steps:           append([]string(nil), match.Payload.Steps...),
			SourceRetrieved: true,
			ReferenceID:     match.ID,
		}

	case retrieval.Match != nil:
		span.SetAttributes(attribute.String("source", "memory_context"))
		match := retrieval.Match
		ref := &generation.Reference{
			Question:         match.Payload.Question,
			Answer:           match.Payload.Answer,
			Steps:            match.Payload.Steps,
			OriginalSolution: match.Payload.OriginalSolution,
		}
		q := question
		if feedbackBlock != "" {
			q = feedbackWrappedQuestion(question, feedbackBlock)
		}
		sol = o.generator.Generate(ctx, q, ref)
		sol.SourceRetrieved = true
		sol.ReferenceID = match.ID
		return sol

	case len(webResults) > 0:
		span.SetAttributes(attribute.String("source", "web"))
		sol = o.generator.Generate(ctx, webPrompt(question, webResults, feedbackBlock), nil)
		sol.SourceRetrieved = false
		sol.ReferenceID = ""
		return sol

	default:
		span.SetAttributes(attribute.String("source", "bare"))
		q := question
		if feedbackBlock != "" {
			q = feedbackWrappedQuestion(question, feedbackBlock)
		}
		sol = o.generator.Generate(ctx, q, nil)
		sol.SourceRetrieved = false
		sol.ReferenceID = ""
		return sol
	}
}

// feedbackContext renders the few-shot block, or "" when the augmenter is
// absent, fails, or has nothing. Augmenter failures never block generation.
func (o *Orchestrator) feedbackContext(ctx context.Context, question string) string {
	if o.augmenter == nil {
		return ""
	}
	examples, err := o.augmenter.FindHelpfulExamples(ctx, question)
	if err != nil {
		o.logger.Warn("feedback lookup failed, generating without examples", zap.Error(err))
		return ""
	}
	return feedback.RenderFewShot(examples)
}

// degradedSolution is the terminal hard-failure answer: a single diagnostic
// step naming the error.
func degradedSolution(diagnostic string) *solution.Solution {
	return &solution.Solution{
		FinalAnswer: "Error generating solution.",
		Steps:       []string{"An error occurred: " + diagnostic},
	}
}
