package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mathd/internal/memory"
	"github.com/fyrsmithlabs/mathd/internal/websearch"
)

const (
	// DefaultStrongThreshold is the score above which a memory match is
	// trusted as generation context.
	DefaultStrongThreshold = 0.90

	// DefaultExactThreshold is the score above which a memory match is
	// copied verbatim, skipping generation.
	DefaultExactThreshold = 0.95
)

// webQueryPrefix frames the question for the search tool.
const webQueryPrefix = "math problem solution: "

// WebSearcher is the web-search collaborator contract.
type WebSearcher interface {
	Search(ctx context.Context, query string) ([]websearch.Result, error)
}

// Coordinator queries the semantic store and, when the store has nothing
// trustworthy, the web-search tool. Collaborator failures degrade: a store
// error resolves to RetrievalNone and a web-search error to empty results,
// never to a failed request.
type Coordinator struct {
	memory memory.Store
	web    WebSearcher

	strongThreshold float64
	exactThreshold  float64

	logger *zap.Logger
}

// NewCoordinator creates a Coordinator. Zero thresholds take the defaults
// (0.90 strong, 0.95 exact); a nil logger is replaced with a no-op logger.
func NewCoordinator(mem memory.Store, web WebSearcher, strongThreshold, exactThreshold float64, logger *zap.Logger) *Coordinator {
	if strongThreshold == 0 {
		strongThreshold = DefaultStrongThreshold
	}
	if exactThreshold == 0 {
		exactThreshold = DefaultExactThreshold
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		memory:          mem,
		web:             web,
		strongThreshold: strongThreshold,
		exactThreshold:  exactThreshold,
		logger:          logger,
	}
}

// Resolve classifies the best memory match for the question. Store failures
// and empty stores both resolve to RetrievalNone.
func (c *Coordinator) Resolve(ctx context.Context, question string) Retrieval {
	match, err := c.memory.Search(ctx, question)
	if err != nil {
		c.logger.Warn("memory search failed, degrading to web search", zap.Error(err))
		return Retrieval{Kind: RetrievalNone}
	}
	if match == nil || match.Score <= c.strongThreshold {
		if match != nil {
			c.logger.Debug("memory match below threshold",
				zap.String("id", match.ID),
				zap.Float64("score", match.Score))
		}
		return Retrieval{Kind: RetrievalNone}
	}

	kind := RetrievalStrong
	if match.Score > c.exactThreshold {
		kind = RetrievalExact
	}
	c.logger.Info("memory match found",
		zap.String("id", match.ID),
		zap.Float64("score", match.Score),
		zap.String("kind", string(kind)))
	return Retrieval{Kind: kind, Match: match}
}

// SearchWeb queries the web-search tool. Failures and empty result sets both
// return an empty slice; the pipeline proceeds with whatever context exists.
func (c *Coordinator) SearchWeb(ctx context.Context, question string) []websearch.Result {
	if c.web == nil {
		return nil
	}

	results, err := c.web.Search(ctx, webQueryPrefix+question)
	if err != nil {
		c.logger.Warn("web search failed, proceeding without web context", zap.Error(err))
		return nil
	}
	c.logger.Info("web search completed", zap.Int("results", len(results)))
	return results
}
