// Package generation calls the text-generation backend and turns its
// free-form reply into a structured solution.
//
// The client is total: every failure path (backend down, timeout, malformed
// reply) resolves to a well-formed fallback solution rather than an error.
// The orchestrator has no recovery path of its own once generation is
// reached, so this package must always terminate with a result.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/mathd/internal/solution"
)

const (
	defaultTimeout       = 120 * time.Second
	defaultHealthTimeout = 10 * time.Second
	defaultMaxRetries    = 2
	defaultRateLimit     = 2 // requests per second
	defaultBurst         = 4
)

// backoffInterval scales linearly with the attempt number: the first retry
// waits 2s, the second 4s. Variable so tests can shorten it.
var backoffInterval = 2 * time.Second

// Config holds generation backend settings.
type Config struct {
	// BaseURL is the backend root, e.g. "http://localhost:11434".
	BaseURL string

	// Model is the model name expected in the backend's tag list.
	Model string

	// Timeout bounds a single generate call. Default: 120s.
	Timeout time.Duration

	// HealthTimeout bounds the readiness probe. Default: 10s.
	HealthTimeout time.Duration

	// MaxRetries is the number of additional attempts after the first
	// failed generate call. Default: 2.
	MaxRetries int
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:11434"
	}
	if c.Model == "" {
		c.Model = "llama3:latest"
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.HealthTimeout == 0 {
		c.HealthTimeout = defaultHealthTimeout
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}
}

// Reference is retrieved context folded into the generation prompt: a prior
// question with its stored answer and steps, optionally with the verbatim
// long-form solution text.
type Reference struct {
	Question         string
	Answer           string
	Steps            []string
	OriginalSolution string
}

// Client talks to an Ollama-compatible generation backend.
type Client struct {
	config     Config
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// NewClient creates a generation client. A nil logger is replaced with a
// no-op logger.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.ApplyDefaults()

	return &Client{
		config: cfg,
		// Per-request deadlines come from context; no transport-wide timeout.
		httpClient: &http.Client{Timeout: 0},
		limiter:    rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
		logger:     logger,
	}
}

// tagsResponse mirrors the JSON returned by GET /api/tags.
type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Ready reports whether the backend is reachable and serves the configured
// model. Any transport error, non-200 status, or missing model returns false.
func (c *Client) Ready(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.config.HealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/api/tags", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("backend health probe failed", zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return false
	}
	for _, m := range tags.Models {
		if m.Name == c.config.Model {
			return true
		}
	}
	return false
}

// Generate produces a solution for the given question, optionally conditioned
// on a retrieved reference. The question may already be a fully rendered
// prompt; when ref is nil it is sent through the bare template as-is.
//
// Generate never returns an error. If the backend is not ready it returns the
// fixed fallback immediately; timeouts and non-200 replies are retried with
// linear backoff before degrading to the same fallback; every other error
// (a dropped connection, a malformed response body) skips the retry budget
// entirely.
func (c *Client) Generate(ctx context.Context, question string, ref *Reference) *solution.Solution {
	if !c.Ready(ctx) {
		c.logger.Warn("generation backend not ready, using fallback",
			zap.String("model", c.config.Model))
		return fallbackSolution(question)
	}

	var prompt string
	if ref != nil {
		prompt = promptWithReference(question, ref)
	} else {
		prompt = promptWithoutReference(question)
	}

	c.logger.Debug("sending generation request", zap.Int("prompt_len", len(prompt)))

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(attempt) * backoffInterval
			c.logger.Info("retrying generation",
				zap.Int("attempt", attempt+1),
				zap.Duration("wait", wait))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return fallbackSolution(question)
			}
		}

		raw, err := c.doGenerate(ctx, prompt)
		if err == nil {
			return parseSolution(raw)
		}

		if !isRetryable(err) {
			c.logger.Error("non-recoverable generation error", zap.Error(err))
			return fallbackSolution(question)
		}
		c.logger.Warn("generation attempt failed", zap.Int("attempt", attempt+1), zap.Error(err))
	}

	c.logger.Error("generation retries exhausted, using fallback")
	return fallbackSolution(question)
}

// generateRequest is the JSON body for POST /api/generate.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// generateResponse mirrors the JSON returned by POST /api/generate.
type generateResponse struct {
	Response string `json:"response"`
}

// doGenerate performs one backend call and returns the raw reply text.
// Timeouts and non-200 statuses are retryable; every other transport failure,
// and a body that fails to decode, is not.
func (c *Client) doGenerate(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(generateRequest{
		Model:  c.config.Model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Only timeouts earn a retry. A refused or dropped connection is
		// not going to recover within the backoff window.
		var netErr net.Error
		if (errors.As(err, &netErr) && netErr.Timeout()) || errors.Is(err, context.DeadlineExceeded) {
			return "", &retryableError{err: fmt.Errorf("backend request timed out: %w", err)}
		}
		return "", fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &retryableError{err: fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))}
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return out.Response, nil
}

// fallbackSolution is the fixed degraded answer used whenever the backend
// cannot produce one. Its step list always has exactly 3 entries.
func fallbackSolution(question string) *solution.Solution {
	return &solution.Solution{
		FinalAnswer: "Unable to generate solution due to backend unavailability",
		Steps: []string{
			"The generation model is currently unavailable or taking too long to respond.",
			"Please try again later or with a simpler question.",
			"Your question was: " + question,
		},
	}
}

// retryableError marks transient transport failures worth retrying.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}
