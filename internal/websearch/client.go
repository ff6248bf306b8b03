// Package websearch implements the session-oriented JSON-RPC client for the
// web-search tool.
//
// The protocol is a handshake-then-invoke shape: mcp.initialize returns a
// session identifier in a response header, every subsequent call must present
// that identifier in a request header, and a DELETE closes the session. Calls
// made without a valid session first re-initialize transparently.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// sessionHeader carries the session identifier in both directions.
	sessionHeader = "Mcp-Session-Id"

	methodInitialize = "mcp.initialize"
	methodInvoke     = "mcp.tool.invoke"

	protocolVersion = "1.0"
	searchToolName  = "search"

	defaultHandshakeTimeout = 10 * time.Second
	defaultInvokeTimeout    = 30 * time.Second
	defaultResultLimit      = 5
)

// Result is one web search hit. Order within a result list is the search
// tool's relevance order and must be preserved.
type Result struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// Config holds web-search client settings.
type Config struct {
	// BaseURL is the tool server root, e.g. "http://localhost:3000". The
	// protocol endpoint is BaseURL + "/mcp".
	BaseURL string

	// HandshakeTimeout bounds initialize and close calls. Default: 10s.
	HandshakeTimeout time.Duration

	// InvokeTimeout bounds tool invocations. Default: 30s.
	InvokeTimeout time.Duration

	// ResultLimit is the maximum number of results requested. Default: 5.
	ResultLimit int

	// Engines selects the search engines the tool should use.
	Engines []string
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:3000"
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = defaultHandshakeTimeout
	}
	if c.InvokeTimeout == 0 {
		c.InvokeTimeout = defaultInvokeTimeout
	}
	if c.ResultLimit == 0 {
		c.ResultLimit = defaultResultLimit
	}
	if len(c.Engines) == 0 {
		c.Engines = []string{"exa"}
	}
}

// Client is a session-holding web-search client. It is safe for concurrent
// use; the session is shared and re-established on demand.
type Client struct {
	config     Config
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger

	mu        sync.Mutex
	sessionID string
}

// NewClient creates a web-search client. A nil logger is replaced with a
// no-op logger.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.ApplyDefaults()

	return &Client{
		config:     cfg,
		endpoint:   strings.TrimRight(cfg.BaseURL, "/") + "/mcp",
		httpClient: &http.Client{Timeout: 0},
		logger:     logger,
	}
}

// rpcRequest is the JSON-RPC style request envelope.
type rpcRequest struct {
	Jsonrpc string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type initializeParams struct {
	Version string `json:"version"`
}

type invokeParams struct {
	Name      string          `json:"name"`
	Arguments searchArguments `json:"arguments"`
}

type searchArguments struct {
	Query   string   `json:"query"`
	Limit   int      `json:"limit"`
	Engines []string `json:"engines"`
}

type invokeResponse struct {
	Result []Result `json:"result"`
}

// Initialize establishes a session with the tool server. It is idempotent:
// an existing session is kept.
func (c *Client) Initialize(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initializeLocked(ctx)
}

func (c *Client) initializeLocked(ctx context.Context) error {
	if c.sessionID != "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.HandshakeTimeout)
	defer cancel()

	body, err := json.Marshal(rpcRequest{
		Jsonrpc: "2.0",
		ID:      uuid.NewString(),
		Method:  methodInitialize,
		Params:  initializeParams{Version: protocolVersion},
	})
	if err != nil {
		return fmt.Errorf("marshaling initialize request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating initialize request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("initialize request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("initialize returned status %d", resp.StatusCode)
	}

	sessionID := resp.Header.Get(sessionHeader)
	if sessionID == "" {
		return fmt.Errorf("no session id returned in %s header", sessionHeader)
	}

	c.sessionID = sessionID
	c.logger.Info("web search session initialized", zap.String("session_id", sessionID))
	return nil
}

// Search invokes the search tool and returns results in the tool's relevance
// order. A session is established first if none exists.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.initializeLocked(ctx); err != nil {
		return nil, fmt.Errorf("session initialization: %w", err)
	}

	results, err := c.invokeSearchLocked(ctx, query)
	if err != nil {
		// The session may have expired server-side. Drop it so the next
		// call re-initializes.
		c.sessionID = ""
		return nil, err
	}
	return results, nil
}

func (c *Client) invokeSearchLocked(ctx context.Context, query string) ([]Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.InvokeTimeout)
	defer cancel()

	body, err := json.Marshal(rpcRequest{
		Jsonrpc: "2.0",
		ID:      uuid.NewString(),
		Method:  methodInvoke,
		Params: invokeParams{
			Name: searchToolName,
			Arguments: searchArguments{
				Query:   query,
				Limit:   c.config.ResultLimit,
				Engines: c.config.Engines,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling invoke request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating invoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(sessionHeader, c.sessionID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("invoke request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("invoke returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var out invokeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding invoke response: %w", err)
	}

	c.logger.Debug("web search completed",
		zap.String("query", query),
		zap.Int("results", len(out.Result)))
	return out.Result, nil
}

// Close ends the current session, if any.
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sessionID == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.HandshakeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("creating close request: %w", err)
	}
	req.Header.Set(sessionHeader, c.sessionID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("close request failed: %w", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("close returned status %d", resp.StatusCode)
	}

	c.logger.Info("web search session closed", zap.String("session_id", c.sessionID))
	c.sessionID = ""
	return nil
}
