package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTool implements the tool server side of the session protocol: it hands
// out numbered session ids, rejects invokes with unknown sessions, and records
// every call.
type fakeTool struct {
	mu       sync.Mutex
	sessions map[string]bool
	nextID   int

	initCalls   int
	invokeCalls int
	closeCalls  int

	lastQuery   string
	lastLimit   int
	lastEngines []string

	results []Result
	// expire, when set, invalidates all sessions before the next invoke.
	expire bool
}

func newFakeTool(results []Result) *fakeTool {
	return &fakeTool{sessions: map[string]bool{}, results: results}
}

func (f *fakeTool) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.Method == http.MethodDelete {
		f.closeCalls++
		if !f.sessions[r.Header.Get(sessionHeader)] {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		delete(f.sessions, r.Header.Get(sessionHeader))
		return
	}

	var req struct {
		Jsonrpc string `json:"jsonrpc"`
		ID      string `json:"id"`
		Method  string `json:"method"`
		Params  struct {
			Name      string `json:"name"`
			Arguments struct {
				Query   string   `json:"query"`
				Limit   int      `json:"limit"`
				Engines []string `json:"engines"`
			} `json:"arguments"`
		} `json:"params"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch req.Method {
	case methodInitialize:
		f.initCalls++
		f.nextID++
		id := fmt.Sprintf("sess-%d", f.nextID)
		f.sessions[id] = true
		w.Header().Set(sessionHeader, id)
		w.Write([]byte(`{"result":{}}`))

	case methodInvoke:
		f.invokeCalls++
		if f.expire {
			f.sessions = map[string]bool{}
			f.expire = false
		}
		if !f.sessions[r.Header.Get(sessionHeader)] {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.lastQuery = req.Params.Arguments.Query
		f.lastLimit = req.Params.Arguments.Limit
		f.lastEngines = req.Params.Arguments.Engines
		json.NewEncoder(w).Encode(map[string]any{"result": f.results})

	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func newTestClient(t *testing.T, tool *fakeTool) *Client {
	t.Helper()
	srv := httptest.NewServer(tool)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL}, nil)
}

func TestSearchInitializesLazily(t *testing.T) {
	tool := newFakeTool([]Result{
		{Title: "first", URL: "http://a", Description: "top hit"},
		{Title: "second", URL: "http://b", Description: "next hit"},
		{Title: "third", URL: "http://c", Description: "last hit"},
	})
	client := newTestClient(t, tool)

	results, err := client.Search(context.Background(), "math problem solution: What is 2+3?")
	require.NoError(t, err)

	assert.Equal(t, 1, tool.initCalls, "search should establish the session itself")
	assert.Equal(t, 1, tool.invokeCalls)
	assert.Equal(t, "math problem solution: What is 2+3?", tool.lastQuery)
	assert.Equal(t, 5, tool.lastLimit)
	assert.Equal(t, []string{"exa"}, tool.lastEngines)

	require.Len(t, results, 3)
	assert.Equal(t, "first", results[0].Title)
	assert.Equal(t, "second", results[1].Title)
	assert.Equal(t, "third", results[2].Title)
}

func TestInitializeIsIdempotent(t *testing.T) {
	tool := newFakeTool(nil)
	client := newTestClient(t, tool)
	ctx := context.Background()

	require.NoError(t, client.Initialize(ctx))
	require.NoError(t, client.Initialize(ctx))
	assert.Equal(t, 1, tool.initCalls)

	_, err := client.Search(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, 1, tool.initCalls, "an existing session must be reused")
}

func TestSearchReinitializesAfterSessionLoss(t *testing.T) {
	tool := newFakeTool([]Result{{Title: "hit"}})
	client := newTestClient(t, tool)
	ctx := context.Background()

	_, err := client.Search(ctx, "q1")
	require.NoError(t, err)

	tool.mu.Lock()
	tool.expire = true
	tool.mu.Unlock()

	_, err = client.Search(ctx, "q2")
	require.Error(t, err, "the expired-session call surfaces the failure")

	results, err := client.Search(ctx, "q3")
	require.NoError(t, err, "the next call must re-initialize transparently")
	assert.Len(t, results, 1)
	assert.Equal(t, 2, tool.initCalls)
}

func TestInitializeWithoutSessionHeader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":{}}`))
	}))
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL}, nil)
	err := client.Initialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no session id")
}

func TestClose(t *testing.T) {
	tool := newFakeTool(nil)
	client := newTestClient(t, tool)
	ctx := context.Background()

	require.NoError(t, client.Initialize(ctx))
	require.NoError(t, client.Close(ctx))
	assert.Equal(t, 1, tool.closeCalls)

	tool.mu.Lock()
	remaining := len(tool.sessions)
	tool.mu.Unlock()
	assert.Zero(t, remaining, "close must end the session server-side")
}

func TestCloseWithoutSession(t *testing.T) {
	tool := newFakeTool(nil)
	client := newTestClient(t, tool)

	require.NoError(t, client.Close(context.Background()))
	assert.Zero(t, tool.closeCalls)
}

func TestSearchCustomConfig(t *testing.T) {
	tool := newFakeTool(nil)
	srv := httptest.NewServer(tool)
	defer srv.Close()

	client := NewClient(Config{
		BaseURL:     srv.URL,
		ResultLimit: 2,
		Engines:     []string{"exa", "bing"},
	}, nil)

	_, err := client.Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, 2, tool.lastLimit)
	assert.Equal(t, []string{"exa", "bing"}, tool.lastEngines)
}
