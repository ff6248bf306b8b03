package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"
)

// ChromemConfig holds configuration for the chromem-go embedded store.
type ChromemConfig struct {
	// Path is the directory for persistent storage. Empty means in-memory.
	Path string

	// Compress enables gzip compression for stored data.
	Compress bool

	// Collection is the collection name. Default: "math_questions".
	Collection string
}

// ApplyDefaults sets default values for unset fields.
func (c *ChromemConfig) ApplyDefaults() {
	if c.Collection == "" {
		c.Collection = "math_questions"
	}
}

// ChromemStore implements Store using chromem-go, an embeddable vector
// database with no external service dependency. Documents are keyed by the
// question text; the solution payload rides in the document metadata.
type ChromemStore struct {
	collection *chromem.Collection
	logger     *zap.Logger
}

// NewChromemStore creates a ChromemStore. The embedder is required; a nil
// logger is replaced with a no-op logger.
func NewChromemStore(cfg ChromemConfig, embedder Embedder, logger *zap.Logger) (*ChromemStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.ApplyDefaults()

	var (
		db  *chromem.DB
		err error
	)
	if cfg.Path == "" {
		db = chromem.NewDB()
	} else {
		path, perr := expandPath(cfg.Path)
		if perr != nil {
			return nil, fmt.Errorf("expanding path: %w", perr)
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", path, err)
		}
		db, err = chromem.NewPersistentDB(path, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("creating chromem DB: %w", err)
		}
	}

	collection, err := db.GetOrCreateCollection(cfg.Collection, nil, chromem.EmbeddingFunc(embedder.EmbedQuery))
	if err != nil {
		return nil, fmt.Errorf("creating collection %s: %w", cfg.Collection, err)
	}

	return &ChromemStore{
		collection: collection,
		logger:     logger,
	}, nil
}

// Search returns the single best match for the question, or nil when the
// collection is empty.
func (s *ChromemStore) Search(ctx context.Context, question string) (*Match, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}
	if s.collection.Count() == 0 {
		return nil, nil
	}

	results, err := s.collection.Query(ctx, question, 1, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying collection: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	res := results[0]
	payload, err := payloadFromMetadata(res.Content, res.Metadata)
	if err != nil {
		return nil, fmt.Errorf("decoding payload for %s: %w", res.ID, err)
	}

	s.logger.Debug("memory search hit",
		zap.String("id", res.ID),
		zap.Float32("score", res.Similarity))

	return &Match{
		ID:      res.ID,
		Score:   float64(res.Similarity),
		Payload: payload,
	}, nil
}

// Add stores a payload and returns the new record id.
func (s *ChromemStore) Add(ctx context.Context, p Payload) (string, error) {
	if strings.TrimSpace(p.Question) == "" {
		return "", ErrEmptyQuestion
	}

	steps, err := json.Marshal(p.Steps)
	if err != nil {
		return "", fmt.Errorf("encoding steps: %w", err)
	}

	id := uuid.NewString()
	metadata := map[string]string{
		"solution": p.Answer,
		"steps":    string(steps),
	}
	if p.OriginalSolution != "" {
		metadata["original_solution"] = p.OriginalSolution
	}

	doc := chromem.Document{
		ID:       id,
		Content:  p.Question,
		Metadata: metadata,
	}
	if err := s.collection.AddDocument(ctx, doc); err != nil {
		return "", fmt.Errorf("adding document: %w", err)
	}
	return id, nil
}

// payloadFromMetadata rebuilds a Payload from a stored document. The question
// is the document content; everything else lives in metadata.
func payloadFromMetadata(content string, metadata map[string]string) (Payload, error) {
	p := Payload{
		Question:         content,
		Answer:           metadata["solution"],
		OriginalSolution: metadata["original_solution"],
	}
	if raw, ok := metadata["steps"]; ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &p.Steps); err != nil {
			return Payload{}, err
		}
	}
	return p, nil
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
