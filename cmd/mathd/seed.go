package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mathd/internal/config"
	"github.com/fyrsmithlabs/mathd/internal/logging"
	"github.com/fyrsmithlabs/mathd/internal/memory"
)

// seedEntry is one record of the seed dataset file.
type seedEntry struct {
	Question         string   `json:"question"`
	Solution         string   `json:"solution"`
	Steps            []string `json:"steps"`
	OriginalSolution string   `json:"original_solution,omitempty"`
}

// runSeed loads a JSON dataset into the memory store so answered questions
// can be retrieved semantically from the first request on.
func runSeed(configPath, datasetPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Level, "console")
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	content, err := os.ReadFile(datasetPath)
	if err != nil {
		return fmt.Errorf("reading dataset: %w", err)
	}

	var entries []seedEntry
	if err := json.Unmarshal(content, &entries); err != nil {
		return fmt.Errorf("parsing dataset: %w", err)
	}

	store, err := newMemoryStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating memory store: %w", err)
	}

	ctx := context.Background()
	for i, entry := range entries {
		if entry.Question == "" {
			logger.Warn("skipping entry without question", zap.Int("index", i))
			continue
		}
		id, err := store.Add(ctx, memory.Payload{
			Question:         entry.Question,
			Answer:           entry.Solution,
			Steps:            entry.Steps,
			OriginalSolution: entry.OriginalSolution,
		})
		if err != nil {
			return fmt.Errorf("adding entry %d: %w", i, err)
		}
		logger.Info("seeded question", zap.Int("index", i), zap.String("id", id))
	}

	logger.Info("seeding complete", zap.Int("entries", len(entries)))
	return nil
}
