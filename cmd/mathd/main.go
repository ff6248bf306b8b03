// Mathd answers free-text mathematics questions over HTTP by orchestrating a
// semantic memory store, a web-search tool, a human-feedback archive, and a
// text-generation backend.
//
// Usage:
//
//	# Start the daemon with defaults
//	mathd
//
//	# Start with a config file
//	mathd -config /etc/mathd/config.yaml
//
//	# Seed the memory store from a JSON dataset
//	mathd seed questions.json
//
//	# Show version information
//	mathd version
//
// Configuration comes from a YAML file and MATHD_* environment variables;
// see internal/config for the full surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	chromem "github.com/philippgille/chromem-go"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mathd/internal/config"
	"github.com/fyrsmithlabs/mathd/internal/feedback"
	"github.com/fyrsmithlabs/mathd/internal/generation"
	"github.com/fyrsmithlabs/mathd/internal/logging"
	"github.com/fyrsmithlabs/mathd/internal/memory"
	"github.com/fyrsmithlabs/mathd/internal/pipeline"
	"github.com/fyrsmithlabs/mathd/internal/server"
	"github.com/fyrsmithlabs/mathd/internal/websearch"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		case "seed":
			if len(args) != 2 {
				fmt.Fprintln(os.Stderr, "usage: mathd seed <dataset.json>")
				os.Exit(1)
			}
			if err := runSeed(*configPath, args[1]); err != nil {
				log.Fatalf("Seed error: %v", err)
			}
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  mathd                  Start the mathd daemon\n")
			fmt.Fprintf(os.Stderr, "  mathd seed <file>      Seed the memory store from a JSON dataset\n")
			fmt.Fprintf(os.Stderr, "  mathd version          Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("mathd %s\n", version)
	fmt.Printf("  commit: %s\n", gitCommit)
	fmt.Printf("  built:  %s\n", buildDate)
}

// run wires the daemon together and blocks until the context is cancelled.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("mathd starting",
		zap.String("version", version),
		zap.String("model", cfg.Generation.Model))

	memStore, err := newMemoryStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating memory store: %w", err)
	}

	archive, err := feedback.Open(cfg.Feedback.DataDir)
	if err != nil {
		return fmt.Errorf("opening feedback archive: %w", err)
	}
	defer archive.Close()

	generator := generation.NewClient(generation.Config{
		BaseURL:       cfg.Generation.BaseURL,
		Model:         cfg.Generation.Model,
		Timeout:       cfg.Generation.Timeout,
		HealthTimeout: cfg.Generation.HealthTimeout,
		MaxRetries:    cfg.Generation.MaxRetries,
	}, logger.Named("generation"))

	webClient := websearch.NewClient(websearch.Config{
		BaseURL:          cfg.WebSearch.BaseURL,
		HandshakeTimeout: cfg.WebSearch.HandshakeTimeout,
		InvokeTimeout:    cfg.WebSearch.InvokeTimeout,
		ResultLimit:      cfg.WebSearch.ResultLimit,
		Engines:          cfg.WebSearch.Engines,
	}, logger.Named("websearch"))
	defer webClient.Close(context.Background())

	augmenter := feedback.NewAugmenter(archive, cfg.Feedback.MinRating, cfg.Feedback.MaxExamples, logger.Named("feedback"))

	coordinator := pipeline.NewCoordinator(memStore, webClient,
		cfg.Memory.StrongThreshold, cfg.Memory.ExactThreshold, logger.Named("retrieval"))
	orchestrator := pipeline.NewOrchestrator(coordinator, generator, augmenter, logger.Named("pipeline"))

	registry := prometheus.NewRegistry()
	metrics := pipeline.NewMetrics(registry)

	solver := pipeline.NewSolver(orchestrator, memStore, generator, archive,
		cfg.Memory.StrongThreshold, metrics, logger.Named("solver"))

	srv, err := server.New(solver, generator, registry, server.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, logger.Named("http"))
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return srv.Start(ctx)
}

// newMemoryStore builds the chromem-backed semantic store with embeddings
// served by the generation backend.
func newMemoryStore(cfg *config.Config, logger *zap.Logger) (memory.Store, error) {
	embedder := memory.EmbedderFunc(chromem.NewEmbeddingFuncOllama(
		cfg.Memory.EmbedModel,
		cfg.Generation.BaseURL+"/api",
	))
	return memory.NewChromemStore(memory.ChromemConfig{
		Path:       cfg.Memory.Path,
		Collection: cfg.Memory.Collection,
	}, embedder, logger.Named("memory"))
}
