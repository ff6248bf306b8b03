// Package server provides the thin HTTP surface over the solve pipeline.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/mathd/internal/pipeline"
	"github.com/fyrsmithlabs/mathd/internal/solution"
)

// Service is the solve/feedback surface the HTTP handlers delegate to.
// *pipeline.Solver implements it.
type Service interface {
	Solve(ctx context.Context, question string) *solution.Solution
	SubmitFeedback(ctx context.Context, solutionID string, rating int, text, correction string) (*pipeline.FeedbackOutcome, error)
}

// ReadyChecker reports generation backend readiness for the health endpoint.
type ReadyChecker interface {
	Ready(ctx context.Context) bool
}

// Config holds HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
}

// Server is the mathd HTTP server.
type Server struct {
	echo    *echo.Echo
	service Service
	ready   ReadyChecker
	config  Config
	logger  *zap.Logger
}

// New creates an HTTP server. The ready checker and gatherer may be nil,
// which degrades /health to liveness-only and disables /metrics.
func New(service Service, ready ReadyChecker, gatherer prometheus.Gatherer, cfg Config, logger *zap.Logger) (*Server, error) {
	if service == nil {
		return nil, errors.New("service is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))

	s := &Server{
		echo:    e,
		service: service,
		ready:   ready,
		config:  cfg,
		logger:  logger,
	}

	e.POST("/solve", s.handleSolve)
	e.POST("/feedback", s.handleFeedback)
	e.GET("/health", s.handleHealth)
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	return s, nil
}

// requestLogger logs one line per request with method, path, status, and
// duration.
func requestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)))
			return err
		}
	}
}

// handleSolve handles POST /solve.
func (s *Server) handleSolve(c echo.Context) error {
	var req SolveRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	if strings.TrimSpace(req.Question) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "question is required"})
	}

	sol := s.service.Solve(c.Request().Context(), req.Question)
	return c.JSON(http.StatusOK, sol)
}

// handleFeedback handles POST /feedback.
func (s *Server) handleFeedback(c echo.Context) error {
	var req FeedbackRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	if req.SolutionID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "solution_id is required"})
	}
	if req.Rating < 1 || req.Rating > 5 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "rating must be between 1 and 5"})
	}

	outcome, err := s.service.SubmitFeedback(c.Request().Context(), req.SolutionID, req.Rating, req.Text, req.Correction)
	if err != nil {
		s.logger.Error("feedback submission failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to process feedback"})
	}
	if !outcome.Found {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error: fmt.Sprintf("solution with ID %s not found", req.SolutionID),
		})
	}

	return c.JSON(http.StatusOK, FeedbackResponse{
		Success:          true,
		Message:          "Feedback submitted successfully. Thank you for helping improve our system!",
		ImprovedSolution: outcome.Improved,
	})
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{
		Status:  "ok",
		Service: "mathd",
	}
	if s.ready != nil {
		resp.BackendReady = s.ready.Ready(c.Request().Context())
	}
	return c.JSON(http.StatusOK, resp)
}

// Start starts the server and blocks until the context is cancelled, then
// shuts down gracefully within the configured timeout. Returns nil on clean
// shutdown.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server starting", zap.String("addr", addr))
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	s.logger.Info("http server shutting down")
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

// Handler exposes the underlying handler for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
