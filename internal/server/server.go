// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the composition root: it connects the repositories,
// services, handlers, engine pool, and scheduler in one place, so the rest
// of the codebase stays free of wiring concerns.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/chess-coach/internal/analysis"
	"github.com/sakif/chess-coach/internal/auth"
	"github.com/sakif/chess-coach/internal/chesscom"
	"github.com/sakif/chess-coach/internal/coach"
	"github.com/sakif/chess-coach/internal/engine"
	"github.com/sakif/chess-coach/internal/handler"
	"github.com/sakif/chess-coach/internal/middleware"
	sqliteRepo "github.com/sakif/chess-coach/internal/repository/sqlite"
	"github.com/sakif/chess-coach/internal/scheduler"
	"github.com/sakif/chess-coach/internal/service"
)

// Config holds server configuration, loaded from the environment in
// cmd/server.
type Config struct {
	Port   int
	DBPath string

	JWTSecret string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string

	GeminiAPIKey string
	GeminiModel  string

	// EnginePath is the UCI engine binary. Empty disables analysis runs;
	// the server still serves sessions, linking, and stored habits.
	EnginePath     string
	EnginePoolSize int

	ChessAPIBaseURL string // empty uses the public chess.com API
	ChessUserAgent  string

	PrefetchEnabled bool
}

// Server owns the HTTP router and the long-lived resources behind it: the
// database, the engine pool, and the prefetch scheduler. All three are shut
// down in Start's cleanup path.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	pool   *engine.Pool // nil when no engine binary is configured
	sched  *scheduler.Scheduler
}

// New assembles the full dependency chain:
//
//	sqlite.DB → repositories → pipeline/services → handlers → routes
//
// Optional resources degrade instead of failing: no engine binary means
// /api/analyze answers 503, no Gemini key means habit feedback comes from
// the static fallback.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.config.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	google := auth.NewGoogleProvider(
		s.config.GoogleClientID,
		s.config.GoogleClientSecret,
		s.config.GoogleCallbackURL,
	)

	chessOpts := []chesscom.Option{}
	if s.config.ChessAPIBaseURL != "" {
		chessOpts = append(chessOpts, chesscom.WithBaseURL(s.config.ChessAPIBaseURL))
	}
	if s.config.ChessUserAgent != "" {
		chessOpts = append(chessOpts, chesscom.WithUserAgent(s.config.ChessUserAgent))
	}
	chessClient := chesscom.New(s.logger, chessOpts...)

	var engineSource engine.Source
	if s.config.EnginePath != "" {
		engineCfg := engine.DefaultConfig(s.config.EnginePath)
		if s.config.EnginePoolSize > 0 {
			engineCfg.PoolSize = s.config.EnginePoolSize
		}
		s.pool = engine.NewPool(engineCfg, s.logger)
		engineSource = s.pool
	} else {
		s.logger.Warn("no engine binary configured — /api/analyze will be unavailable")
	}

	var habitCoach analysis.Coach
	if s.config.GeminiAPIKey != "" {
		gemini, err := coach.NewGemini(context.Background(), s.config.GeminiAPIKey, s.config.GeminiModel, s.logger)
		if err != nil {
			return fmt.Errorf("creating coach: %w", err)
		}
		habitCoach = gemini
	} else {
		s.logger.Warn("no Gemini API key configured — habit feedback uses static fallback")
		habitCoach = coach.Static{}
	}

	workers := s.config.EnginePoolSize
	pipeline := analysis.NewPipeline(s.db, s.db, s.db, chessClient, engineSource, habitCoach, workers, s.logger)

	authService := service.NewAuthService(s.db, tokens, s.logger)
	userService := service.NewUserService(s.db, chessClient, s.logger)

	// The pipeline is only handed to the service when it can actually run;
	// ingestion-only use (the prefetch scheduler) works without an engine.
	var runner service.PipelineRunner
	if engineSource != nil {
		runner = pipeline
	}
	analysisService := service.NewAnalysisService(s.db, s.db, runner, s.logger)

	authHandler := handler.NewAuthHandler(google, authService, s.logger)
	userHandler := handler.NewUserHandler(userService, s.logger)
	analysisHandler := handler.NewAnalysisHandler(analysisService, s.logger)

	if s.config.PrefetchEnabled {
		s.sched = scheduler.New(s.db, pipeline, s.logger)
	}

	s.router.Get("/auth/google/login", authHandler.HandleGoogleLogin)
	s.router.Get("/auth/google/callback", authHandler.HandleGoogleCallback)
	s.router.Get("/logout", authHandler.HandleLogout)

	s.router.Route("/api", func(r chi.Router) {
		r.With(auth.OptionalAuth(tokens)).Get("/user/status", userHandler.HandleStatus)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Post("/user/link_chess_account", userHandler.HandleLinkChessAccount)
			r.Post("/analyze", analysisHandler.HandleAnalyze)
			r.Get("/user/latest-habits", analysisHandler.HandleLatestHabits)
		})
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM and shuts everything down
// gracefully: stop accepting connections, drain in-flight requests for up
// to 30 seconds, stop the scheduler and engine pool, close the database.
func (s *Server) Start() error {
	defer s.db.Close()

	if s.pool != nil {
		s.pool.Start()
		defer s.pool.Stop()
	}
	if s.sched != nil {
		s.sched.Start()
		defer s.sched.Stop()
	}

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", s.config.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// Analysis runs synchronously inside the request and takes minutes
		// for a multi-month range, so no global write timeout.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath))
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
