package http

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/custodia-labs/ragcore/internal/core/domain"
	"github.com/custodia-labs/ragcore/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string
	logger     *slog.Logger

	// Services
	ingestService   driving.IngestService
	queryService    driving.QueryService
	documentService driving.DocumentService

	// Infrastructure
	runtimeConfig *domain.RuntimeConfig
	db            Pinger // document store health check (optional)
	redisClient   Pinger // Redis health check (optional)
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string
	Logger  *slog.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8080,
		Version: "dev",
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	ingestService driving.IngestService,
	queryService driving.QueryService,
	documentService driving.DocumentService,
	runtimeConfig *domain.RuntimeConfig,
	db Pinger, // can be nil
	redisClient Pinger, // can be nil
) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:          http.NewServeMux(),
		version:         cfg.Version,
		logger:          logger,
		ingestService:   ingestService,
		queryService:    queryService,
		documentService: documentService,
		runtimeConfig:   runtimeConfig,
		db:              db,
		redisClient:     redisClient,
	}

	s.setupRoutes()

	handler := NewLoggingMiddleware(logger).Handler(s.router)
	handler = NewRecoveryMiddleware(logger).Handler(handler)

	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:     handler,
		ReadTimeout: 30 * time.Second,
		// No WriteTimeout: query streaming holds the response open for
		// as long as generation runs.
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health endpoints
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Document endpoints
	s.router.HandleFunc("POST /api/v1/documents", s.handleSubmitDocument)
	s.router.HandleFunc("GET /api/v1/documents", s.handleListDocuments)
	s.router.HandleFunc("GET /api/v1/documents/{id}", s.handleGetDocument)
	s.router.HandleFunc("DELETE /api/v1/documents/{id}", s.handleDeleteDocument)

	// Query endpoints
	s.router.HandleFunc("POST /api/v1/query", s.handleQuery)
	s.router.HandleFunc("POST /api/v1/search", s.handleSearch)
}

// Handler returns the root handler, middleware included. Exposed for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	// Channel to listen for OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-stop
	log.Println("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
