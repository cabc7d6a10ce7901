// Package http is the driving adapter exposing the conversion engine as a
// JSON API. All business decisions live behind the driving ports; this layer
// parses requests, maps domain errors to statuses, and emits quota headers.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fileforge/fileforge-core/internal/core/ports/driven"
	"github.com/fileforge/fileforge-core/internal/core/ports/driving"
	"github.com/fileforge/fileforge-core/internal/core/services"
	"github.com/fileforge/fileforge-core/internal/runtime"
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
	convertService driving.ConversionService
	classifier     *services.Classifier
	engines        *runtime.Services

	// Infrastructure
	keyStore    driven.KeyStore
	db          Pinger // PostgreSQL health check (optional)
	redisClient Pinger // Redis health check (optional)

	maxUploadBytes int64
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	Version        string
	MaxUploadBytes int64
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		Version:        "dev",
		MaxUploadBytes: services.DefaultMaxFileSize,
		AllowedOrigins: []string{"*"},
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	convertService driving.ConversionService,
	classifier *services.Classifier,
	engines *runtime.Services,
	keyStore driven.KeyStore,
	db Pinger, // can be nil
	redisClient Pinger, // can be nil
	logger *slog.Logger,
) *Server {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = services.DefaultMaxFileSize
	}

	s := &Server{
		router:         http.NewServeMux(),
		version:        cfg.Version,
		logger:         logger,
		convertService: convertService,
		classifier:     classifier,
		engines:        engines,
		keyStore:       keyStore,
		db:             db,
		redisClient:    redisClient,
		maxUploadBytes: cfg.MaxUploadBytes,
	}

	s.setupRoutes()

	// Uploads need generous timeouts; sync conversion of a large PDF can
	// legitimately take minutes.
	handler := NewRecoveryMiddleware(logger).Handler(
		NewCORSMiddleware(cfg.AllowedOrigins).Handler(
			NewLoggingMiddleware(logger).Handler(s.router)))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.keyStore)

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Conversion endpoints (authenticated)
	s.router.Handle("POST /api/v1/convert",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleConvertAsync)))
	s.router.Handle("POST /api/v1/convert/sync",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleConvertSync)))
	s.router.Handle("GET /api/v1/convert/{id}/status",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleJobStatus)))

	// Result endpoints (authenticated)
	s.router.Handle("GET /api/v1/documents/{id}",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetDocument)))
	s.router.Handle("GET /api/v1/documents/{id}/chunks",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleGetDocumentChunks)))

	// Format discovery (authenticated)
	s.router.Handle("GET /api/v1/formats",
		authMiddleware.Authenticate(http.HandlerFunc(s.handleFormats)))
}

// Handler returns the server's root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server. Blocks until the listener fails or Stop is
// called.
func (s *Server) Start() error {
	s.logger.Info("starting http server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
