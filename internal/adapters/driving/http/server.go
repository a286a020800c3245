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

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/domain"
	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/ports/driven"
	"github.com/felleslosninger/idporten-user-service-sub000/internal/core/ports/driving"
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

	// Services
	userService driving.UserService

	// Infrastructure
	loginQueue  driven.LoginQueue // nil applies logins synchronously
	auth        driven.AuthAdapter
	db          Pinger // PostgreSQL health check
	redisClient Pinger // Redis health check (optional)

	adminUsername     string
	adminPasswordHash string
	logger            *slog.Logger
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string

	AdminUsername     string
	AdminPasswordHash string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:          "0.0.0.0",
		Port:          8080,
		Version:       "dev",
		AdminUsername: "admin",
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	userService driving.UserService,
	loginQueue driven.LoginQueue, // can be nil
	auth driven.AuthAdapter,
	db Pinger,
	redisClient Pinger, // can be nil
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:            http.NewServeMux(),
		version:           cfg.Version,
		userService:       userService,
		loginQueue:        loginQueue,
		auth:              auth,
		db:                db,
		redisClient:       redisClient,
		adminUsername:     cfg.AdminUsername,
		adminPasswordHash: cfg.AdminPasswordHash,
		logger:            logger,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.buildHandler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// buildHandler configures routes and wraps them in the outer middleware
func (s *Server) buildHandler() http.Handler {
	s.setupRoutes()

	handler := NewLoggingMiddleware(s.logger).Handler(s.router)
	handler = NewRecoveryMiddleware(s.logger).Handler(handler)
	return handler
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.auth)
	requireRead := authMiddleware.RequireScope(domain.ScopeUserRead)
	requireWrite := authMiddleware.RequireScope(domain.ScopeUserWrite)
	basicAuth := NewBasicAuthMiddleware(s.auth, s.adminUsername, s.adminPasswordHash)

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.Handle("GET /metrics", promhttp.Handler())

	// Login API (bearer token with scope)
	s.router.Handle("POST /login/api/v1/users/search",
		requireRead(http.HandlerFunc(s.handleLoginSearchUsers)))
	s.router.Handle("POST /login/api/v1/users",
		requireWrite(http.HandlerFunc(s.handleLoginCreateUser)))
	s.router.Handle("POST /login/api/v1/users/{id}/logins",
		requireWrite(http.HandlerFunc(s.handleLoginRecordLogin)))

	// Admin API (basic auth)
	s.router.Handle("POST /admin/api/v1/users/search",
		basicAuth.Handler(http.HandlerFunc(s.handleAdminSearchUsers)))
	s.router.Handle("GET /admin/api/v1/users/{id}",
		basicAuth.Handler(http.HandlerFunc(s.handleAdminGetUser)))
	s.router.Handle("PUT /admin/api/v1/users/{id}/status",
		basicAuth.Handler(http.HandlerFunc(s.handleAdminUpdateStatus)))
	s.router.Handle("PUT /admin/api/v1/users/{id}/attributes",
		basicAuth.Handler(http.HandlerFunc(s.handleAdminUpdateAttributes)))
	s.router.Handle("DELETE /admin/api/v1/users/{id}",
		basicAuth.Handler(http.HandlerFunc(s.handleAdminDeleteUser)))
	s.router.Handle("POST /admin/api/v1/users/change-identifier",
		basicAuth.Handler(http.HandlerFunc(s.handleAdminChangeIdentifier)))

	// IM adapter (bearer token with scope)
	s.router.Handle("POST /im/v1/users",
		requireWrite(http.HandlerFunc(s.handleIMCreateUser)))
	s.router.Handle("GET /im/v1/users/{id}",
		requireRead(http.HandlerFunc(s.handleIMGetUser)))
	s.router.Handle("PUT /im/v1/users/{id}",
		requireWrite(http.HandlerFunc(s.handleIMUpdateUser)))

	// SCIM adapter (bearer token, read only)
	s.router.Handle("GET /scim/v2/Users/{id}",
		requireRead(http.HandlerFunc(s.handleSCIMGetUser)))
}

// Handler exposes the configured handler chain, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

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
