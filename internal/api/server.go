package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/engram/engram/internal/config"
	"github.com/engram/engram/internal/logging"
	"github.com/engram/engram/internal/memory"
	"github.com/engram/engram/internal/ratelimit"
)

// Server is the HTTP/JSON transport: dispatch, validation, response
// shaping. All domain logic lives in internal/memory; handlers stay thin.
type Server struct {
	router        *gin.Engine
	config        *config.Config
	memoryService *memory.Service
	httpServer    *http.Server
	log           *logging.Logger
	startedAt     time.Time
}

// NewServer builds the HTTP server and its route table.
func NewServer(memoryService *memory.Service, cfg *config.Config) *Server {
	log := logging.GetLogger("api")
	log.Info("initializing HTTP API server")

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// CORS open to * on GET, POST, OPTIONS — this is a local,
	// single-node daemon with no ACL/auth surface.
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
		MaxAge:          12 * time.Hour,
	}))

	limiter := ratelimit.NewLimiter(ratelimit.DefaultConfig())
	router.Use(RateLimitMiddleware(limiter))
	router.Use(MaxBodySizeMiddleware(DefaultBodyLimit))

	server := &Server{
		router:        router,
		config:        cfg,
		memoryService: memoryService,
		log:           log,
		startedAt:     time.Now(),
	}
	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/capabilities", s.capabilitiesHandler)
	s.router.POST("/remember", s.rememberHandler)
	s.router.POST("/recall", s.recallHandler)
	s.router.POST("/forget", s.forgetHandler)
	s.router.POST("/context/hydrate", s.contextHydrateGuarded)
}

// contextHydrateGuarded returns 403 before binding the body when the
// context_hydration flag is off.
func (s *Server) contextHydrateGuarded(c *gin.Context) {
	if !s.config.EnableContextHydration {
		jsonError(c, http.StatusForbidden, "context_hydrate is disabled")
		return
	}
	s.contextHydrateHandler(c)
}

// Start runs the HTTP server until it errors or is stopped.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.HTTPHost, s.config.HTTPPort)
	s.httpServer = &http.Server{Addr: addr, Handler: s.router}
	s.log.Info("starting HTTP API server", "address", addr)
	return s.httpServer.ListenAndServe()
}

// StartWithContext runs the server and blocks until ctx is cancelled or the
// server errors, then shuts down gracefully within shutdownTimeout.
func (s *Server) StartWithContext(ctx context.Context, shutdownTimeout time.Duration) error {
	addr := fmt.Sprintf("%s:%d", s.config.HTTPHost, s.config.HTTPPort)
	s.httpServer = &http.Server{Addr: addr, Handler: s.router}

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("starting HTTP API server", "address", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.log.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("stopping HTTP API server")
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.log.Error("server shutdown error", "error", err)
		return err
	}
	s.log.Info("HTTP API server stopped")
	return nil
}

// Router returns the underlying Gin engine for testing.
func (s *Server) Router() *gin.Engine {
	return s.router
}
