package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-co-op/gocron"
	"github.com/kozaktomas/facegate/internal/auth"
	"github.com/kozaktomas/facegate/internal/backend"
	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/constants"
	"github.com/kozaktomas/facegate/internal/database"
	"github.com/kozaktomas/facegate/internal/logging"
	"github.com/kozaktomas/facegate/internal/web/middleware"
	"github.com/kozaktomas/facegate/internal/workflow"
)

// Deps are the collaborators the gateway serves requests with.
type Deps struct {
	Store       database.IdentityWriter
	Backend     *backend.Client
	Signer      *auth.Signer
	SessionRepo middleware.SessionRepository // optional
	SyncSource  workflow.Source              // defaults to Backend
}

// Server represents the face gateway
type Server struct {
	config         *config.Config
	deps           Deps
	router         *chi.Mux
	httpServer     *http.Server
	sessionManager *middleware.SessionManager
	limiter        *middleware.AttemptLimiter
	scheduler      *gocron.Scheduler
	logger         *slog.Logger
}

// NewServer creates a new gateway server
func NewServer(cfg *config.Config, deps Deps, logger *slog.Logger) (*Server, error) {
	if deps.Store == nil {
		return nil, errors.New("identity store is required")
	}
	if deps.Backend == nil {
		return nil, errors.New("backend client is required")
	}
	if deps.Signer == nil {
		return nil, errors.New("assertion signer is required")
	}
	if logger == nil {
		logger = logging.Discard()
	}

	r := chi.NewRouter()

	if cfg.Web.SessionSecret == "" {
		logger.Warn("WEB_SESSION_SECRET is not set, using a random secret; sessions end on restart")
	}
	sessionManager := middleware.NewSessionManager(cfg.Web.SessionSecret, deps.SessionRepo)
	sessionManager.SetLogger(logger)

	limiter := middleware.NewAttemptLimiter(
		middleware.DefaultMaxAttempts, middleware.DefaultAttemptWindow, middleware.DefaultLockout)
	if err := limiter.TrustProxies(cfg.Web.TrustedProxies); err != nil {
		return nil, fmt.Errorf("WEB_TRUSTED_PROXIES: %w", err)
	}

	s := &Server{
		config:         cfg,
		deps:           deps,
		router:         r,
		sessionManager: sessionManager,
		limiter:        limiter,
		logger:         logger,
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.CapturePeer)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(constants.BackendTimeout + 10*time.Second))
	r.Use(middleware.CORS(cfg.Web.AllowedOrigins))
	r.Use(middleware.SecurityHeaders())

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port),
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// startHousekeeping schedules the session purge and the attempt limiter pruning.
func (s *Server) startHousekeeping() error {
	scheduler, err := s.sessionManager.StartCleanup(constants.SessionCleanupInterval)
	if err != nil {
		return fmt.Errorf("scheduling session cleanup: %w", err)
	}
	if _, err := scheduler.Every(middleware.DefaultAttemptWindow).WaitForSchedule().Do(s.limiter.Prune); err != nil {
		scheduler.Stop()
		return fmt.Errorf("scheduling attempt pruning: %w", err)
	}
	s.scheduler = scheduler
	return nil
}

// Start starts the HTTP server and blocks until it is shut down
func (s *Server) Start() error {
	if err := s.startHousekeeping(); err != nil {
		return err
	}

	s.logger.Info("starting face gateway", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down face gateway")

	if s.scheduler != nil {
		s.scheduler.Stop()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}

// SessionManager returns the session manager for testing
func (s *Server) SessionManager() *middleware.SessionManager {
	return s.sessionManager
}
