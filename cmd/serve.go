package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kozaktomas/facegate/internal/auth"
	"github.com/kozaktomas/facegate/internal/backend"
	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/constants"
	"github.com/kozaktomas/facegate/internal/database"
	"github.com/kozaktomas/facegate/internal/database/mariadb"
	"github.com/kozaktomas/facegate/internal/database/postgres"
	"github.com/kozaktomas/facegate/internal/web"
	"github.com/kozaktomas/facegate/internal/workflow"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the face gateway",
	Long: `Start the facegate face gateway.

The gateway stores one face embedding per user in PostgreSQL, identifies faces
server side and hands out sessions and signed identity assertions. User and
attendance calls are forwarded to the WorkFlow backend at BACKEND_URL.

Required environment:
  DATABASE_URL   PostgreSQL connection URL (pgvector extension required)
  BACKEND_URL    WorkFlow REST backend

Optional:
  JWT_SECRET             signs identity assertions (random per process if unset)
  BACKEND_DATABASE_URL   sync faces straight from the backend's MariaDB`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides WEB_PORT)")
	serveCmd.Flags().String("host", "", "Host to bind to (overrides WEB_HOST)")
	serveCmd.Flags().String("session-secret", "", "Secret for signing session cookies (overrides WEB_SESSION_SECRET)")
}

// applyServeFlags lets flags override the environment.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	if port := mustGetInt(cmd, "port"); port > 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}
	if secret := mustGetString(cmd, "session-secret"); secret != "" {
		cfg.Web.SessionSecret = secret
	}
}

// registerServeBackends registers the identity repository and returns the session repository.
func registerServeBackends(pool *postgres.Pool) *postgres.SessionRepository {
	identityRepo := postgres.NewIdentityRepository(pool)
	database.RegisterPostgresBackend(
		func() database.IdentityReader { return identityRepo },
		func() database.IdentityWriter { return identityRepo },
	)
	fmt.Printf("Using PostgreSQL identity store\n")

	sessionRepo := postgres.NewSessionRepository(pool)
	fmt.Printf("Session persistence enabled (PostgreSQL)\n")
	return sessionRepo
}

// openSyncSource opens the backend database when configured. The returned
// close function is never nil.
func openSyncSource(cfg *config.Config) (workflow.Source, func(), error) {
	if cfg.Backend.DatabaseURL == "" {
		return nil, func() {}, nil
	}
	pool, err := mariadb.NewPool(cfg.Backend.DatabaseURL)
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to connect to backend database: %w", err)
	}
	fmt.Printf("Face sync reads the backend database directly\n")
	return pool, func() { pool.Close() }, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	applyServeFlags(cmd, cfg)
	logger := newLogger(cfg)

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}
	if cfg.Backend.URL == "" {
		return errors.New("BACKEND_URL environment variable is required")
	}

	fmt.Printf("Connecting to PostgreSQL database...\n")
	pool, err := postgres.Initialize(&cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	defer pool.Close()

	sessionRepo := registerServeBackends(pool)
	store, err := database.GetIdentityWriter(context.Background())
	if err != nil {
		return fmt.Errorf("failed to get identity writer: %w", err)
	}

	bc, err := backend.NewClient(cfg.Backend.URL, constants.BackendTimeout)
	if err != nil {
		return fmt.Errorf("invalid BACKEND_URL: %w", err)
	}

	if cfg.Auth.JWTSecret == "" {
		fmt.Println("Warning: JWT_SECRET is not set, assertions are only valid until restart")
	}
	signer, err := auth.NewSigner(cfg.Auth.JWTSecret, cfg.Auth.AssertionTTL)
	if err != nil {
		return fmt.Errorf("failed to create assertion signer: %w", err)
	}

	syncSource, closeSync, err := openSyncSource(cfg)
	if err != nil {
		return err
	}
	defer closeSync()

	server, err := web.NewServer(cfg, web.Deps{
		Store:       store,
		Backend:     bc,
		Signer:      signer,
		SessionRepo: sessionRepo,
		SyncSource:  syncSource,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting facegate gateway on http://%s:%d\n", cfg.Web.Host, cfg.Web.Port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
