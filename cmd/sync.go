package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/database"
	"github.com/kozaktomas/facegate/internal/database/mariadb"
	"github.com/kozaktomas/facegate/internal/database/postgres"
	"github.com/kozaktomas/facegate/internal/workflow"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Import face embeddings of backend users into the gateway store",
	Long: `Import the face embeddings of all backend users into the gateway's
PostgreSQL store. Stored faces are overwritten. Users without a face or with an
embedding that cannot be decoded are skipped.

Examples:
  # Read users through the backend REST API
  facegate sync

  # Read the backend's MariaDB users table directly
  facegate sync --source mariadb

  # Ask the gateway to import, after identifying yourself on camera
  facegate sync --remote

  # JSON output for scripting
  facegate sync --json`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().String("source", "backend", "Where users are read from: backend or mariadb")
	syncCmd.Flags().Bool("json", false, "Output as JSON instead of progress bar")
	syncCmd.Flags().Bool("remote", false, "Run the import on the gateway instead of this machine")
	addCaptureFlags(syncCmd)
}

// SyncOutput represents the result of a sync run
type SyncOutput struct {
	Success       bool   `json:"success"`
	Source        string `json:"source"`
	Imported      int    `json:"imported"`
	Skipped       int    `json:"skipped"`
	Total         int    `json:"total"`
	DurationMs    int64  `json:"duration_ms"`
	DurationHuman string `json:"duration_human,omitempty"`
}

// openUserSource returns the configured user source and a close function.
func openUserSource(cfg *config.Config, source string) (workflow.Source, func(), error) {
	switch source {
	case "backend":
		bc, err := newBackendClient(cfg)
		if err != nil {
			return nil, nil, err
		}
		return bc, func() {}, nil
	case "mariadb":
		if cfg.Backend.DatabaseURL == "" {
			return nil, nil, errors.New("BACKEND_DATABASE_URL environment variable is required")
		}
		pool, err := mariadb.NewPool(cfg.Backend.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to backend database: %w", err)
		}
		return pool, func() { pool.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown source %q, use backend or mariadb", source)
}

func printSyncResult(res *workflow.SyncResult, source string, duration time.Duration, jsonOutput bool) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(SyncOutput{
			Success:       true,
			Source:        source,
			Imported:      res.Imported,
			Skipped:       res.Skipped,
			Total:         res.Total,
			DurationMs:    duration.Milliseconds(),
			DurationHuman: duration.Round(time.Millisecond).String(),
		})
	}

	fmt.Printf("Imported %d of %d users (%d skipped) in %s\n",
		res.Imported, res.Total, res.Skipped, duration.Round(time.Millisecond))
	return nil
}

// runRemoteSync triggers the import on the gateway, which requires a session.
func runRemoteSync(cmd *cobra.Command, cfg *config.Config, jsonOutput bool) error {
	logger := newLogger(cfg)

	ctx, cancel := captureContext(cmd)
	defer cancel()

	authed, _, logout, err := gatewayLogin(ctx, cmd, cfg, logger)
	if err != nil {
		return err
	}
	defer logout()

	startTime := time.Now()
	resp, err := authed.Sync(ctx)
	if err != nil {
		return fmt.Errorf("gateway sync failed: %w", err)
	}
	res := workflow.SyncResult{Imported: resp.Imported, Skipped: resp.Skipped, Total: resp.Total}
	return printSyncResult(&res, "gateway", time.Since(startTime), jsonOutput)
}

func runSync(cmd *cobra.Command, args []string) error {
	source := mustGetString(cmd, "source")
	jsonOutput := mustGetBool(cmd, "json")

	ctx := context.Background()
	cfg := config.Load()
	if mustGetBool(cmd, "remote") {
		return runRemoteSync(cmd, cfg, jsonOutput)
	}

	logger := newLogger(cfg)
	startTime := time.Now()

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}
	pool, err := postgres.Initialize(&cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	defer pool.Close()

	identityRepo := postgres.NewIdentityRepository(pool)
	database.RegisterPostgresBackend(
		func() database.IdentityReader { return identityRepo },
		func() database.IdentityWriter { return identityRepo },
	)
	store, err := database.GetIdentityWriter(ctx)
	if err != nil {
		return fmt.Errorf("failed to get identity writer: %w", err)
	}

	users, closeSource, err := openUserSource(cfg, source)
	if err != nil {
		return err
	}
	defer closeSource()

	if !jsonOutput {
		fmt.Printf("Importing faces from %s...\n", source)
	}

	importer := workflow.NewImporter(users, store, cfg.Capture.EmbeddingDim, logger)

	var bar *progressbar.ProgressBar
	if !jsonOutput {
		importer.OnProgress = func(done, total int) {
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetDescription("Importing"),
					progressbar.OptionShowCount(),
					progressbar.OptionShowIts(),
					progressbar.OptionSetItsString("users"),
					progressbar.OptionShowElapsedTimeOnFinish(),
					progressbar.OptionSetPredictTime(true),
					progressbar.OptionFullWidth(),
					progressbar.OptionSetTheme(progressbar.Theme{
						Saucer:        "=",
						SaucerHead:    ">",
						SaucerPadding: " ",
						BarStart:      "[",
						BarEnd:        "]",
					}),
				)
			}
			_ = bar.Set(done)
		}
	}

	res, err := importer.Sync(ctx)
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	return printSyncResult(res, source, time.Since(startTime), jsonOutput)
}
