package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/facegate/internal/config"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show gateway health and the capture settings it runs with",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	gc, err := newGatewayClient(cfg)
	if err != nil {
		return err
	}
	ctx := context.Background()

	health, err := gc.Health(ctx)
	if err != nil {
		return fmt.Errorf("gateway at %s is not reachable: %w", cfg.Gateway.URL, err)
	}
	fmt.Printf("Gateway:     %s (%s)\n", cfg.Gateway.URL, health.Status)
	fmt.Printf("Enrolled:    %d faces\n", health.Identities)

	gwCfg, err := gc.Config(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch gateway config: %w", err)
	}
	fmt.Printf("Embedding:   %d dimensions\n", gwCfg.EmbeddingDim)
	fmt.Printf("Threshold:   %.2f\n", gwCfg.MatchThreshold)
	fmt.Printf("Confidence:  %.2f (registration %.2f)\n", gwCfg.MinConfidence, gwCfg.MinQuality)
	fmt.Printf("Countdown:   %d x %dms\n", gwCfg.CountdownTicks, gwCfg.CountdownTickMS)

	if gwCfg.EmbeddingDim != cfg.Capture.EmbeddingDim {
		fmt.Printf("Warning: local FACE_EMBEDDING_DIM is %d, the gateway expects %d\n",
			cfg.Capture.EmbeddingDim, gwCfg.EmbeddingDim)
	}
	return nil
}
