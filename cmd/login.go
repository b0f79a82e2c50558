package cmd

import (
	"fmt"

	"github.com/kozaktomas/facegate/internal/capture"
	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/workflow"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Identify the person in front of the camera",
	Long: `Capture a face and identify it.

By default the embedding is sent to the gateway, which matches it against the
enrolled faces. With --local every user's embedding is downloaded from the
backend and matched on this machine instead.

Examples:
  facegate login
  facegate login --local --threshold 0.5`,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().Bool("local", false, "Match on this machine against the backend users (legacy)")
	loginCmd.Flags().Float64("threshold", 0, "Match threshold for --local (defaults to FACE_MATCH_THRESHOLD)")
	addCaptureFlags(loginCmd)
}

func newIdentifier(cmd *cobra.Command, cfg *config.Config) (workflow.Identifier, error) {
	if !mustGetBool(cmd, "local") {
		gc, err := newGatewayClient(cfg)
		if err != nil {
			return nil, err
		}
		return workflow.GatewayIdentifier{Client: gc}, nil
	}

	bc, err := newBackendClient(cfg)
	if err != nil {
		return nil, err
	}
	threshold := mustGetFloat64(cmd, "threshold")
	if threshold <= 0 {
		threshold = cfg.Capture.MatchThreshold
	}
	return workflow.LocalIdentifier{Users: bc, Threshold: threshold, Logger: newLogger(cfg)}, nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger := newLogger(cfg)
	quiet := mustGetBool(cmd, "quiet")

	identifier, err := newIdentifier(cmd, cfg)
	if err != nil {
		return err
	}

	session, err := newCaptureSession(cmd, cfg, capture.FlowLogin, logger)
	if err != nil {
		return describeCaptureError(err)
	}

	ctx, cancel := captureContext(cmd)
	defer cancel()

	var identity *workflow.Identity
	err = runCapture(session, quiet, func() error {
		var err error
		identity, err = workflow.Login(ctx, session, identifier)
		return err
	})
	if err != nil {
		return describeCaptureError(err)
	}

	fmt.Printf("Welcome, %s (user %d, distance %.3f)\n", identity.Name, identity.UserID, identity.Distance)
	return nil
}
