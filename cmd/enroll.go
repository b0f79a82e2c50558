package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kozaktomas/facegate/internal/capture"
	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/gateway"
	"github.com/kozaktomas/facegate/internal/workflow"
	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Replace your enrolled face",
	Long: `Identify yourself with your current face, then capture a new one and
store it in place of the old. The gateway session opened by the first capture
is closed when the command ends.

Examples:
  facegate enroll
  facegate enroll --camera-dir ./frames`,
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	addCaptureFlags(enrollCmd)
}

// gatewayLogin identifies the person in front of the camera and returns a
// client bound to the resulting gateway session. Call the returned logout
// when done.
func gatewayLogin(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) (*gateway.Client, *workflow.Identity, func(), error) {
	gc, err := newGatewayClient(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	session, err := newCaptureSession(cmd, cfg, capture.FlowLogin, logger)
	if err != nil {
		return nil, nil, nil, describeCaptureError(err)
	}

	var identity *workflow.Identity
	err = runCapture(session, mustGetBool(cmd, "quiet"), func() error {
		var err error
		identity, err = workflow.Login(ctx, session, workflow.GatewayIdentifier{Client: gc})
		return err
	})
	if err != nil {
		return nil, nil, nil, describeCaptureError(err)
	}
	if identity.SessionID == "" {
		return nil, nil, nil, errors.New("gateway did not open a session")
	}

	authed := gc.WithToken(identity.SessionID)
	logout := func() {
		if err := authed.Logout(context.Background()); err != nil {
			logger.Warn("failed to close gateway session", "error", err)
		}
	}
	return authed, identity, logout, nil
}

func runEnroll(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger := newLogger(cfg)

	ctx, cancel := captureContext(cmd)
	defer cancel()

	authed, identity, logout, err := gatewayLogin(ctx, cmd, cfg, logger)
	if err != nil {
		return err
	}
	defer logout()

	status, err := authed.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to check gateway session: %w", err)
	}
	if !status.Authenticated {
		return errors.New("gateway session expired before enrollment")
	}
	fmt.Printf("Recognized %s (user %d). Look at the camera again to capture your new face.\n",
		identity.Name, identity.UserID)

	session, err := newCaptureSession(cmd, cfg, capture.FlowRegistration, logger)
	if err != nil {
		return describeCaptureError(err)
	}

	var enrolled *gateway.EnrollResponse
	err = runCapture(session, mustGetBool(cmd, "quiet"), func() error {
		_, err := session.Run(ctx, func(ctx context.Context, c *capture.Capture) error {
			resp, err := authed.Enroll(ctx, c.Embedding)
			if err != nil {
				return fmt.Errorf("enroll user %d: %w", identity.UserID, err)
			}
			enrolled = resp
			return nil
		})
		return err
	})
	if err != nil {
		return describeCaptureError(err)
	}

	fmt.Printf("New face enrolled for %s (user %d)\n", status.Name, enrolled.UserID)
	return nil
}
