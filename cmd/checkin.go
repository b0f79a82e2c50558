package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/facegate/internal/capture"
	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/workflow"
	"github.com/spf13/cobra"
)

var checkinCmd = &cobra.Command{
	Use:   "checkin",
	Short: "Record an arrival for the person in front of the camera",
	Long: `Capture a face, identify it and record a check-in.

The gateway identifies the face and forwards the check-in to the backend with a
signed identity assertion. With --direct the face goes straight to the backend,
which matches it on its own.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAttendance(cmd, workflow.CheckIn, "Checked in")
	},
}

var checkoutCmd = &cobra.Command{
	Use:   "checkout",
	Short: "Record a departure for the person in front of the camera",
	Long: `Capture a face, identify it and record a check-out.

See "facegate checkin --help" for how the face is matched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAttendance(cmd, workflow.CheckOut, "Checked out")
	},
}

func init() {
	for _, c := range []*cobra.Command{checkinCmd, checkoutCmd} {
		rootCmd.AddCommand(c)
		c.Flags().String("location", workflow.DefaultLocation, "Where the attendance is recorded")
		c.Flags().Bool("direct", false, "Send the face straight to the backend (legacy)")
		addCaptureFlags(c)
	}
}

type attendanceFlow func(context.Context, workflow.Runner, workflow.Attendance, string) (*workflow.AttendanceResult, error)

func newAttendance(cmd *cobra.Command, cfg *config.Config) (workflow.Attendance, error) {
	if mustGetBool(cmd, "direct") {
		bc, err := newBackendClient(cfg)
		if err != nil {
			return nil, err
		}
		return workflow.BackendAttendance{Client: bc}, nil
	}
	gc, err := newGatewayClient(cfg)
	if err != nil {
		return nil, err
	}
	return workflow.GatewayAttendance{Client: gc}, nil
}

func runAttendance(cmd *cobra.Command, flow attendanceFlow, verb string) error {
	cfg := config.Load()
	logger := newLogger(cfg)
	quiet := mustGetBool(cmd, "quiet")

	attendance, err := newAttendance(cmd, cfg)
	if err != nil {
		return err
	}

	session, err := newCaptureSession(cmd, cfg, capture.FlowLogin, logger)
	if err != nil {
		return describeCaptureError(err)
	}

	ctx, cancel := captureContext(cmd)
	defer cancel()

	var result *workflow.AttendanceResult
	err = runCapture(session, quiet, func() error {
		var err error
		result, err = flow(ctx, session, attendance, mustGetString(cmd, "location"))
		return err
	})
	if err != nil {
		return describeCaptureError(err)
	}

	fmt.Printf("%s: %s (user %d)\n", verb, result.Name, result.UserID)
	if result.Status != "" {
		fmt.Printf("  Status:  %s\n", result.Status)
	}
	if result.Message != "" {
		fmt.Printf("  Message: %s\n", result.Message)
	}
	return nil
}
