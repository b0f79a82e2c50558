package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kozaktomas/facegate/internal/capture"
	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/facematch"
	"github.com/kozaktomas/facegate/internal/gateway"
	"github.com/kozaktomas/facegate/internal/logging"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

// newLogger builds the logger. It writes to stderr so it never mixes with command output.
func newLogger(cfg *config.Config) *slog.Logger {
	return logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
}

// addCaptureFlags registers the flags shared by the capture commands.
func addCaptureFlags(cmd *cobra.Command) {
	cmd.Flags().Duration("timeout", 0, "Give up after this long (default: wait until a face is captured or Ctrl+C)")
	cmd.Flags().String("camera-dir", "", "Read frames from a directory instead of CAMERA_URL")
	cmd.Flags().Bool("quiet", false, "Only print the result")
}

// newCaptureSession wires the configured camera and detector into a session for flow.
func newCaptureSession(cmd *cobra.Command, cfg *config.Config, flow capture.Flow, logger *slog.Logger) (*capture.Session, error) {
	cameraURL, cameraDir := cfg.Camera.URL, cfg.Camera.Dir
	if dir := mustGetString(cmd, "camera-dir"); dir != "" {
		cameraURL, cameraDir = "", dir
	}
	camera, err := capture.CameraFromConfig(cameraURL, cameraDir, cfg.Camera.MaxFrameSize)
	if err != nil {
		return nil, err
	}

	detector := capture.NewHTTPDetector(cfg.Detector.URL)
	opts := capture.OptionsFromConfig(cfg.Capture, flow)
	return capture.NewSession(camera, detector, opts, logger), nil
}

// captureContext is cancelled on Ctrl+C or after --timeout when one is set, so a running
// session always releases the camera.
func captureContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	timeout := mustGetDuration(cmd, "timeout")
	if timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// newCountdownBar renders the registration countdown.
func newCountdownBar(ticks int) *progressbar.ProgressBar {
	return progressbar.NewOptions(ticks,
		progressbar.OptionSetDescription("Stay still"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
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

// watchSession prints each new status and draws the countdown. The returned
// channel is closed once the session has finished and all events were shown.
func watchSession(s *capture.Session, quiet bool) <-chan struct{} {
	done := make(chan struct{})
	ticks := s.Options().CountdownTicks

	go func() {
		defer close(done)

		var bar *progressbar.ProgressBar
		var last capture.Status
		for ev := range s.Events() {
			if ev.Status == capture.StatusCountdown && !quiet {
				if bar == nil {
					bar = newCountdownBar(ticks)
				}
				_ = bar.Set(ticks - ev.Countdown + 1)
				last = ev.Status
				continue
			}
			if bar != nil {
				_ = bar.Finish()
				fmt.Println()
				bar = nil
			}
			if quiet || ev.Status == last {
				continue
			}
			last = ev.Status
			if msg := ev.Status.Message(); msg != "" {
				fmt.Println(msg)
			}
		}
		if bar != nil {
			_ = bar.Finish()
			fmt.Println()
		}
	}()
	return done
}

// runCapture runs fn while rendering the session, and waits until the last event was printed.
func runCapture(s *capture.Session, quiet bool, fn func() error) error {
	done := watchSession(s, quiet)
	err := fn()
	<-done
	return err
}

// describeCaptureError turns session and gateway errors into a readable message.
func describeCaptureError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, capture.ErrCancelled):
		return errors.New("capture cancelled")
	case errors.Is(err, capture.ErrCameraDenied):
		return fmt.Errorf("camera access denied: %w", err)
	case errors.Is(err, capture.ErrCameraUnavailable):
		return fmt.Errorf("camera unavailable: %w", err)
	case errors.Is(err, facematch.ErrNoMatch):
		return errors.New(capture.StatusFailure.Message())
	case gateway.IsUnauthorized(err):
		return errors.New(capture.StatusFailure.Message())
	}
	return err
}
