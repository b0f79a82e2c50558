package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/kozaktomas/facegate/internal/capture"
	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/password"
	"github.com/kozaktomas/facegate/internal/workflow"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a new user with their face",
	Long: `Register a new user and enroll their face.

The details are validated first. Then the camera starts and the face has to be
positioned inside the guide circle. After a short countdown the face is captured
and sent together with the details to the gateway.

Examples:
  # Prompt for the password
  facegate register --name "Ayu Lestari" --email ayu@example.com

  # Create the user directly in the backend (no gateway)
  facegate register --name "Ayu Lestari" --email ayu@example.com --direct`,
	RunE: runRegister,
}

func init() {
	rootCmd.AddCommand(registerCmd)

	registerCmd.Flags().String("name", "", "Full name (required)")
	registerCmd.Flags().String("email", "", "Email address (required)")
	registerCmd.Flags().String("gender", "other", "Gender: male, female or other")
	registerCmd.Flags().String("password", "", "Password (prompted when empty)")
	registerCmd.Flags().Bool("direct", false, "Create the user directly in the backend instead of the gateway")
	addCaptureFlags(registerCmd)

	_ = registerCmd.MarkFlagRequired("name")
	_ = registerCmd.MarkFlagRequired("email")
}

// promptPassword reads a password without echo. Piped input is read as a single line.
func promptPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(b), nil
}

// printStrength shows the strength of pw with hints for improvement.
func printStrength(res password.Result) {
	fmt.Printf("Password strength: %s (%d/100)\n", res.Level, res.Score)
	for _, hint := range res.Feedback {
		fmt.Printf("  - %s\n", hint)
	}
}

func newRegistrar(cmd *cobra.Command, cfg *config.Config) (workflow.Registrar, error) {
	if mustGetBool(cmd, "direct") {
		bc, err := newBackendClient(cfg)
		if err != nil {
			return nil, err
		}
		return workflow.BackendRegistrar{Client: bc}, nil
	}
	gc, err := newGatewayClient(cfg)
	if err != nil {
		return nil, err
	}
	return workflow.GatewayRegistrar{Client: gc}, nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger := newLogger(cfg)
	quiet := mustGetBool(cmd, "quiet")

	details := workflow.Details{
		Name:     mustGetString(cmd, "name"),
		Email:    mustGetString(cmd, "email"),
		Gender:   mustGetString(cmd, "gender"),
		Password: mustGetString(cmd, "password"),
	}
	if details.Password == "" {
		pw, err := promptPassword("Password: ")
		if err != nil {
			return err
		}
		details.Password = pw
	}

	rules := password.RulesFromConfig(cfg.Password)
	if !quiet {
		printStrength(rules.Strength(details.Password))
	}

	// Validate before the camera starts
	details.Normalize()
	if err := details.Validate(&rules); err != nil {
		return fmt.Errorf("invalid registration details:\n%w", err)
	}

	registrar, err := newRegistrar(cmd, cfg)
	if err != nil {
		return err
	}

	session, err := newCaptureSession(cmd, cfg, capture.FlowRegistration, logger)
	if err != nil {
		return describeCaptureError(err)
	}

	ctx, cancel := captureContext(cmd)
	defer cancel()

	if !quiet {
		fmt.Println("Starting camera, look straight into it...")
	}

	var account *workflow.Account
	err = runCapture(session, quiet, func() error {
		var err error
		account, err = workflow.Register(ctx, session, registrar, details, &rules)
		return err
	})
	if err != nil {
		return describeCaptureError(err)
	}
	if account == nil {
		return errors.New("registration returned no account")
	}

	fmt.Printf("Registered %s <%s> as user %d\n", account.Name, account.Email, account.UserID)
	return nil
}
