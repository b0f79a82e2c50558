package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/facegate/internal/config"
	"github.com/kozaktomas/facegate/internal/password"
	"github.com/spf13/cobra"
)

var passwordCmd = &cobra.Command{
	Use:   "password",
	Short: "Check the strength of a password",
	Long: `Score a password the same way registration does and list the rules it breaks.
The password is read from the terminal without echo, or from stdin when piped.

Examples:
  facegate password
  echo 'S3cret!pass' | facegate password --gateway`,
	RunE: runPassword,
}

func init() {
	rootCmd.AddCommand(passwordCmd)

	passwordCmd.Flags().Bool("gateway", false, "Ask the gateway instead of scoring locally")
}

func runPassword(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	pw, err := promptPassword("Password: ")
	if err != nil {
		return err
	}

	rules := password.RulesFromConfig(cfg.Password)
	if mustGetBool(cmd, "gateway") {
		gc, err := newGatewayClient(cfg)
		if err != nil {
			return err
		}
		res, err := gc.Strength(context.Background(), pw)
		if err != nil {
			return fmt.Errorf("failed to score password on gateway: %w", err)
		}
		printStrength(*res)
	} else {
		printStrength(rules.Strength(pw))
	}

	if errs := rules.Validate(pw); len(errs) > 0 {
		fmt.Println("Not accepted for registration:")
		for _, e := range errs {
			fmt.Printf("  - %v\n", e)
		}
	} else {
		fmt.Println("Accepted for registration")
	}
	return nil
}
