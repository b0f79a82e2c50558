package cmd

import (
	"fmt"

	"github.com/kozaktomas/facegate/internal/config"
	"github.com/spf13/cobra"
)

var facesCmd = &cobra.Command{
	Use:   "faces",
	Short: "List the faces enrolled on the gateway",
	Long: `Identify yourself on camera, then list the faces enrolled on the gateway.
Names are compared without case, accents or dashes, so "jiri-novak" finds
"Jiří Novák".

Examples:
  facegate faces
  facegate faces --name "jiri novak"`,
	RunE: runFaces,
}

func init() {
	rootCmd.AddCommand(facesCmd)

	facesCmd.Flags().String("name", "", "Only faces of people with this name")
	addCaptureFlags(facesCmd)
}

func runFaces(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger := newLogger(cfg)

	ctx, cancel := captureContext(cmd)
	defer cancel()

	authed, _, logout, err := gatewayLogin(ctx, cmd, cfg, logger)
	if err != nil {
		return err
	}
	defer logout()

	faces, err := authed.Faces(ctx, mustGetString(cmd, "name"))
	if err != nil {
		return fmt.Errorf("failed to list faces: %w", err)
	}
	if len(faces) == 0 {
		fmt.Println("No faces enrolled")
		return nil
	}

	fmt.Printf("%-6s  %-24s  %-28s  %-12s  %s\n", "USER", "NAME", "EMAIL", "SOURCE", "UPDATED")
	for _, f := range faces {
		updated := "-"
		if !f.UpdatedAt.IsZero() {
			updated = f.UpdatedAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Printf("%-6d  %-24s  %-28s  %-12s  %s\n", f.UserID, f.Name, f.Email, f.Source, updated)
	}
	return nil
}
