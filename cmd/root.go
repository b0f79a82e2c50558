package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "facegate",
	Short: "Face capture and face match gateway for WorkFlow ID",
	Long: `facegate captures faces from a camera, turns them into embeddings and
matches them against enrolled users.

Run "facegate serve" to start the face gateway, which stores embeddings,
identifies faces server side and forwards attendance to the WorkFlow backend.
The register, login, checkin and checkout commands run a capture session
against a camera and talk to the gateway.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
