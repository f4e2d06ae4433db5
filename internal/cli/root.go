// Package cli wires the batch conversion tool together behind a small
// command tree: run, probe and report.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	logger *slog.Logger

	flagEnvFile string
)

var rootCmd = &cobra.Command{
	Use:   "capscan-batch",
	Short: "Batch-converts scanned score images into capella files via capella-scan.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if flagEnvFile != "" {
			if err := godotenv.Load(flagEnvFile); err != nil {
				return fmt.Errorf("load env file: %w", err)
			}
		} else {
			_ = godotenv.Load()
		}

		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
		slog.SetDefault(logger)
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEnvFile, "env-file", "", "Path to an .env file (default: ./.env if present)")
}
