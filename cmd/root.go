package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3CBolt/promptpractice/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "promptpractice",
	Short: "Prompt practice attempt-processing service",
	Long:  "Processes prompt-engineering practice attempts: dispatches prompts to model providers with fallback chains, scores responses against a clarity/completeness rubric, and tracks attempt status idempotently.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
