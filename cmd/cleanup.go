package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Drop expired ledger locks and stale terminal records",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		deleted, err := env.Ledger.Cleanup(ctx)
		if err != nil {
			return err
		}

		zap.L().Info("ledger cleanup finished", zap.Int("deleted", deleted))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}
