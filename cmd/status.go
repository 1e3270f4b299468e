package main

import (
	"github.com/spf13/cobra"

	"github.com/3CBolt/promptpractice/internal/poller"
)

var statusWait bool

var statusCmd = &cobra.Command{
	Use:   "status <attemptId>",
	Short: "Query the status of an attempt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		attemptID := args[0]

		if statusWait {
			result, perr := poller.Poll(ctx, attemptID, env.Orchestrator.Status, poller.Config{})
			if perr != nil {
				return perr
			}
			return printJSON(result)
		}

		result, err := env.Orchestrator.Status(ctx, attemptID)
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusWait, "wait", false, "poll until a terminal status")
	rootCmd.AddCommand(statusCmd)
}
