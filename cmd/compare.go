package main

import (
	"github.com/spf13/cobra"

	"github.com/3CBolt/promptpractice/internal/orchestrator"
)

var (
	comparePrompt string
	compareSystem string
	compareModels []string
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Score a prompt across multiple models without persisting anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Orchestrator.Compare(ctx, orchestrator.CompareRequest{
			UserPrompt:   comparePrompt,
			SystemPrompt: compareSystem,
			Models:       compareModels,
		})
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

func init() {
	compareCmd.Flags().StringVar(&comparePrompt, "prompt", "", "user prompt (required)")
	compareCmd.Flags().StringVar(&compareSystem, "system", "", "optional system prompt")
	compareCmd.Flags().StringSliceVar(&compareModels, "model", []string{"sample-fast", "sample-balanced"}, "model id (repeatable, 2-3)")
	_ = compareCmd.MarkFlagRequired("prompt")
	rootCmd.AddCommand(compareCmd)
}
