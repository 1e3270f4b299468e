package main

import (
	"encoding/json"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3CBolt/promptpractice/internal/model"
	"github.com/3CBolt/promptpractice/internal/poller"
)

var (
	runLab    string
	runPrompt string
	runSystem string
	runModels []string
	runWait   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process a single attempt from the command line",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		attemptID := uuid.NewString()
		req := model.AttemptRequest{
			AttemptID:    attemptID,
			LabID:        model.LabID(runLab),
			UserPrompt:   runPrompt,
			SystemPrompt: runSystem,
			Models:       runModels,
		}

		result, err := env.Orchestrator.Process(ctx, req)
		if err != nil {
			return err
		}

		zap.L().Info("attempt submitted",
			zap.String("attempt_id", result.AttemptID),
			zap.String("status", string(result.Status)),
		)

		if runWait && !result.Status.Terminal() {
			status, perr := poller.Poll(ctx, attemptID, env.Orchestrator.Status, poller.Config{})
			if perr != nil {
				return perr
			}
			return printJSON(status)
		}

		return printJSON(result)
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	runCmd.Flags().StringVar(&runLab, "lab", string(model.LabPracticeBasics), "lab id")
	runCmd.Flags().StringVar(&runPrompt, "prompt", "", "user prompt (required)")
	runCmd.Flags().StringVar(&runSystem, "system", "", "optional system prompt")
	runCmd.Flags().StringSliceVar(&runModels, "model", []string{"sample-fast"}, "model id (repeatable)")
	runCmd.Flags().BoolVar(&runWait, "wait", false, "poll until a terminal status")
	_ = runCmd.MarkFlagRequired("prompt")
	rootCmd.AddCommand(runCmd)
}
