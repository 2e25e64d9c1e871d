package main

import (
	"fmt"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"followup-agent/internal/followup"
)

var promptStateFile string

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the prompt the pipeline would send for a state document",
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := readState(promptStateFile, cmd.InOrStdin())
		if err != nil {
			return err
		}
		fctx, err := followup.Assemble(state)
		if err != nil {
			zap.L().Warn("using minimal context", zap.Error(err))
		}

		b := followup.PromptBuilder{
			MaxChars:     cfg.FollowUp.MaxPromptChars,
			MaxQuestions: cfg.FollowUp.MaxQuestions,
			Sentinel:     cfg.FollowUp.Sentinel,
			Template:     followup.DefaultTemplate(),
		}
		budget := b.Budget(fctx)
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, b.Build(fctx))
		fmt.Fprintf(out, "\n-- budget %d chars: static %d, history %d\n",
			budget.MaxTotalChars,
			utf8.RuneCountInString(budget.Static),
			utf8.RuneCountInString(budget.Variable),
		)
		return nil
	},
}

func init() {
	promptCmd.Flags().StringVarP(&promptStateFile, "state", "s", "-", "state JSON document, - for stdin")
	rootCmd.AddCommand(promptCmd)
}
