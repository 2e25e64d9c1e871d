package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"followup-agent/internal/followup"
)

var templatesFile string

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Inspect keyword templates",
}

var templatesValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check a templates YAML file, or the embedded set when no file is given",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var templates []followup.KeywordTemplate
		if len(args) == 0 {
			templates = followup.DefaultTemplates()
		} else {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return eris.Wrapf(err, "read %s", args[0])
			}
			templates, err = followup.LoadTemplates(data)
			if err != nil {
				return err
			}
		}

		c := followup.Constraints{
			MinChars:     cfg.FollowUp.MinQuestionChars,
			MaxChars:     cfg.FollowUp.MaxQuestionChars,
			MaxQuestions: cfg.FollowUp.MaxQuestions,
		}
		out := cmd.OutOrStdout()
		for _, t := range templates {
			kept := c.Filter(t.Questions)
			fmt.Fprintf(out, "%-12s %d question(s), %d usable\n", t.Keyword, len(t.Questions), len(kept))
		}
		return nil
	},
}

func init() {
	templatesCmd.AddCommand(templatesValidateCmd)
	rootCmd.AddCommand(templatesCmd)
}
