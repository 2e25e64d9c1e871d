package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"followup-agent/internal/app"
	"followup-agent/internal/followup"
	"followup-agent/internal/integrations/paramstore"
)

const (
	backendLive    = "live"
	backendReplay  = "replay"
	backendKeyword = "keyword"
)

var (
	genStateFile string
	genBackend   string
	genReplyFile string
	genUseSSM    bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run the pipeline on a state document and print the result",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		state, err := readState(genStateFile, cmd.InOrStdin())
		if err != nil {
			return err
		}

		pipeline, err := buildPipeline(ctx)
		if err != nil {
			return err
		}
		res, err := pipeline.Run(ctx, state)
		if err != nil {
			return eris.Wrap(err, "run pipeline")
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func buildPipeline(ctx context.Context) (*followup.Pipeline, error) {
	logger := zap.L()
	switch genBackend {
	case backendKeyword:
		templates, err := localTemplates()
		if err != nil {
			return nil, err
		}
		return followup.NewPipeline(followup.Config{
			Constraints: followup.Constraints{
				MinChars:     cfg.FollowUp.MinQuestionChars,
				MaxChars:     cfg.FollowUp.MaxQuestionChars,
				MaxQuestions: cfg.FollowUp.MaxQuestions,
			},
			Timeout: cfg.FollowUp.Timeout,
		}, &followup.KeywordGenerator{Templates: templates}, nil, logger), nil

	case backendReplay:
		if genReplyFile == "" {
			return nil, eris.New("--reply is required for the replay backend")
		}
		reply, err := os.ReadFile(genReplyFile)
		if err != nil {
			return nil, eris.Wrapf(err, "read reply %s", genReplyFile)
		}
		templates, err := localTemplates()
		if err != nil {
			return nil, err
		}
		return app.NewPipeline(cfg, replayClient{reply: string(reply)}, templates, logger)

	case backendLive:
		var tokens paramstore.Getter = envTokens{}
		var optional app.OptionalGetter
		if genUseSSM {
			ps, err := ssmParams(ctx)
			if err != nil {
				return nil, err
			}
			tokens, optional = ps, ps
		}
		client, err := app.NewGenerationClient(cfg, tokens, logger)
		if err != nil {
			return nil, err
		}
		templates, err := app.LoadTemplates(ctx, cfg, optional)
		if err != nil {
			return nil, err
		}
		return app.NewPipeline(cfg, client, templates, logger)

	default:
		return nil, eris.Errorf("unknown backend %q", genBackend)
	}
}

func localTemplates() ([]followup.KeywordTemplate, error) {
	if templatesFile == "" {
		return followup.DefaultTemplates(), nil
	}
	data, err := os.ReadFile(templatesFile)
	if err != nil {
		return nil, eris.Wrapf(err, "read templates %s", templatesFile)
	}
	return followup.LoadTemplates(data)
}

func init() {
	generateCmd.Flags().StringVarP(&genStateFile, "state", "s", "-", "state JSON document, - for stdin")
	generateCmd.Flags().StringVarP(&genBackend, "backend", "b", backendLive, "live, replay or keyword")
	generateCmd.Flags().StringVar(&genReplyFile, "reply", "", "recorded completion used by the replay backend")
	generateCmd.Flags().BoolVar(&genUseSSM, "ssm", false, "read tokens and template overrides from Parameter Store instead of the environment")
	generateCmd.Flags().StringVar(&templatesFile, "templates", "", "keyword templates YAML, defaults to the embedded set")
	rootCmd.AddCommand(generateCmd)
}
