// Package app assembles the follow-up pipeline from configuration so every
// entrypoint builds it the same way.
package app

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"followup-agent/internal/config"
	"followup-agent/internal/followup"
	"followup-agent/internal/integrations/anthropic"
	"followup-agent/internal/integrations/openai"
	"followup-agent/internal/integrations/paramstore"
)

// TemplatesParameter holds an optional YAML override of the keyword
// templates, relative to PARAM_PREFIX.
const TemplatesParameter = "/follow_up/keyword_templates"

type OptionalGetter interface {
	GetOptional(ctx context.Context, name string) (string, bool, error)
}

// NewGenerationClient returns the backend named by cfg.LLM.Provider. API
// tokens are resolved lazily through tokens.
func NewGenerationClient(cfg *config.Config, tokens paramstore.Getter, logger *zap.Logger) (followup.GenerationClient, error) {
	if logger == nil {
		logger = zap.L()
	}
	switch cfg.LLM.Provider {
	case config.ProviderOpenAI:
		c, err := openai.NewClient(tokens, cfg.ParamPrefix,
			openai.WithModel(cfg.LLM.Model),
			openai.WithBaseURL(cfg.LLM.BaseURL),
			openai.WithMaxRetries(cfg.LLM.MaxRetries),
			openai.WithLogger(logger),
		)
		if err != nil {
			return nil, eris.Wrap(err, "app: openai client")
		}
		return c, nil
	case config.ProviderAnthropic:
		c, err := anthropic.NewClient(tokens, cfg.ParamPrefix,
			anthropic.WithModel(cfg.LLM.Model),
			anthropic.WithBaseURL(cfg.LLM.BaseURL),
			anthropic.WithMaxRetries(cfg.LLM.MaxRetries),
		)
		if err != nil {
			return nil, eris.Wrap(err, "app: anthropic client")
		}
		return c, nil
	default:
		return nil, eris.Errorf("app: unknown provider %q", cfg.LLM.Provider)
	}
}

// LoadTemplates returns the keyword templates override stored under
// TemplatesParameter, or the embedded defaults when src is nil or the
// parameter does not exist. A malformed override is an error.
func LoadTemplates(ctx context.Context, cfg *config.Config, src OptionalGetter) ([]followup.KeywordTemplate, error) {
	if src == nil {
		return followup.DefaultTemplates(), nil
	}
	name := cfg.ParamPrefix + TemplatesParameter
	raw, ok, err := src.GetOptional(ctx, name)
	if err != nil {
		return nil, eris.Wrapf(err, "app: read %s", name)
	}
	if !ok {
		return followup.DefaultTemplates(), nil
	}
	templates, err := followup.LoadTemplates([]byte(raw))
	if err != nil {
		return nil, eris.Wrapf(err, "app: parse %s", name)
	}
	zap.L().Info("loaded keyword templates override", zap.String("parameter", name), zap.Int("templates", len(templates)))
	return templates, nil
}

// NewPipeline wires the LLM primary strategy and the configured secondary.
func NewPipeline(cfg *config.Config, client followup.GenerationClient, templates []followup.KeywordTemplate, logger *zap.Logger) (*followup.Pipeline, error) {
	if client == nil {
		return nil, eris.New("app: generation client must not be nil")
	}
	if logger == nil {
		logger = zap.L()
	}
	fu := cfg.FollowUp
	llm := func() *followup.LLMGenerator {
		return &followup.LLMGenerator{
			Client: client,
			Prompt: followup.PromptBuilder{
				MaxChars:     fu.MaxPromptChars,
				MaxQuestions: fu.MaxQuestions,
				Sentinel:     fu.Sentinel,
				Template:     followup.DefaultTemplate(),
			},
			Parser: followup.Parser{Sentinel: fu.Sentinel},
			Options: followup.CompletionOptions{
				MaxOutputTokens: cfg.LLM.MaxOutputTokens,
				JSONOutput:      cfg.LLM.JSONOutput,
			},
			Logger: logger,
		}
	}

	var secondary followup.Generator
	switch fu.SecondaryStrategy {
	case config.StrategyKeyword:
		secondary = &followup.KeywordGenerator{Templates: templates}
	case config.StrategyLLM:
		secondary = llm()
	case config.StrategyNone:
	default:
		return nil, eris.Errorf("app: unknown secondary strategy %q", fu.SecondaryStrategy)
	}

	return followup.NewPipeline(followup.Config{
		Constraints: followup.Constraints{
			MinChars:     fu.MinQuestionChars,
			MaxChars:     fu.MaxQuestionChars,
			MaxQuestions: fu.MaxQuestions,
		},
		Timeout: fu.Timeout,
	}, llm(), secondary, logger), nil
}
