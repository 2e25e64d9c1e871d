package followup

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"followup-agent/internal/domain"
)

// CompletionOptions are passed through to the backend unchanged.
type CompletionOptions struct {
	MaxOutputTokens int
	// JSONOutput asks the backend for a JSON-only response when it supports one.
	JSONOutput bool
}

// GenerationClient is the text-generation backend.
type GenerationClient interface {
	Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error)
}

// Attempt is the result of one generation strategy.
type Attempt struct {
	Outcome    domain.Outcome
	Questions  []string
	Source     Source
	Reasoning  string
	Confidence *float64

	// Stage and Err describe a GenerationFailed outcome.
	Stage Stage
	Err   error
}

func failed(stage Stage, err error) Attempt {
	return Attempt{Outcome: domain.OutcomeGenerationFailed, Source: SourceNone, Stage: stage, Err: err}
}

// Generator is one way of producing follow-up questions.
type Generator interface {
	Name() string
	Generate(ctx context.Context, fctx domain.FollowUpContext) Attempt
}

// LLMGenerator renders a prompt, dispatches it to a backend and parses the
// answer.
type LLMGenerator struct {
	Client  GenerationClient
	Prompt  PromptBuilder
	Parser  Parser
	Options CompletionOptions
	Logger  *zap.Logger
}

func (g *LLMGenerator) Name() string { return "llm" }

func (g *LLMGenerator) Generate(ctx context.Context, fctx domain.FollowUpContext) Attempt {
	log := g.logger()

	log.Debug("follow-up stage", zap.String("stage", string(StagePrompting)))
	prompt := g.Prompt.Build(fctx)

	log.Debug("follow-up stage", zap.String("stage", string(StageGenerating)), zap.Int("prompt_chars", charLen(prompt)))
	raw, err := g.Client.Complete(ctx, prompt, g.Options)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		return failed(StageGenerating, fmt.Errorf("%w: %v", ErrGenerationUnavailable, err))
	}
	if strings.TrimSpace(raw) == "" {
		return failed(StageGenerating, fmt.Errorf("%w: empty completion", ErrGenerationUnavailable))
	}

	log.Debug("follow-up stage", zap.String("stage", string(StageParsing)))
	res := g.Parser.Parse(raw)
	switch {
	case res.NoFollowUp:
		return Attempt{Outcome: domain.OutcomeNoFollowUpNeeded, Source: SourceSentinel}
	case len(res.Candidates) == 0:
		return failed(StageParsing, ErrParseAmbiguity)
	}
	return Attempt{
		Outcome:    domain.OutcomeQuestions,
		Questions:  res.Candidates,
		Source:     res.Source,
		Reasoning:  res.Reasoning,
		Confidence: res.Confidence,
	}
}

func (g *LLMGenerator) logger() *zap.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return zap.L()
}
