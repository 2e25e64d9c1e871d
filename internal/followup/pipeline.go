package followup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"followup-agent/internal/domain"
)

const DefaultTimeout = 8 * time.Second

// Stage is a step of the pipeline state machine.
type Stage string

const (
	StageAssembling Stage = "assembling"
	StagePrompting  Stage = "prompting"
	StageGenerating Stage = "generating"
	StageParsing    Stage = "parsing"
	StageValidating Stage = "validating"
	StageDone       Stage = "done"
	StageError      Stage = "error"
)

// Confidence assigned per source. Model-supplied confidence for structured
// output is clamped into [minModelConfidence, 1].
const (
	confidenceSentinel   = 1.0
	confidenceStructured = 0.9
	confidenceTemplate   = 0.5
	confidenceLines      = 0.4
	confidenceSentences  = 0.3
	minModelConfidence   = 0.7
)

// Config is the immutable pipeline configuration.
type Config struct {
	Constraints Constraints
	// Timeout bounds each generation attempt.
	Timeout time.Duration
}

// Pipeline runs the primary strategy and falls back to the secondary one.
// It holds no mutable state and is safe for concurrent use.
type Pipeline struct {
	cfg       Config
	primary   Generator
	secondary Generator
	logger    *zap.Logger
}

// NewPipeline wires the strategies. secondary may be nil; logger defaults to
// the global zap logger.
func NewPipeline(cfg Config, primary, secondary Generator, logger *zap.Logger) *Pipeline {
	if cfg.Constraints == (Constraints{}) {
		cfg.Constraints = DefaultConstraints()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.L()
	}
	return &Pipeline{cfg: cfg, primary: primary, secondary: secondary, logger: logger}
}

type stageFailure struct {
	strategy string
	stage    Stage
	err      error
}

func (f stageFailure) String() string {
	return fmt.Sprintf("%s failed at %s (%v)", f.strategy, f.stage, f.err)
}

// Run produces the follow-up result for state. Recoverable failures become a
// result with diagnostic reasoning; only a recovered panic is returned as an
// error, always as *InternalError.
func (p *Pipeline) Run(ctx context.Context, state domain.State) (res domain.FollowUpResult, err error) {
	stage := StageAssembling
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("follow-up pipeline panic", zap.String("stage", string(stage)), zap.Any("panic", r))
			res = domain.FollowUpResult{}
			err = &InternalError{Stage: stage, Cause: r}
		}
	}()

	p.logger.Debug("follow-up stage", zap.String("stage", string(stage)))
	fctx, aerr := Assemble(state)
	if aerr != nil {
		p.logger.Warn("follow-up context degraded to query only", zap.Error(aerr))
	}

	var failures []stageFailure
	for i, gen := range p.strategies() {
		if i > 0 {
			p.logger.Warn("follow-up falling back",
				zap.String("strategy", gen.Name()),
				zap.String("reason", failures[len(failures)-1].String()))
		}

		stage = StageGenerating
		att := p.generate(ctx, gen, fctx)

		switch att.Outcome {
		case domain.OutcomeNoFollowUpNeeded:
			p.logger.Debug("follow-up stage", zap.String("stage", string(StageDone)), zap.Bool("no_follow_up", true))
			return domain.FollowUpResult{
				Questions:        []string{},
				Reasoning:        "The request is already clear; no follow-up needed.",
				ConfidenceScore:  confidenceSentinel,
				NoFollowUpNeeded: true,
				Source:           string(SourceSentinel),
				FailedStage:      firstFailedStage(failures),
			}, nil

		case domain.OutcomeQuestions:
			stage = StageValidating
			p.logger.Debug("follow-up stage", zap.String("stage", string(stage)), zap.Int("candidates", len(att.Questions)))
			questions, verr := p.accept(att)
			if verr == nil {
				questions = Dedupe(questions, fctx.PreviouslyAsked)
				if len(questions) == 0 {
					verr = ErrAllPreviouslyAsked
				}
			}
			if verr == nil {
				p.logger.Debug("follow-up stage", zap.String("stage", string(StageDone)), zap.Int("questions", len(questions)))
				return domain.FollowUpResult{
					Questions:       questions,
					Reasoning:       successReasoning(att, len(questions), failures),
					ConfidenceScore: confidenceFor(att.Source, att.Confidence),
					Source:          string(att.Source),
					FailedStage:     firstFailedStage(failures),
				}, nil
			}
			failures = append(failures, stageFailure{strategy: gen.Name(), stage: StageValidating, err: verr})

		default:
			failures = append(failures, stageFailure{strategy: gen.Name(), stage: att.Stage, err: att.Err})
		}
	}

	stage = StageDone
	reasons := make([]string, len(failures))
	for i, f := range failures {
		reasons[i] = f.String()
	}
	p.logger.Warn("follow-up generation failed", zap.Strings("failures", reasons))
	return domain.FollowUpResult{
		Questions:   []string{},
		Reasoning:   "No follow-up questions could be generated: " + strings.Join(reasons, "; ") + ".",
		Source:      string(SourceNone),
		FailedStage: firstFailedStage(failures),
	}, nil
}

func (p *Pipeline) strategies() []Generator {
	out := make([]Generator, 0, 2)
	if p.primary != nil {
		out = append(out, p.primary)
	}
	if p.secondary != nil {
		out = append(out, p.secondary)
	}
	return out
}

func (p *Pipeline) generate(ctx context.Context, gen Generator, fctx domain.FollowUpContext) Attempt {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()
	return gen.Generate(ctx, fctx)
}

// accept applies the strict gate to generated batches and the lenient filter
// to template batches.
func (p *Pipeline) accept(att Attempt) ([]string, error) {
	c := p.cfg.Constraints
	if att.Source == SourceTemplate {
		questions := c.Filter(att.Questions)
		if len(questions) == 0 {
			return nil, &ValidationError{Rule: RuleEmpty, Index: -1}
		}
		return questions, nil
	}
	if err := c.Validate(att.Questions); err != nil {
		return nil, err
	}
	return att.Questions, nil
}

func confidenceFor(src Source, model *float64) float64 {
	switch src {
	case SourceStructured:
		if model == nil {
			return confidenceStructured
		}
		return min(max(*model, minModelConfidence), 1)
	case SourceTemplate:
		return confidenceTemplate
	case SourceLines:
		return confidenceLines
	case SourceSentences:
		return confidenceSentences
	case SourceSentinel:
		return confidenceSentinel
	}
	return 0
}

func successReasoning(att Attempt, n int, failures []stageFailure) string {
	reasoning := att.Reasoning
	if reasoning == "" {
		reasoning = fmt.Sprintf("Generated %d follow-up question(s) from %s output.", n, att.Source)
	}
	if len(failures) > 0 {
		reasoning = fmt.Sprintf("%s Fallback used after %s.", reasoning, failures[0])
	}
	return reasoning
}

func firstFailedStage(failures []stageFailure) string {
	if len(failures) == 0 {
		return ""
	}
	return string(failures[0].stage)
}
