package followup

import (
	"errors"
	"fmt"
)

var (
	// ErrGenerationUnavailable covers every backend failure: timeout, quota,
	// transport and malformed responses alike.
	ErrGenerationUnavailable = errors.New("followup: generation unavailable")

	// ErrParseAmbiguity means no parse strategy produced a candidate.
	ErrParseAmbiguity = errors.New("followup: no candidates in model output")
)

// AssemblyError reports a state that could not be turned into a full context.
// The pipeline continues with the minimal context when it sees one.
type AssemblyError struct {
	Key string
	Err error
}

func (e *AssemblyError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("followup: assemble fragment %q: %v", e.Key, e.Err)
}

func (e *AssemblyError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Rule names a single validation rule.
type Rule string

const (
	RuleEmpty          Rule = "empty_batch"
	RuleCount          Rule = "too_many_questions"
	RuleTooShort       Rule = "too_short"
	RuleTooLong        Rule = "too_long"
	RuleNoQuestionMark Rule = "missing_question_mark"
)

// ValidationError is returned by the strict batch gate.
type ValidationError struct {
	Rule     Rule
	Index    int
	Question string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Index < 0 {
		return fmt.Sprintf("followup: batch rejected (%s)", e.Rule)
	}
	return fmt.Sprintf("followup: batch rejected (%s) at %d: %q", e.Rule, e.Index, e.Question)
}

// InternalError is a programming error caught at the pipeline boundary. It is
// the only error Pipeline.Run returns.
type InternalError struct {
	Stage Stage
	Cause any
}

func (e *InternalError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("followup: internal failure in %s: %v", e.Stage, e.Cause)
}

// ErrAllPreviouslyAsked means every accepted candidate had already been asked
// earlier in the conversation.
var ErrAllPreviouslyAsked = errors.New("followup: every candidate was previously asked")

// ErrNoTemplate means the keyword strategy had nothing left to offer.
var ErrNoTemplate = errors.New("followup: no keyword template matched")
