package domain

import (
	"encoding/json"
	"strings"
)

// Role identifies the speaker of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationTurn is one entry of the ordered conversation history. Turns that
// were followed by generated questions carry them in FollowUpQuestions.
type ConversationTurn struct {
	Role              Role     `json:"role"`
	Content           string   `json:"content"`
	FollowUpQuestions []string `json:"follow_up_questions,omitempty"`
}

// State is the caller-owned view handed to the follow-up pipeline. Optional
// fields are explicit: a nil Intent means no intent was computed upstream.
type State struct {
	UserQuery     string             `json:"user_query"`
	History       []ConversationTurn `json:"history,omitempty"`
	Intent        *string            `json:"intent,omitempty"`
	AgentType     string             `json:"agent_type,omitempty"`
	AgentResponse string             `json:"agent_response,omitempty"`
	Fragments     map[string]any     `json:"fragments,omitempty"`
}

// FollowUpContext is the bounded, request-scoped context distilled from State.
type FollowUpContext struct {
	UserQuery       string
	History         []ConversationTurn
	InferredIntent  *string
	AgentType       string
	AgentResponse   string
	DomainFragments map[string]json.RawMessage
	// PreviouslyAsked holds lower-cased questions in first-seen order.
	PreviouslyAsked []string
}

// Asked reports whether q matches a previously asked question, ignoring case
// and surrounding whitespace.
func (c FollowUpContext) Asked(q string) bool {
	key := NormalizeQuestion(q)
	for _, p := range c.PreviouslyAsked {
		if p == key {
			return true
		}
	}
	return false
}

// NormalizeQuestion is the comparison key used for cross-turn deduplication.
func NormalizeQuestion(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

// PromptBudget describes how a rendered prompt spent its character budget.
// Static+Variable never exceeds MaxTotalChars.
type PromptBudget struct {
	MaxTotalChars int
	Static        string
	Variable      string
}

// Outcome is the tri-state result of a single generation attempt.
type Outcome int

const (
	OutcomeGenerationFailed Outcome = iota
	OutcomeQuestions
	OutcomeNoFollowUpNeeded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeQuestions:
		return "questions"
	case OutcomeNoFollowUpNeeded:
		return "no_follow_up_needed"
	default:
		return "generation_failed"
	}
}

// FollowUpResult is what the pipeline hands back to its caller.
type FollowUpResult struct {
	Questions        []string `json:"follow_up_questions"`
	Reasoning        string   `json:"follow_up_reasoning"`
	ConfidenceScore  float64  `json:"follow_up_confidence"`
	NoFollowUpNeeded bool     `json:"no_follow_up_needed"`
	// Source names the strategy that produced Questions (e.g. "structured_json").
	Source string `json:"source,omitempty"`
	// FailedStage is set when the primary path failed and is empty otherwise.
	FailedStage string `json:"failed_stage,omitempty"`
}
