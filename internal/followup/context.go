package followup

import (
	"encoding/json"
	"strings"

	"followup-agent/internal/domain"
)

// FragmentKeys is the allow-list of domain fragments copied into the prompt
// context. Keys not listed here never reach the backend.
var FragmentKeys = []string{
	"fund_data",
	"portfolio_data",
	"user_profile",
	"user_preferences",
	"investment_goals",
}

// Assemble distills the caller's state into a FollowUpContext. It is total over
// well-formed state. A fragment that cannot be encoded yields the minimal
// (query-only) context together with an *AssemblyError.
func Assemble(state domain.State) (domain.FollowUpContext, error) {
	fctx := domain.FollowUpContext{
		UserQuery:     strings.TrimSpace(state.UserQuery),
		AgentType:     strings.TrimSpace(state.AgentType),
		AgentResponse: strings.TrimSpace(state.AgentResponse),
	}

	if state.Intent != nil {
		if intent := strings.TrimSpace(*state.Intent); intent != "" {
			fctx.InferredIntent = &intent
		}
	}

	for _, key := range FragmentKeys {
		v, ok := state.Fragments[key]
		if !ok || v == nil {
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return minimalContext(state), &AssemblyError{Key: key, Err: err}
		}
		if fctx.DomainFragments == nil {
			fctx.DomainFragments = make(map[string]json.RawMessage, len(FragmentKeys))
		}
		fctx.DomainFragments[key] = raw
	}

	seen := make(map[string]struct{})
	for _, turn := range state.History {
		content := strings.TrimSpace(turn.Content)
		if content != "" && (turn.Role == domain.RoleUser || turn.Role == domain.RoleAssistant) {
			fctx.History = append(fctx.History, domain.ConversationTurn{Role: turn.Role, Content: content})
		}
		for _, q := range turn.FollowUpQuestions {
			key := domain.NormalizeQuestion(q)
			if key == "" {
				continue
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			fctx.PreviouslyAsked = append(fctx.PreviouslyAsked, key)
		}
	}

	return fctx, nil
}

func minimalContext(state domain.State) domain.FollowUpContext {
	return domain.FollowUpContext{UserQuery: strings.TrimSpace(state.UserQuery)}
}
