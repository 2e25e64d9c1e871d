package followup

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"followup-agent/internal/domain"
)

func historyOfChars(n int) []domain.ConversationTurn {
	if n == 0 {
		return nil
	}
	// "user: " adds six characters to the rendered line.
	if n <= 6 {
		return []domain.ConversationTurn{{Role: domain.RoleUser, Content: "x"}}
	}
	return []domain.ConversationTurn{{Role: domain.RoleUser, Content: strings.Repeat("h", n-6)}}
}

func TestBuild_NeverExceedsBudget(t *testing.T) {
	b := PromptBuilder{MaxChars: 2000}
	for _, n := range []int{0, 1, 50, 500, 1999, 2000, 5000, 10000} {
		fctx := domain.FollowUpContext{
			UserQuery:     "How should I invest?",
			AgentResponse: "You could consider index funds.",
			History:       historyOfChars(n),
		}
		prompt := b.Build(fctx)
		require.LessOrEqual(t, charLen(prompt), 2000, "history of %d chars", n)

		budget := b.Budget(fctx)
		require.LessOrEqual(t, charLen(budget.Static)+charLen(budget.Variable), budget.MaxTotalChars)
	}
}

func FuzzBuild_Budget(f *testing.F) {
	f.Add(0, "q")
	f.Add(9999, "How do I rebalance?")
	f.Add(10000, "é")
	f.Fuzz(func(t *testing.T, n int, query string) {
		if n < 0 || n > 10000 {
			t.Skip()
		}
		b := PromptBuilder{}
		prompt := b.Build(domain.FollowUpContext{UserQuery: query, History: historyOfChars(n)})
		require.LessOrEqual(t, charLen(prompt), DefaultMaxPromptChars)
	})
}

func TestBuild_KeepsMostRecentHistory(t *testing.T) {
	b := PromptBuilder{MaxChars: 3000}
	turns := []domain.ConversationTurn{
		{Role: domain.RoleUser, Content: "OLDEST-MARKER " + strings.Repeat("a", 4000)},
		{Role: domain.RoleAssistant, Content: "NEWEST-MARKER"},
	}
	fctx := domain.FollowUpContext{UserQuery: "What next?", History: turns}

	prompt := b.Build(fctx)
	require.Contains(t, prompt, "NEWEST-MARKER")
	require.NotContains(t, prompt, "OLDEST-MARKER")

	budget := b.Budget(fctx)
	require.True(t, strings.HasSuffix(budget.Variable, "assistant: NEWEST-MARKER"))
	require.Equal(t, 3000, charLen(budget.Static)+charLen(budget.Variable))
}

func TestBuild_PreviouslyAskedSurvivesTruncation(t *testing.T) {
	b := PromptBuilder{MaxChars: 1500}
	fctx := domain.FollowUpContext{
		UserQuery:       "Anything else?",
		PreviouslyAsked: []string{"what is your risk tolerance?"},
		History:         historyOfChars(10000),
	}
	prompt := b.Build(fctx)
	require.Contains(t, prompt, "- what is your risk tolerance?")
	require.Contains(t, prompt, "Anything else?")
}

func TestBuild_LongPreviouslyAskedKeepsQueryAndTail(t *testing.T) {
	asked := make([]string, 400)
	for i := range asked {
		asked[i] = fmt.Sprintf("what is question number %d about your plan?", i)
	}
	b := PromptBuilder{MaxChars: 2000}
	fctx := domain.FollowUpContext{
		UserQuery:       "Should I buy bonds?",
		PreviouslyAsked: asked,
		History:         historyOfChars(500),
	}

	prompt := b.Build(fctx)
	require.LessOrEqual(t, charLen(prompt), 2000)
	require.Contains(t, prompt, "## User Query\nShould I buy bonds?")
	require.True(t, strings.HasSuffix(prompt, "## Follow-up Questions\n"))
	require.Contains(t, prompt, "- what is question number 0 about your plan?")

	budget := b.Budget(fctx)
	require.Empty(t, budget.Variable)
	require.Equal(t, 2000, charLen(budget.Static))
}

func TestDefaultTemplate_DescribesJSONNoFollowUp(t *testing.T) {
	prompt := PromptBuilder{}.Build(domain.FollowUpContext{UserQuery: "q"})
	require.Contains(t, prompt, "no_follow_up_needed")
	require.Contains(t, prompt, "respond with exactly: No follow-up needed.")
}

func TestBuild_ShedsFragmentsThenResponse(t *testing.T) {
	base := PromptBuilder{}.Build(domain.FollowUpContext{UserQuery: "Q?"})
	limit := charLen(base) + 40

	b := PromptBuilder{MaxChars: limit}
	fctx := domain.FollowUpContext{
		UserQuery:       "Q?",
		AgentResponse:   "RESPONSE " + strings.Repeat("r", 500),
		DomainFragments: map[string]json.RawMessage{"fund_data": json.RawMessage(`{"FRAGMENT":true}`)},
		History:         historyOfChars(100),
	}
	prompt := b.Build(fctx)
	require.LessOrEqual(t, charLen(prompt), limit)
	require.NotContains(t, prompt, "FRAGMENT")
	require.Contains(t, prompt, "## Agent Response\nRESPONSE")
	require.True(t, strings.HasSuffix(prompt, "## Follow-up Questions\n"))
}

func TestBuild_IntentSection(t *testing.T) {
	b := PromptBuilder{}
	withIntent := b.Build(domain.FollowUpContext{UserQuery: "q", InferredIntent: strPtr("retirement planning")})
	require.Contains(t, withIntent, "## Detected Intent\nretirement planning")

	without := b.Build(domain.FollowUpContext{UserQuery: "q"})
	require.Contains(t, without, "Infer the user's intent")
}

func TestBuild_SubstitutesTemplatePlaceholders(t *testing.T) {
	prompt := PromptBuilder{MaxQuestions: 2, Sentinel: "NOTHING TO ASK"}.Build(domain.FollowUpContext{UserQuery: "q"})
	require.Contains(t, prompt, "at most 2 targeted")
	require.Contains(t, prompt, "respond with exactly: NOTHING TO ASK.")
	require.NotContains(t, prompt, "{max_questions}")
	require.NotContains(t, prompt, "{sentinel}")
}

func TestBuild_CountsCharactersNotBytes(t *testing.T) {
	b := PromptBuilder{MaxChars: 1200}
	fctx := domain.FollowUpContext{
		UserQuery: "q",
		History:   []domain.ConversationTurn{{Role: domain.RoleUser, Content: strings.Repeat("é", 5000)}},
	}
	prompt := b.Build(fctx)
	require.Equal(t, 1200, charLen(prompt))
	require.True(t, strings.Contains(prompt, "ééé"))
}
