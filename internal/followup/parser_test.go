package followup

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		want       []string
		source     Source
		noFollowUp bool
	}{
		{
			name:   "json array",
			raw:    `["How much can you invest monthly?", "What is your risk tolerance?"]`,
			want:   []string{"How much can you invest monthly?", "What is your risk tolerance?"},
			source: SourceStructured,
		},
		{
			name:   "json object inside prose and fences",
			raw:    "Sure!\n```json\n{\"questions\": [\"What is your time horizon?\"], \"reasoning\": \"horizon matters\"}\n```",
			want:   []string{"What is your time horizon?"},
			source: SourceStructured,
		},
		{
			name:   "alternate object key",
			raw:    `{"follow_up_questions": ["Do you hold any bonds today?"]}`,
			want:   []string{"Do you hold any bonds today?"},
			source: SourceStructured,
		},
		{
			name:   "brackets inside strings do not end the span",
			raw:    `["Is [cash] part of your plan?", "Does {this} matter to you?"] trailing`,
			want:   []string{"Is [cash] part of your plan?", "Does {this} matter to you?"},
			source: SourceStructured,
		},
		{
			name:   "non-string element falls through to lines",
			raw:    "[1, \"What is your age bracket?\"]\n- What is your age bracket?",
			want:   []string{"What is your age bracket?"},
			source: SourceLines,
		},
		{
			name:   "enumerated lines",
			raw:    "Here are some questions:\n1. What is your investment horizon?\n2) \"How liquid do you need to be?\"\n- Are you saving for retirement?\nThanks.",
			want:   []string{"What is your investment horizon?", "How liquid do you need to be?", "Are you saving for retirement?"},
			source: SourceLines,
		},
		{
			name:   "free-text sentences",
			raw:    "I think we need more details. What is your investment horizon? Also, how much risk can you tolerate? Let me know.",
			want:   []string{"What is your investment horizon?", "Also, how much risk can you tolerate?"},
			source: SourceSentences,
		},
		{
			name:   "duplicates removed case-sensitively",
			raw:    `["What is your goal?", "What is your goal?", "what is your goal?"]`,
			want:   []string{"What is your goal?", "what is your goal?"},
			source: SourceStructured,
		},
		{
			name:       "sentinel",
			raw:        "  No follow-up needed.",
			source:     SourceSentinel,
			noFollowUp: true,
		},
		{
			name:       "quoted sentinel is case-insensitive",
			raw:        `"NO FOLLOW-UP NEEDED"`,
			source:     SourceSentinel,
			noFollowUp: true,
		},
		{
			name:       "structured no_follow_up_needed flag",
			raw:        `{"no_follow_up_needed": true, "questions": []}`,
			source:     SourceSentinel,
			noFollowUp: true,
		},
		{
			name:   "nothing recognisable",
			raw:    "I cannot help with that.",
			source: SourceNone,
		},
		{
			name:   "unclosed opener before a valid array",
			raw:    "Allocation [approx: [\"How much can you invest monthly?\", \"What is your risk tolerance?\"]",
			want:   []string{"How much can you invest monthly?", "What is your risk tolerance?"},
			source: SourceStructured,
		},
		{
			name:   "truncated json recovered by lines",
			raw:    `["What is your goal?"`,
			want:   []string{"What is your goal?"},
			source: SourceLines,
		},
	}

	p := Parser{Sentinel: DefaultSentinel}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := p.Parse(tc.raw)
			require.Equal(t, tc.noFollowUp, got.NoFollowUp)
			require.Equal(t, tc.source, got.Source)
			if diff := cmp.Diff(tc.want, got.Candidates, cmpopts.EquateEmpty()); diff != "" {
				t.Fatalf("candidates mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_StructuredReasoningAndConfidence(t *testing.T) {
	res := Parser{}.Parse(`{"questions": ["Which account type is this for?"], "reasoning": "Account type drives tax treatment.", "confidence_score": 0.82}`)
	require.Equal(t, SourceStructured, res.Source)
	require.Equal(t, "Account type drives tax treatment.", res.Reasoning)
	require.NotNil(t, res.Confidence)
	require.InDelta(t, 0.82, *res.Confidence, 1e-9)
}

func TestParse_NeverPanics(t *testing.T) {
	inputs := []string{"", "{", "}", "[[[", "]]]{", `{"questions": "nope"}`, "\x00\xff?", `["\"`, "?", "1.", "[}"}
	p := Parser{}
	for _, in := range inputs {
		require.NotPanics(t, func() { p.Parse(in) }, in)
	}
}

func TestFirstJSONSpan(t *testing.T) {
	span, ok := firstJSONSpan(`noise [} then {"a": "b]"} after`)
	require.True(t, ok)
	require.Equal(t, `{"a": "b]"}`, span)

	span, ok = firstJSONSpan(`{"note": "open [ ["a", "b"] {"x": 1}`)
	require.True(t, ok)
	require.Equal(t, `["a", "b"]`, span)

	span, ok = firstJSONSpan(`[ unclosed { also unclosed {"ok": true}`)
	require.True(t, ok)
	require.Equal(t, `{"ok": true}`, span)

	_, ok = firstJSONSpan(`[[[ never closed`)
	require.False(t, ok)

	_, ok = firstJSONSpan("no brackets here")
	require.False(t, ok)
}
