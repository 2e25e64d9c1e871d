package followup

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"followup-agent/internal/domain"
)

func TestDefaultTemplates(t *testing.T) {
	templates := DefaultTemplates()
	keywords := make([]string, 0, len(templates))
	for _, tmpl := range templates {
		keywords = append(keywords, tmpl.Keyword)
		require.Len(t, tmpl.Questions, 3)
	}
	require.Equal(t, []string{"portfolio", "fund", "tax", "default"}, keywords)
}

func TestLoadTemplates_Errors(t *testing.T) {
	_, err := LoadTemplates([]byte("templates: ["))
	require.Error(t, err)

	_, err = LoadTemplates([]byte("templates: []"))
	require.Error(t, err)

	_, err = LoadTemplates([]byte("templates:\n  - keyword: ''\n    questions: [a]\n"))
	require.Error(t, err)

	got, err := LoadTemplates([]byte("templates:\n  - keyword: ' Retirement '\n    questions: ['When do you plan to retire?']\n"))
	require.NoError(t, err)
	require.Equal(t, []KeywordTemplate{{Keyword: "retirement", Questions: []string{"When do you plan to retire?"}}}, got)
}

func TestNormalizeAgentType(t *testing.T) {
	require.Equal(t, "portfolio", NormalizeAgentType("Portfolio_Agent"))
	require.Equal(t, "fund", NormalizeAgentType(" fund-agent "))
	require.Equal(t, "tax", NormalizeAgentType("tax"))
	require.Equal(t, "", NormalizeAgentType(""))
}

func TestKeywordGenerator(t *testing.T) {
	templates := DefaultTemplates()
	portfolio := templates[0].Questions
	fund := templates[1].Questions
	fallback := templates[3].Questions

	g := &KeywordGenerator{Templates: templates}

	t.Run("agent type first then response keywords", func(t *testing.T) {
		att := g.Generate(context.Background(), domain.FollowUpContext{
			AgentType:     "portfolio_agent",
			AgentResponse: "This Fund has low fees.",
		})
		require.Equal(t, domain.OutcomeQuestions, att.Outcome)
		require.Equal(t, SourceTemplate, att.Source)
		require.Equal(t, append(append([]string{}, portfolio...), fund...), att.Questions)
	})

	t.Run("agent type and keyword overlap is unique", func(t *testing.T) {
		att := g.Generate(context.Background(), domain.FollowUpContext{
			AgentType:     "portfolio",
			AgentResponse: "your portfolio is balanced",
		})
		require.Equal(t, portfolio, att.Questions)
	})

	t.Run("default when nothing matches", func(t *testing.T) {
		att := g.Generate(context.Background(), domain.FollowUpContext{AgentType: "weather"})
		require.Equal(t, fallback, att.Questions)
	})

	t.Run("skips previously asked", func(t *testing.T) {
		att := g.Generate(context.Background(), domain.FollowUpContext{
			AgentType:       "portfolio",
			PreviouslyAsked: []string{domain.NormalizeQuestion(portfolio[0])},
		})
		require.Equal(t, portfolio[1:], att.Questions)
	})

	t.Run("everything already asked", func(t *testing.T) {
		asked := make([]string, 0, len(fallback))
		for _, q := range fallback {
			asked = append(asked, domain.NormalizeQuestion(q))
		}
		att := g.Generate(context.Background(), domain.FollowUpContext{PreviouslyAsked: asked})
		require.Equal(t, domain.OutcomeGenerationFailed, att.Outcome)
		require.True(t, errors.Is(att.Err, ErrNoTemplate))
	})
}
