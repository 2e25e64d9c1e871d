package followup

import (
	"context"
	_ "embed"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"followup-agent/internal/domain"
)

const defaultKeyword = "default"

//go:embed templates.yaml
var defaultTemplatesYAML []byte

// KeywordTemplate maps a keyword to canned follow-up questions.
type KeywordTemplate struct {
	Keyword   string   `yaml:"keyword"`
	Questions []string `yaml:"questions"`
}

type templateFile struct {
	Templates []KeywordTemplate `yaml:"templates"`
}

// LoadTemplates decodes a YAML template document. Keywords are lower-cased and
// entries without a keyword or questions are rejected.
func LoadTemplates(data []byte) ([]KeywordTemplate, error) {
	var f templateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "followup: decode keyword templates")
	}
	if len(f.Templates) == 0 {
		return nil, eris.New("followup: keyword templates are empty")
	}
	out := make([]KeywordTemplate, 0, len(f.Templates))
	for i, t := range f.Templates {
		kw := strings.ToLower(strings.TrimSpace(t.Keyword))
		if kw == "" || len(t.Questions) == 0 {
			return nil, eris.Errorf("followup: keyword template %d is incomplete", i)
		}
		out = append(out, KeywordTemplate{Keyword: kw, Questions: t.Questions})
	}
	return out, nil
}

// DefaultTemplates returns the templates shipped with the binary.
func DefaultTemplates() []KeywordTemplate {
	t, err := LoadTemplates(defaultTemplatesYAML)
	if err != nil {
		panic(err)
	}
	return t
}

// NormalizeAgentType maps agent identifiers such as "Portfolio_Agent" to the
// template keyword "portfolio".
func NormalizeAgentType(agentType string) string {
	s := strings.ToLower(strings.TrimSpace(agentType))
	for _, suffix := range []string{"_agent", "-agent", " agent"} {
		s = strings.TrimSuffix(s, suffix)
	}
	return strings.TrimSpace(s)
}

// KeywordGenerator picks canned questions by agent type and by keywords that
// occur in the agent response. It needs no backend.
type KeywordGenerator struct {
	Templates []KeywordTemplate
}

func (g *KeywordGenerator) Name() string { return "keyword" }

func (g *KeywordGenerator) Generate(_ context.Context, fctx domain.FollowUpContext) Attempt {
	templates := g.Templates
	if len(templates) == 0 {
		templates = DefaultTemplates()
	}

	agentType := NormalizeAgentType(fctx.AgentType)
	response := strings.ToLower(fctx.AgentResponse)

	var picked []string
	for _, t := range templates {
		if t.Keyword == agentType && t.Keyword != defaultKeyword {
			picked = append(picked, t.Questions...)
		}
	}
	for _, t := range templates {
		if t.Keyword != defaultKeyword && strings.Contains(response, t.Keyword) {
			picked = append(picked, t.Questions...)
		}
	}
	if len(picked) == 0 {
		for _, t := range templates {
			if t.Keyword == defaultKeyword {
				picked = append(picked, t.Questions...)
			}
		}
	}

	seen := make(map[string]struct{}, len(picked))
	questions := make([]string, 0, len(picked))
	for _, q := range picked {
		q = strings.TrimSpace(q)
		if _, dup := seen[q]; dup || q == "" || fctx.Asked(q) {
			continue
		}
		seen[q] = struct{}{}
		questions = append(questions, q)
	}
	if len(questions) == 0 {
		return failed(StageGenerating, ErrNoTemplate)
	}
	return Attempt{Outcome: domain.OutcomeQuestions, Questions: questions, Source: SourceTemplate}
}
