package followup

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"followup-agent/internal/domain"
)

const DefaultMaxPromptChars = 10000

// Template is the static, instructional part of the follow-up prompt.
// {max_questions} and {sentinel} are substituted at render time.
type Template struct {
	Persona      string
	Task         string
	OutputFormat string
	NoFollowUp   string
	InferIntent  string
}

// DefaultTemplate is the prompt used in production.
func DefaultTemplate() Template {
	return Template{
		Persona: strings.Join([]string{
			"Role:",
			"You are the follow-up agent of a financial advisory assistant.",
			"You read the user's query and the primary agent's answer and ask clarifying questions back to the user.",
		}, "\n"),
		Task: strings.Join([]string{
			"Task:",
			"Ask at most {max_questions} targeted, high-impact follow-up questions that gather missing, decision-relevant detail.",
			"1) Ask only for information that is necessary to proceed.",
			"2) Keep each question concise and conversational (15 words or less).",
			"3) Every question must end with a question mark.",
			"4) Never repeat or rephrase a previously asked question.",
		}, "\n"),
		OutputFormat: strings.Join([]string{
			"Output Contract:",
			`Respond ONLY with JSON of the form {"questions": ["First follow-up question?", "Second follow-up question?"], "reasoning": "why these questions matter"}.`,
		}, "\n"),
		NoFollowUp: strings.Join([]string{
			"If the query is already clear, respond with exactly: {sentinel}.",
			`When you can only answer in JSON, use {"questions": [], "no_follow_up_needed": true} instead.`,
		}, "\n"),
		InferIntent: "No intent was detected upstream. Infer the user's intent from the query before choosing questions.",
	}
}

// PromptBuilder renders a FollowUpContext into a single prompt that never
// exceeds MaxChars characters.
type PromptBuilder struct {
	MaxChars     int
	MaxQuestions int
	Sentinel     string
	Template     Template
}

// Build returns the dispatchable prompt.
func (b PromptBuilder) Build(fctx domain.FollowUpContext) string {
	head, history, tail := b.layout(fctx)
	return firstChars(head+history+tail, b.maxChars())
}

// Budget reports how Build split the budget between the static and
// variable (history) sections.
func (b PromptBuilder) Budget(fctx domain.FollowUpContext) domain.PromptBudget {
	head, history, tail := b.layout(fctx)
	return domain.PromptBudget{
		MaxTotalChars: b.maxChars(),
		Static:        firstChars(head+tail, b.maxChars()),
		Variable:      history,
	}
}

func (b PromptBuilder) maxChars() int {
	if b.MaxChars <= 0 {
		return DefaultMaxPromptChars
	}
	return b.MaxChars
}

// layout renders the static head and tail around the history slot. Low-priority
// static sections are shed first when the static part alone is over budget:
// domain fragments go, then the agent response is shortened. A head that still
// does not fit is cut at its end, never the closing header. History keeps its
// most recent suffix.
func (b PromptBuilder) layout(fctx domain.FollowUpContext) (head, history, tail string) {
	limit := b.maxChars()
	tail = "\n\n## Follow-up Questions\n"

	fragments := renderFragments(fctx.DomainFragments)
	response := fctx.AgentResponse
	head = b.renderHead(fctx, response, fragments)

	if over := charLen(head) + charLen(tail) - limit; over > 0 && fragments != "" {
		fragments = ""
		head = b.renderHead(fctx, response, fragments)
	}
	if over := charLen(head) + charLen(tail) - limit; over > 0 && response != "" {
		response = firstChars(response, charLen(response)-over)
		head = b.renderHead(fctx, response, fragments)
	}
	if charLen(head)+charLen(tail) > limit {
		if limit <= charLen(tail) {
			return "", "", firstChars(tail, limit)
		}
		return firstChars(head, limit-charLen(tail)), "", tail
	}

	available := limit - charLen(head) - charLen(tail)
	if available <= 0 {
		return head, "", tail
	}
	history = renderHistory(fctx.History)
	if charLen(history) > available {
		history = lastChars(history, available)
	}
	return head, history, tail
}

func (b PromptBuilder) renderHead(fctx domain.FollowUpContext, response, fragments string) string {
	tmpl := b.Template
	if tmpl == (Template{}) {
		tmpl = DefaultTemplate()
	}
	maxQuestions := b.MaxQuestions
	if maxQuestions <= 0 {
		maxQuestions = DefaultMaxQuestions
	}
	sentinel := b.Sentinel
	if sentinel == "" {
		sentinel = DefaultSentinel
	}
	r := strings.NewReplacer(
		"{max_questions}", strconv.Itoa(maxQuestions),
		"{sentinel}", sentinel,
	)

	var sb strings.Builder
	section := func(title, body string) {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		if title != "" {
			sb.WriteString("## ")
			sb.WriteString(title)
			sb.WriteString("\n")
		}
		sb.WriteString(body)
	}

	section("", r.Replace(tmpl.Persona))
	section("", r.Replace(tmpl.Task))
	section("", r.Replace(tmpl.OutputFormat)+"\n"+r.Replace(tmpl.NoFollowUp))
	// The query and the previously-asked list sit with the instructions so
	// history truncation never removes them.
	section("User Query", fctx.UserQuery)
	section("Previously Asked Questions (DO NOT DUPLICATE)", renderPreviouslyAsked(fctx.PreviouslyAsked))
	if fctx.InferredIntent != nil {
		section("Detected Intent", *fctx.InferredIntent)
	} else {
		section("Detected Intent", r.Replace(tmpl.InferIntent))
	}
	if fctx.AgentType != "" {
		section("Agent Type", fctx.AgentType)
	}
	if response != "" {
		section("Agent Response", response)
	}
	if fragments != "" {
		section("Domain Data", fragments)
	}
	section("Conversation History", "")
	return sb.String()
}

func renderPreviouslyAsked(asked []string) string {
	if len(asked) == 0 {
		return "None"
	}
	lines := make([]string, len(asked))
	for i, q := range asked {
		lines[i] = "- " + q
	}
	return strings.Join(lines, "\n")
}

func renderFragments(fragments map[string]json.RawMessage) string {
	if len(fragments) == 0 {
		return ""
	}
	keys := make([]string, 0, len(fragments))
	for k := range fragments {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+string(fragments[k]))
	}
	return strings.Join(parts, "\n")
}

func renderHistory(turns []domain.ConversationTurn) string {
	if len(turns) == 0 {
		return ""
	}
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, string(t.Role)+": "+t.Content)
	}
	return strings.Join(lines, "\n")
}
