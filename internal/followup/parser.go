package followup

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

const DefaultSentinel = "No follow-up needed"

// Source names the strategy that produced a batch of questions.
type Source string

const (
	SourceNone       Source = "none"
	SourceSentinel   Source = "sentinel"
	SourceStructured Source = "structured_json"
	SourceLines      Source = "line_pattern"
	SourceSentences  Source = "free_text"
	SourceTemplate   Source = "keyword_template"
)

// questionKeys are the object keys accepted as the question list.
var questionKeys = []string{"questions", "follow_up_questions", "followUpQuestions"}

var (
	enumerationMarker = regexp.MustCompile("^(?:\\s*(?:\\d+[.)]|[-*•\\[]|[\"'`“”‘’]))+\\s*")
	questionSentence  = regexp.MustCompile(`[A-Z][^.!?]*\?`)
	// sentenceBreak spots prose lines holding more than one sentence; those are
	// left to the sentence strategy.
	sentenceBreak     = regexp.MustCompile(`[.!?]\s+\S`)
)

const quoteChars = "\"'`“”‘’"

// ParseResult is the outcome of parsing raw backend text.
type ParseResult struct {
	Candidates []string
	NoFollowUp bool
	Source     Source
	// Reasoning and Confidence are only set when a structured object carried them.
	Reasoning  string
	Confidence *float64
}

// Parser turns unstructured backend output into candidate questions.
type Parser struct {
	Sentinel string
}

// Parse runs the extraction cascade and stops at the first strategy that
// yields a candidate. It never fails; an empty result is legal.
func (p Parser) Parse(raw string) ParseResult {
	if p.isSentinel(raw) {
		return ParseResult{NoFollowUp: true, Source: SourceSentinel}
	}
	if res, ok := parseStructured(raw); ok {
		return res
	}
	if c := parseLines(raw); len(c) > 0 {
		return ParseResult{Candidates: c, Source: SourceLines}
	}
	if c := parseSentences(raw); len(c) > 0 {
		return ParseResult{Candidates: c, Source: SourceSentences}
	}
	return ParseResult{Source: SourceNone}
}

func (p Parser) isSentinel(raw string) bool {
	sentinel := p.Sentinel
	if sentinel == "" {
		sentinel = DefaultSentinel
	}
	text := strings.ToLower(strings.Trim(strings.TrimSpace(raw), quoteChars))
	return strings.HasPrefix(text, strings.ToLower(sentinel))
}

// parseStructured accepts the first JSON span when it is an array of strings or
// an object holding one under a recognised key. An object flagged with
// no_follow_up_needed short-circuits to the sentinel outcome.
func parseStructured(raw string) (ParseResult, bool) {
	span, ok := firstJSONSpan(raw)
	if !ok || !gjson.Valid(span) {
		return ParseResult{}, false
	}
	doc := gjson.Parse(span)

	var list gjson.Result
	switch {
	case doc.IsArray():
		list = doc
	case doc.IsObject():
		if flag := doc.Get("no_follow_up_needed"); flag.IsBool() && flag.Bool() {
			return ParseResult{NoFollowUp: true, Source: SourceSentinel}, true
		}
		for _, key := range questionKeys {
			if v := doc.Get(key); v.IsArray() {
				list = v
				break
			}
		}
		if !list.Exists() {
			return ParseResult{}, false
		}
	default:
		return ParseResult{}, false
	}

	items := list.Array()
	raws := make([]string, 0, len(items))
	for _, item := range items {
		if item.Type != gjson.String {
			return ParseResult{}, false
		}
		raws = append(raws, item.String())
	}
	candidates := finalize(raws)
	if len(candidates) == 0 {
		return ParseResult{}, false
	}

	res := ParseResult{Candidates: candidates, Source: SourceStructured}
	if doc.IsObject() {
		if r := doc.Get("reasoning"); r.Type == gjson.String {
			res.Reasoning = strings.TrimSpace(r.String())
		}
		if c := doc.Get("confidence_score"); c.Type == gjson.Number {
			v := c.Float()
			res.Confidence = &v
		}
	}
	return res, true
}

func parseLines(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		line = enumerationMarker.ReplaceAllString(line, "")
		line = cleanCandidate(line)
		if strings.HasSuffix(line, "?") && !sentenceBreak.MatchString(line) {
			out = append(out, line)
		}
	}
	return finalize(out)
}

func parseSentences(raw string) []string {
	matches := questionSentence.FindAllString(raw, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.Join(strings.Fields(m), " "))
	}
	return finalize(out)
}

func cleanCandidate(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, ", ")
	return strings.TrimSpace(strings.Trim(s, quoteChars))
}

// finalize strips quotes, drops empties and removes exact duplicates while
// keeping first-seen order.
func finalize(raws []string) []string {
	seen := make(map[string]struct{}, len(raws))
	out := make([]string, 0, len(raws))
	for _, r := range raws {
		c := cleanCandidate(r)
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
