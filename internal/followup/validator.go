package followup

import "strings"

const (
	DefaultMaxQuestions     = 3
	DefaultMinQuestionChars = 10
	DefaultMaxQuestionChars = 200
)

// Constraints are the well-formedness rules a question batch must meet.
// A MaxChars of zero disables the upper length bound.
type Constraints struct {
	MinChars     int
	MaxChars     int
	MaxQuestions int
}

// DefaultConstraints returns the production limits.
func DefaultConstraints() Constraints {
	return Constraints{
		MinChars:     DefaultMinQuestionChars,
		MaxChars:     DefaultMaxQuestionChars,
		MaxQuestions: DefaultMaxQuestions,
	}
}

// Validate is the all-or-nothing gate: a single non-conforming item rejects
// the whole batch. An empty batch is rejected too.
func (c Constraints) Validate(batch []string) error {
	if len(batch) == 0 {
		return &ValidationError{Rule: RuleEmpty, Index: -1}
	}
	if len(batch) > c.maxQuestions() {
		return &ValidationError{Rule: RuleCount, Index: -1}
	}
	for i, q := range batch {
		if rule, ok := c.check(q); !ok {
			return &ValidationError{Rule: rule, Index: i, Question: q}
		}
	}
	return nil
}

// Valid reports whether batch passes Validate.
func (c Constraints) Valid(batch []string) bool {
	return c.Validate(batch) == nil
}

// Filter drops non-conforming items one by one and truncates the remainder
// to MaxQuestions.
func (c Constraints) Filter(batch []string) []string {
	out := make([]string, 0, len(batch))
	for _, q := range batch {
		if _, ok := c.check(q); !ok {
			continue
		}
		out = append(out, q)
		if len(out) == c.maxQuestions() {
			break
		}
	}
	return out
}

func (c Constraints) check(q string) (Rule, bool) {
	n := charLen(q)
	switch {
	case n <= c.MinChars:
		return RuleTooShort, false
	case c.MaxChars > 0 && n >= c.MaxChars:
		return RuleTooLong, false
	case !strings.HasSuffix(q, "?"):
		return RuleNoQuestionMark, false
	}
	return "", true
}

func (c Constraints) maxQuestions() int {
	if c.MaxQuestions <= 0 {
		return DefaultMaxQuestions
	}
	return c.MaxQuestions
}
