package followup

import "followup-agent/internal/domain"

// Dedupe removes candidates already present in previouslyAsked, comparing the
// trimmed lower-cased form. Order is preserved and the operation is idempotent.
func Dedupe(candidates, previouslyAsked []string) []string {
	asked := make(map[string]struct{}, len(previouslyAsked))
	for _, q := range previouslyAsked {
		asked[domain.NormalizeQuestion(q)] = struct{}{}
	}
	out := make([]string, 0, len(candidates))
	for _, q := range candidates {
		if _, dup := asked[domain.NormalizeQuestion(q)]; dup {
			continue
		}
		out = append(out, q)
	}
	return out
}
