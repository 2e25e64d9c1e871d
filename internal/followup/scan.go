package followup

// firstJSONSpan returns the first balanced [...] or {...} span in s. Brackets
// inside JSON strings are ignored, and a span whose closing delimiter does not
// match its opener, or an opener that is never closed, is abandoned so scanning
// resumes right after that opener.
//
// Iterating bytes is safe here: the delimiters are ASCII, and UTF-8 never
// reuses ASCII bytes inside multi-byte sequences.
func firstJSONSpan(s string) (string, bool) {
	start := -1
	var stack []byte
	inString, escaped := false, false

	for i := 0; i < len(s) || start >= 0; i++ {
		if i >= len(s) {
			i = start
			start = -1
			inString, escaped = false, false
			continue
		}
		ch := s[i]
		if start < 0 {
			if ch == '[' || ch == '{' {
				start = i
				stack = append(stack[:0], closerFor(ch))
			}
			continue
		}
		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch ch {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '[', '{':
			stack = append(stack, closerFor(ch))
		case ']', '}':
			if ch != stack[len(stack)-1] {
				i = start
				start = -1
				continue
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

func closerFor(open byte) byte {
	if open == '[' {
		return ']'
	}
	return '}'
}
