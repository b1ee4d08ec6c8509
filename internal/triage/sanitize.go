package triage

import "strings"

// markupToggles are the Telegram Markdown toggle characters whose unmatched
// occurrences break parsing.
var markupToggles = []byte{'*', '_', '`'}

// SanitizeMarkup heuristically repairs markup that the chat platform would
// reject. For each toggle character with an odd unescaped count, the last
// occurrence is escaped so the earlier, presumably intentional pairs stay
// intact. Unbalanced square brackets are escaped wholesale, and angle
// brackets and ampersands always. The transform only ever touches unescaped
// characters, which makes it idempotent.
func SanitizeMarkup(text string) string {
	if text == "" {
		return text
	}

	for _, ch := range markupToggles {
		if countUnescaped(text, ch)%2 != 0 {
			text = escapeLastUnescaped(text, ch)
		}
	}

	if countUnescaped(text, '[') != countUnescaped(text, ']') {
		text = escapeAllUnescaped(text, '[')
		text = escapeAllUnescaped(text, ']')
	}

	for _, ch := range []byte{'>', '<', '&'} {
		text = escapeAllUnescaped(text, ch)
	}

	return text
}

// countUnescaped counts occurrences of ch not preceded by a backslash.
// A backslash consumes the following byte, so "\\*" counts the star as
// escaped and "\\\\*" does not.
func countUnescaped(s string, ch byte) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if s[i] == ch {
			n++
		}
	}
	return n
}

// escapeLastUnescaped escapes the final unescaped occurrence of ch.
func escapeLastUnescaped(s string, ch byte) string {
	last := -1
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' {
			i++
			continue
		}
		if s[i] == ch {
			last = i
		}
	}
	if last < 0 {
		return s
	}
	return s[:last] + "\\" + s[last:]
}

// escapeAllUnescaped escapes every unescaped occurrence of ch.
func escapeAllUnescaped(s string, ch byte) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' {
			sb.WriteByte(s[i])
			if i+1 < len(s) {
				sb.WriteByte(s[i+1])
				i++
			}
			continue
		}
		if s[i] == ch {
			sb.WriteByte('\\')
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}
