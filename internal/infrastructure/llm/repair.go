package llm

import "strings"

// extractJSON pulls the first JSON object or array out of free text and
// applies a bounded repair of common model malformations: code fences,
// trailing commas, and unbalanced brackets on truncated output. It returns
// an empty string when no JSON-shaped fragment exists at all; callers decide
// whether that is a safe default or an error.
func extractJSON(raw string) string {
	raw = stripFences(raw)

	start := strings.IndexAny(raw, "{[")
	if start < 0 {
		return ""
	}
	raw = raw[start:]

	fragment, stack := scanBalanced(raw)
	fragment = stripTrailingCommas(fragment)

	// Truncated output: close whatever is still open, innermost first.
	if len(stack) > 0 {
		fragment = strings.TrimRight(fragment, ", \t\r\n")
		var closers strings.Builder
		for i := len(stack) - 1; i >= 0; i-- {
			if stack[i] == '{' {
				closers.WriteByte('}')
			} else {
				closers.WriteByte(']')
			}
		}
		fragment += closers.String()
	}

	return fragment
}

// scanBalanced walks the fragment tracking bracket depth with string
// awareness, returning the prefix up to the point where the outermost
// bracket closes (or the whole input) plus any still-open brackets.
func scanBalanced(raw string) (string, []byte) {
	var stack []byte
	inString := false
	escaped := false

	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, ch)
		case '}', ']':
			if len(stack) == 0 {
				// Stray closer; cut here and let the caller decode the prefix.
				return raw[:i], stack
			}
			open := stack[len(stack)-1]
			if (ch == '}' && open != '{') || (ch == ']' && open != '[') {
				return raw[:i], stack
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return raw[:i+1], nil
			}
		}
	}

	// An unterminated string would poison the appended closers.
	if inString {
		raw += `"`
	}
	return raw, stack
}

// stripTrailingCommas drops commas whose next non-whitespace byte is a
// closing bracket. Tracks string state so a literal ", ]" inside a JSON
// string value stays untouched.
func stripTrailingCommas(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	inString := false
	escaped := false

	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			b.WriteByte(ch)
			continue
		}

		switch ch {
		case '"':
			inString = true
		case ',':
			j := i + 1
			for j < len(raw) && isJSONSpace(raw[j]) {
				j++
			}
			if j < len(raw) && (raw[j] == '}' || raw[j] == ']') {
				continue
			}
		}
		b.WriteByte(ch)
	}

	return b.String()
}

func isJSONSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n'
}

func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
	return strings.TrimSpace(raw)
}
