package decode

// #region imports
import (
	"strings"
)

// #endregion

// #region strip-wrappers

// StripWrappers removes code-fence markers and leading/trailing prose around
// the JSON body by slicing from the first '{' or '[' to the last '}' or ']'.
// A body with no closing delimiter (truncated output) is kept to the end so
// repair can close it.
func StripWrappers(raw string) string {
	s := strings.TrimSpace(raw)

	// Drop fence lines wholesale; the delimiter scan below handles any
	// remaining prose.
	if strings.Contains(s, "```") {
		var kept []string
		for _, line := range strings.Split(s, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "```") {
				continue
			}
			kept = append(kept, line)
		}
		s = strings.Join(kept, "\n")
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return strings.TrimSpace(s)
	}
	end := strings.LastIndexAny(s, "}]")
	if end < start {
		return strings.TrimSpace(s[start:])
	}
	return strings.TrimSpace(s[start : end+1])
}

// #endregion strip-wrappers

// #region repair

// Repair applies the structural-defect heuristics in order: close unterminated
// string literals, strip trailing commas, then balance braces and brackets by
// count. The result is re-parsed exactly once by the caller.
func Repair(s string) string {
	s = closeUnterminatedStrings(s)
	s = stripTrailingCommas(s)
	s = balanceDelimiters(s)
	return s
}

// #endregion repair

// #region close-strings

// closeUnterminatedStrings appends a closing quote to any line with an odd
// count of unescaped quotes. JSON strings do not legally span lines, so an
// odd count means the generator truncated mid-string.
func closeUnterminatedStrings(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if oddQuoteCount(line) {
			lines[i] = line + `"`
		}
	}
	return strings.Join(lines, "\n")
}

func oddQuoteCount(line string) bool {
	count := 0
	escaped := false
	for _, r := range line {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == '"':
			count++
		}
	}
	return count%2 == 1
}

// #endregion close-strings

// #region trailing-commas

// stripTrailingCommas removes commas that directly precede a closing brace
// or bracket, ignoring commas inside string literals.
func stripTrailingCommas(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	runes := []rune(s)
	inString := false
	escaped := false

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case escaped:
			escaped = false
		case r == '\\' && inString:
			escaped = true
		case r == '"':
			inString = !inString
		case r == ',' && !inString:
			// Look ahead past whitespace for a closing delimiter.
			j := i + 1
			for j < len(runes) && (runes[j] == ' ' || runes[j] == '\t' || runes[j] == '\n' || runes[j] == '\r') {
				j++
			}
			if j < len(runes) && (runes[j] == '}' || runes[j] == ']') {
				continue // drop the comma
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

// #endregion trailing-commas

// #region balance

// balanceDelimiters appends closers for any unclosed braces or brackets,
// in reverse opening order. Stray closers with no opener are left alone;
// the re-parse will reject them and trigger a reprompt instead.
func balanceDelimiters(s string) string {
	var stack []rune
	inString := false
	escaped := false

	for _, r := range s {
		switch {
		case escaped:
			escaped = false
		case r == '\\' && inString:
			escaped = true
		case r == '"':
			inString = !inString
		case inString:
			// delimiters inside strings don't count
		case r == '{' || r == '[':
			stack = append(stack, r)
		case r == '}' || r == ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}

	if len(stack) == 0 {
		return s
	}

	var b strings.Builder
	b.WriteString(s)
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			b.WriteRune('}')
		} else {
			b.WriteRune(']')
		}
	}
	return b.String()
}

// #endregion balance
