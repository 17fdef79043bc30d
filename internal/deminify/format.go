package deminify

import "strings"

// formatIfValid formats code only if p accepts it. Formatting is cosmetic:
// a parse failure returns code unchanged.
func formatIfValid(code string, p Parser) (string, bool) {
	if err := p.Parse(code); err != nil {
		return code, false
	}
	return Format(code), true
}

// declPrefixes start a top-level declaration that gets a blank line when
// it directly follows a closing brace.
var declPrefixes = []string{"function ", "function*", "async function", "const ", "class "}

// Format normalizes line endings, trims trailing whitespace, separates
// top-level declarations that follow a closing brace with a blank line and
// ends the text with exactly one newline. Format(Format(s)) == Format(s).
func Format(code string) string {
	code = strings.ReplaceAll(code, "\r\n", "\n")
	code = strings.ReplaceAll(code, "\r", "\n")

	lines := strings.Split(code, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if n := len(out); n > 0 && isTopLevelDecl(line) && closesBlock(out[n-1]) {
			out = append(out, "")
		}
		out = append(out, line)
	}
	return strings.TrimRight(strings.Join(out, "\n"), "\n") + "\n"
}

func isTopLevelDecl(line string) bool {
	for _, p := range declPrefixes {
		if strings.HasPrefix(line, p) {
			return true
		}
	}
	return false
}

func closesBlock(line string) bool {
	return strings.HasSuffix(line, "}") || strings.HasSuffix(line, "};")
}
