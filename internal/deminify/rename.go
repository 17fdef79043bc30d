package deminify

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"unbun/internal/callgraph"
)

// NameMap maps an original identifier to its suggested replacement.
type NameMap map[string]string

// BuildNameMap merges every function's suggestions in call graph order:
// the function's own name, then its parameters, then its locals, each map
// in sorted key order. When two suggestions exist for one identifier, the
// later one wins. Identity pairs and suggestions that are not usable
// identifiers are dropped.
func BuildNameMap(g *callgraph.Graph, results Results) NameMap {
	m := make(NameMap)
	set := func(orig, sugg string) {
		if orig == "" || orig == sugg || !isIdentifier(sugg) {
			return
		}
		m[orig] = sugg
	}
	for _, f := range g.Functions {
		r, ok := results[f.ID]
		if !ok || r == nil {
			continue
		}
		if f.Name != "" && r.SuggestedName != "" {
			set(f.Name, r.SuggestedName)
		}
		for _, k := range sortedKeys(r.ParameterNames) {
			set(k, r.ParameterNames[k])
		}
		for _, k := range sortedKeys(r.LocalNames) {
			set(k, r.LocalNames[k])
		}
	}
	return m
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// segment is a piece of the reassembled text; frozen segments came from a
// splice and are never rewritten.
type segment struct {
	text   string
	frozen bool
}

func segmentsOf(code string, spans []span) []segment {
	var segs []segment
	pos := 0
	for _, s := range spans {
		if s.start > pos {
			segs = append(segs, segment{text: code[pos:s.start]})
		}
		segs = append(segs, segment{text: code[s.start:s.end], frozen: true})
		pos = s.end
	}
	if pos < len(code) {
		segs = append(segs, segment{text: code[pos:]})
	}
	return segs
}

// renameOutside rewrites every mapped identifier outside the spliced
// spans in one left-to-right pass. Each identifier token of the original
// text is looked up once, so a suggestion that happens to equal another
// mapped name is never renamed again and swaps stay swaps. Tokens are
// maximal identifier runs, which makes the longest candidate win.
// Single-character identifiers are left alone: in minified code they
// collide everywhere.
func renameOutside(code string, spans []span, names NameMap) (string, map[string]int) {
	renamed := make(map[string]int)
	if len(names) == 0 {
		return code, renamed
	}

	segs := segmentsOf(code, spans)
	var b strings.Builder
	for i, seg := range segs {
		if seg.frozen {
			b.WriteString(seg.text)
			continue
		}
		var before, after rune
		if i > 0 {
			before, _ = utf8.DecodeLastRuneInString(segs[i-1].text)
		}
		if i+1 < len(segs) {
			after, _ = utf8.DecodeRuneInString(segs[i+1].text)
		}
		b.WriteString(rewriteIdents(seg.text, names, before, after, renamed))
	}
	return b.String(), renamed
}

// rewriteIdents replaces the identifier tokens of s found in names and
// counts them in renamed. before and after are the runes adjacent to s in
// the surrounding text (0 at the edges): a token touching an identifier
// rune across the edge is part of a longer identifier. Member accesses
// (x.old) are kept; spreads (...old) are not.
func rewriteIdents(s string, names NameMap, before, after rune, renamed map[string]int) string {
	var b strings.Builder
	last := 0
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !isIdentRune(r) {
			i += size
			continue
		}
		j := i + size
		for j < len(s) {
			r, n := utf8.DecodeRuneInString(s[j:])
			if !isIdentRune(r) {
				break
			}
			j += n
		}

		tok := s[i:j]
		repl, ok := names[tok]
		joined := (i == 0 && isIdentRune(before)) || (j == len(s) && isIdentRune(after))
		if ok && utf8.RuneCountInString(tok) > 1 && !joined && !isMemberAccess(s, i, before) {
			b.WriteString(s[last:i])
			b.WriteString(repl)
			last = j
			renamed[tok]++
		}
		i = j
	}
	if last == 0 {
		return s
	}
	b.WriteString(s[last:])
	return b.String()
}

// isMemberAccess reports whether the occurrence at i follows a single dot.
func isMemberAccess(s string, i int, before rune) bool {
	switch {
	case i == 0:
		return before == '.'
	case s[i-1] != '.':
		return false
	case i >= 2 && s[i-2] == '.':
		return false
	default:
		return true
	}
}

func isIdentRune(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isIdentifier(s string) bool {
	if s == "" || reserved[s] {
		return false
	}
	for i, r := range s {
		if i == 0 && unicode.IsDigit(r) {
			return false
		}
		if !isIdentRune(r) {
			return false
		}
	}
	return true
}

var reserved = map[string]bool{
	"break": true, "case": true, "catch": true, "class": true, "const": true,
	"continue": true, "debugger": true, "default": true, "delete": true, "do": true,
	"else": true, "enum": true, "export": true, "extends": true, "false": true,
	"finally": true, "for": true, "function": true, "if": true, "import": true,
	"in": true, "instanceof": true, "new": true, "null": true, "return": true,
	"super": true, "switch": true, "this": true, "throw": true, "true": true,
	"try": true, "typeof": true, "var": true, "void": true, "while": true,
	"with": true, "yield": true, "let": true, "static": true, "await": true,
	"implements": true, "interface": true, "package": true, "private": true,
	"protected": true, "public": true, "arguments": true, "eval": true,
}
