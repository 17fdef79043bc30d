package output

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"unbun/internal/bunfmt"
)

// schemeRE matches URL-style prefixes found in source map names
// (webpack://, file://, bun://).
var schemeRE = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*://`)

// driveRE matches a Windows drive prefix such as C: or C:/.
var driveRE = regexp.MustCompile(`^[A-Za-z]:(/|$)`)

// SafeRelPath turns an untrusted embedded name into a slash-separated path
// relative to an output root. Names with a parent traversal segment are
// rejected rather than cleaned.
func SafeRelPath(name string) (string, error) {
	p := schemeRE.ReplaceAllString(name, "")
	p = strings.ReplaceAll(p, `\`, "/")
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", &bunfmt.ExtractionError{Path: name, Err: errTraversal}
		}
	}
	p = strings.TrimLeft(p, "/")
	// Drive letters would make filepath.Join ignore the root on Windows.
	if driveRE.MatchString(p) {
		p = strings.TrimLeft(p[2:], "/")
	}
	p = path.Clean(p)
	if p == "." || p == "" {
		return "", &bunfmt.ExtractionError{Path: name, Err: errEmptyName}
	}
	return p, nil
}

// withLoaderExt appends the loader's extension when the base name has none.
func withLoaderExt(rel string, l bunfmt.Loader) string {
	if strings.Contains(path.Base(rel), ".") {
		return rel
	}
	return rel + l.Extension()
}

// bytecodeName swaps the extension of rel for the bytecode cache extension.
func bytecodeName(rel string) string {
	ext := path.Ext(rel)
	return strings.TrimSuffix(rel, ext) + bytecodeExt
}

// under joins rel onto root and confirms the result stays inside root.
func under(root, rel string) (string, error) {
	full := filepath.Join(root, filepath.FromSlash(rel))
	r, err := filepath.Rel(root, full)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", &bunfmt.ExtractionError{Path: rel, Err: errTraversal}
	}
	return full, nil
}
