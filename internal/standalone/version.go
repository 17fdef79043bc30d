package standalone

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hashicorp/go-version"

	"unbun/internal/bunfmt"
)

// Version banner markers, modern first. Each is followed by the version
// token and a newline.
var versionMarkers = [][]byte{
	[]byte("bun-v"),
	[]byte("Bun v"),
}

// maxVersionLen rejects tokens that cannot be a version string; a marker
// match far from a real banner runs on until some unrelated newline.
const maxVersionLen = 20

// testedVersions is the range of runtime versions the 36-byte module
// record layout has been checked against.
var testedVersions = version.MustConstraints(version.NewConstraint(">= 1.0.0"))

// ExtractVersion returns the runtime version recorded in buf, or "" when
// no banner is found. Invalid UTF-8 is tolerated.
func ExtractVersion(buf []byte) string {
	for _, marker := range versionMarkers {
		i := bytes.Index(buf, marker)
		if i < 0 {
			continue
		}
		rest := buf[i+len(marker):]
		nl := bytes.IndexByte(rest, '\n')
		if nl < 0 {
			continue
		}
		tok := strings.TrimSpace(decodeUTF8(rest[:nl]))
		if tok == "" || utf8.RuneCountInString(tok) >= maxVersionLen {
			continue
		}
		return tok
	}
	return ""
}

// ParseVersion normalizes a banner token such as "1.1.34" or
// "1.2.0-canary.20240101+abc123".
func ParseVersion(tok string) (*version.Version, error) {
	if f := strings.Fields(tok); len(f) > 0 {
		tok = f[0]
	}
	v, err := version.NewVersion(tok)
	if err != nil {
		return nil, fmt.Errorf("standalone: version %q: %w", tok, err)
	}
	return v, nil
}

// CheckVersion reports ErrUnsupportedVersion for versions outside the
// tested range. Callers treat it as a warning.
func CheckVersion(v *version.Version) error {
	// Prerelease builds never satisfy a release constraint; compare the core.
	if v == nil || testedVersions.Check(v.Core()) {
		return nil
	}
	return fmt.Errorf("%w: %s (tested %s)", bunfmt.ErrUnsupportedVersion, v, testedVersions)
}

// ParseArgs returns the compile-time arguments recorded in the offsets
// record. Segments are NUL separated; empty segments are dropped.
func ParseArgs(buf []byte, l *Layout) ([]string, error) {
	args := []string{}
	if l.Offsets.ArgsPtr.Length == 0 {
		return args, nil
	}
	raw, err := l.Resolve(buf, l.Offsets.ArgsPtr)
	if err != nil {
		return nil, fmt.Errorf("args: %w", err)
	}
	for _, seg := range strings.Split(decodeUTF8(raw), "\x00") {
		if seg != "" {
			args = append(args, seg)
		}
	}
	return args, nil
}
