// Package sourcemap recovers original sources embedded in source maps.
package sourcemap

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
)

var (
	ErrMalformed  = errors.New("sourcemap: malformed json")
	ErrBadVersion = errors.New("sourcemap: unsupported version")
	ErrNoSources  = errors.New("sourcemap: no embedded sources")
)

// Source is one original file recovered from a source map.
type Source struct {
	Name    string `json:"name"`
	Content string `json:"-"`
}

// Parser turns raw source map bytes into the original sources it carries.
type Parser interface {
	Parse(data []byte) ([]Source, error)
}

// JSONParser decodes standard version 3 source maps, including index maps
// with sections. Only sources whose content is embedded are returned.
type JSONParser struct{}

type rawMap struct {
	Version        int       `json:"version"`
	SourceRoot     string    `json:"sourceRoot"`
	Sources        []string  `json:"sources"`
	SourcesContent []*string `json:"sourcesContent"`
	Sections       []struct {
		Map json.RawMessage `json:"map"`
	} `json:"sections"`
}

// xssiPrefix may precede the JSON of a source map served over HTTP.
var xssiPrefix = []byte(")]}'")

func (p JSONParser) Parse(data []byte) ([]Source, error) {
	data = bytes.TrimPrefix(bytes.TrimSpace(data), xssiPrefix)

	var m rawMap
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if m.Version != 3 {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, m.Version)
	}

	var out []Source
	if len(m.Sections) > 0 {
		for i, sec := range m.Sections {
			srcs, err := p.Parse(sec.Map)
			if err != nil && !errors.Is(err, ErrNoSources) {
				return nil, fmt.Errorf("section %d: %w", i, err)
			}
			out = append(out, srcs...)
		}
	} else {
		for i, name := range m.Sources {
			if i >= len(m.SourcesContent) || m.SourcesContent[i] == nil {
				continue
			}
			out = append(out, Source{
				Name:    joinRoot(m.SourceRoot, name),
				Content: *m.SourcesContent[i],
			})
		}
	}
	if len(out) == 0 {
		return nil, ErrNoSources
	}
	return out, nil
}

// joinRoot prefixes name with the map's sourceRoot unless name is already
// absolute or a URL.
func joinRoot(root, name string) string {
	if root == "" || strings.HasPrefix(name, "/") || strings.Contains(name, "://") {
		return name
	}
	if strings.Contains(root, "://") {
		return strings.TrimSuffix(root, "/") + "/" + name
	}
	return path.Join(root, name)
}
