package deminify

import (
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// Parser checks that source text is syntactically valid.
type Parser interface {
	Parse(code string) error
}

// SyntaxError lists the parser's messages.
type SyntaxError struct {
	Messages []string
}

func (e *SyntaxError) Error() string {
	if len(e.Messages) == 1 {
		return "syntax error: " + e.Messages[0]
	}
	return fmt.Sprintf("%d syntax errors: %s", len(e.Messages), strings.Join(e.Messages, "; "))
}

// ESBuildParser parses with esbuild's transform API. Nothing is emitted;
// only the error list is used.
type ESBuildParser struct {
	Loader api.Loader // zero value is api.LoaderNone, which means JS
}

func (p ESBuildParser) Parse(code string) error {
	loader := p.Loader
	if loader == api.LoaderNone {
		loader = api.LoaderJS
	}
	res := api.Transform(code, api.TransformOptions{
		Loader:     loader,
		LogLevel:   api.LogLevelSilent,
		Sourcefile: "reassembled.js",
	})
	if len(res.Errors) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors))
	for _, m := range res.Errors {
		if m.Location != nil {
			msgs = append(msgs, fmt.Sprintf("%d:%d: %s", m.Location.Line, m.Location.Column, m.Text))
		} else {
			msgs = append(msgs, m.Text)
		}
	}
	return &SyntaxError{Messages: msgs}
}
