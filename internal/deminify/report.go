package deminify

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"unbun/internal/callgraph"
)

// VerifyResult reports whether reassembled code still parses.
type VerifyResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// Verify re-parses code with p (nil = ESBuildParser).
func Verify(p Parser, code string) VerifyResult {
	if p == nil {
		p = ESBuildParser{}
	}
	err := p.Parse(code)
	if err == nil {
		return VerifyResult{Valid: true}
	}
	var se *SyntaxError
	if errors.As(err, &se) {
		return VerifyResult{Errors: se.Messages}
	}
	return VerifyResult{Errors: []string{err.Error()}}
}

// Stats summarizes the size effect of a reassembly.
type Stats struct {
	OriginalSize         int `json:"originalSize"`
	NewSize              int `json:"newSize"`
	SizeDelta            int `json:"sizeDelta"`
	FunctionsReplaced    int `json:"functionsReplaced"`
	IdentifiersRenamed   int `json:"identifiersRenamed"`
	OccurrencesRewritten int `json:"occurrencesRewritten"`
}

// ComputeStats compares the original text with res.
func ComputeStats(original string, res *Result) Stats {
	s := Stats{
		OriginalSize:       len(original),
		NewSize:            len(res.Code),
		FunctionsReplaced:  len(res.Replacements),
		IdentifiersRenamed: len(res.NameMap),
	}
	s.SizeDelta = s.NewSize - s.OriginalSize
	for _, n := range res.Renamed {
		s.OccurrencesRewritten += n
	}
	return s
}

// RenameKind tells where a suggested rename came from.
type RenameKind string

const (
	RenameFunction  RenameKind = "function"
	RenameParameter RenameKind = "parameter"
	RenameLocal     RenameKind = "local"
)

// RenameEntry is one suggested rename.
type RenameEntry struct {
	FunctionID string     `json:"functionId"`
	Kind       RenameKind `json:"kind"`
	Original   string     `json:"original"`
	Suggested  string     `json:"suggested"`
	Confidence float64    `json:"confidence"`
}

// ChangeSummary lists renames by descending confidence.
type ChangeSummary struct {
	Renames           []RenameEntry `json:"renames"`
	Functions         int           `json:"functions"`
	AverageConfidence float64       `json:"averageConfidence"`
	MinConfidence     float64       `json:"minConfidence"`
	MaxConfidence     float64       `json:"maxConfidence"`
}

// Summarize collects every proposed rename for functions in g. Confidence
// statistics cover the functions that have a proposal.
func Summarize(g *callgraph.Graph, results Results) *ChangeSummary {
	sum := &ChangeSummary{}
	total := 0.0
	for _, f := range g.Functions {
		r, ok := results[f.ID]
		if !ok || r == nil {
			continue
		}
		c := r.Confidence
		if sum.Functions == 0 || c < sum.MinConfidence {
			sum.MinConfidence = c
		}
		if sum.Functions == 0 || c > sum.MaxConfidence {
			sum.MaxConfidence = c
		}
		sum.Functions++
		total += c

		add := func(kind RenameKind, orig, sugg string) {
			if orig == "" || sugg == "" || orig == sugg {
				return
			}
			sum.Renames = append(sum.Renames, RenameEntry{
				FunctionID: f.ID,
				Kind:       kind,
				Original:   orig,
				Suggested:  sugg,
				Confidence: c,
			})
		}
		add(RenameFunction, f.Name, r.SuggestedName)
		for _, k := range sortedKeys(r.ParameterNames) {
			add(RenameParameter, k, r.ParameterNames[k])
		}
		for _, k := range sortedKeys(r.LocalNames) {
			add(RenameLocal, k, r.LocalNames[k])
		}
	}
	if sum.Functions > 0 {
		sum.AverageConfidence = total / float64(sum.Functions)
	}
	sort.SliceStable(sum.Renames, func(i, j int) bool {
		return sum.Renames[i].Confidence > sum.Renames[j].Confidence
	})
	return sum
}

// Markdown renders the summary as a Markdown report.
func (s *ChangeSummary) Markdown() string {
	var b strings.Builder
	b.WriteString("# Deminification summary\n\n")
	fmt.Fprintf(&b, "- Functions: %d\n", s.Functions)
	fmt.Fprintf(&b, "- Renames: %d\n", len(s.Renames))
	fmt.Fprintf(&b, "- Confidence: avg %.2f, min %.2f, max %.2f\n", s.AverageConfidence, s.MinConfidence, s.MaxConfidence)
	if len(s.Renames) == 0 {
		return b.String()
	}
	b.WriteString("\n| Original | Suggested | Kind | Function | Confidence |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, r := range s.Renames {
		fmt.Fprintf(&b, "| `%s` | `%s` | %s | %s | %.2f |\n", r.Original, r.Suggested, r.Kind, r.FunctionID, r.Confidence)
	}
	return b.String()
}
