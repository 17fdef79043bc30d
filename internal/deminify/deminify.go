// Package deminify reassembles a readable version of a minified module
// from per-function rewrite proposals.
//
// The call graph and the proposals come from external producers. Nested
// functions are expected to be embedded in their parent's proposal, so
// only top-level functions are spliced.
package deminify

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"unbun/internal/callgraph"
)

// FunctionResult is the proposal for one function.
type FunctionResult struct {
	FunctionID     string            `json:"functionId"`
	Code           string            `json:"deminifiedCode"`
	SuggestedName  string            `json:"suggestedName,omitempty"`
	ParameterNames map[string]string `json:"parameterNames,omitempty"`
	LocalNames     map[string]string `json:"localVariableNames,omitempty"`
	Confidence     float64           `json:"confidence"`
}

// Results maps function ID to its proposal.
type Results map[string]*FunctionResult

// LoadResults reads proposals from a JSON array at path. Entries are keyed
// by FunctionID; a repeated ID keeps the last entry.
func LoadResults(path string) (Results, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("deminify: %w", err)
	}
	var list []*FunctionResult
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("deminify: decode %s: %w", path, err)
	}
	res := make(Results, len(list))
	for _, r := range list {
		if r != nil && r.FunctionID != "" {
			res[r.FunctionID] = r
		}
	}
	return res, nil
}

// Replacement is one splice applied to the original text.
type Replacement struct {
	Start        int    `json:"start"`
	End          int    `json:"end"`
	OriginalText string `json:"originalText"`
	NewText      string `json:"newText"`
	FunctionID   string `json:"functionId"`
}

// Result is the reassembled module.
type Result struct {
	Code         string         `json:"code"`
	Replacements []Replacement  `json:"replacements"`
	NameMap      NameMap        `json:"nameMap"`
	Renamed      map[string]int `json:"renamed"` // occurrences rewritten outside spliced ranges
	Formatted    bool           `json:"formatted"`
	Skipped      []string       `json:"skipped,omitempty"`
}

// Options controls reassembly.
type Options struct {
	Parser     Parser // nil = ESBuildParser{}
	SkipFormat bool
}

func (o Options) parser() Parser {
	if o.Parser != nil {
		return o.Parser
	}
	return ESBuildParser{}
}

// Reassemble splices every top-level proposal into source, renames the
// remaining occurrences of suggested identifiers and formats the result
// when it parses. It never fails: inconsistent upstream data is skipped
// and listed in Result.Skipped.
func Reassemble(source string, g *callgraph.Graph, results Results, opts Options) *Result {
	reps, skipped := selectReplacements(source, g, results)
	code, spans := splice(source, reps)

	names := BuildNameMap(g, results)
	code, renamed := renameOutside(code, spans, names)

	res := &Result{
		Code:         code,
		Replacements: reps,
		NameMap:      names,
		Renamed:      renamed,
		Skipped:      skipped,
	}
	if !opts.SkipFormat {
		res.Code, res.Formatted = formatIfValid(code, opts.parser())
	}
	return res
}

// selectReplacements picks the top-level functions that have a proposal,
// ordered by descending start. A range outside source or overlapping an
// already selected one is skipped.
func selectReplacements(source string, g *callgraph.Graph, results Results) ([]Replacement, []string) {
	var cands []Replacement
	var skipped []string
	for _, f := range g.TopLevel() {
		r, ok := results[f.ID]
		if !ok || r == nil {
			continue
		}
		if f.Start < 0 || f.End > len(source) || f.Start > f.End {
			skipped = append(skipped, fmt.Sprintf("%s: range [%d,%d) outside source", f.ID, f.Start, f.End))
			continue
		}
		if r.Code == "" {
			skipped = append(skipped, fmt.Sprintf("%s: empty proposal", f.ID))
			continue
		}
		cands = append(cands, Replacement{
			Start:        f.Start,
			End:          f.End,
			OriginalText: source[f.Start:f.End],
			NewText:      r.Code,
			FunctionID:   f.ID,
		})
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Start != cands[j].Start {
			return cands[i].Start > cands[j].Start
		}
		return cands[i].End > cands[j].End
	})

	var reps []Replacement
	for _, c := range cands {
		if n := len(reps); n > 0 && c.End > reps[n-1].Start {
			skipped = append(skipped, fmt.Sprintf("%s: range [%d,%d) overlaps %s", c.FunctionID, c.Start, c.End, reps[n-1].FunctionID))
			continue
		}
		reps = append(reps, c)
	}
	return reps, skipped
}

// span is a [start, end) range of the spliced text.
type span struct{ start, end int }

// splice applies reps, which must be sorted by descending start and
// non-overlapping, and returns the new text with the spliced ranges in
// ascending order.
func splice(source string, reps []Replacement) (string, []span) {
	code := source
	for _, r := range reps {
		code = code[:r.Start] + r.NewText + code[r.End:]
	}

	spans := make([]span, len(reps))
	shift := 0
	for i := len(reps) - 1; i >= 0; i-- {
		r := reps[i]
		start := r.Start + shift
		spans[len(reps)-1-i] = span{start, start + len(r.NewText)}
		shift += len(r.NewText) - (r.End - r.Start)
	}
	return code, spans
}
