package deminify

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unbun/internal/callgraph"
)

type fakeParser struct{ err error }

func (p fakeParser) Parse(string) error { return p.err }

var rawOpts = Options{SkipFormat: true}

// fn locates text inside src and returns a function covering it.
func fn(t *testing.T, src, id, parent, name, text string) callgraph.Function {
	t.Helper()
	i := strings.Index(src, text)
	require.GreaterOrEqual(t, i, 0, "text %q not in source", text)
	return callgraph.Function{ID: id, ParentID: parent, Start: i, End: i + len(text), Source: text, Name: name}
}

const (
	srcF1  = "function a(b){return b}"
	srcF2  = "function cd(ef){var gh=function(){return ef};return gh()+1}"
	srcF3  = "function(){return ef}"
	tail   = "var x=cd(2),y=a(3),z=obj.cd,w=[...cd];"
	sample = srcF1 + srcF2 + tail
)

func sampleGraph(t *testing.T) *callgraph.Graph {
	return &callgraph.Graph{Functions: []callgraph.Function{
		fn(t, sample, "f1", "", "a", srcF1),
		fn(t, sample, "f2", "", "cd", srcF2),
		fn(t, sample, "f3", "f2", "", srcF3),
	}}
}

func sampleResults() Results {
	return Results{
		"f1": {FunctionID: "f1", Code: "function identity(value) {\n  return value;\n}", SuggestedName: "identity",
			ParameterNames: map[string]string{"b": "value"}, Confidence: 0.9},
		"f2": {FunctionID: "f2", Code: "function increment(num) {\n  // was cd\n  const inner = function() { return num; };\n  return inner() + 1;\n}",
			SuggestedName: "increment", ParameterNames: map[string]string{"ef": "num"}, LocalNames: map[string]string{"gh": "inner"}, Confidence: 0.7},
		"f3":    {FunctionID: "f3", Code: "SHOULD NOT APPEAR", Confidence: 0.2},
		"ghost": {FunctionID: "ghost", Code: "nope"},
	}
}

func TestReassemble(t *testing.T) {
	res := Reassemble(sample, sampleGraph(t), sampleResults(), rawOpts)

	want := sampleResults()["f1"].Code + sampleResults()["f2"].Code +
		"var x=increment(2),y=a(3),z=obj.cd,w=[...increment];"
	assert.Equal(t, want, res.Code)
	assert.NotContains(t, res.Code, "SHOULD NOT APPEAR")
	assert.False(t, res.Formatted)
	assert.Empty(t, res.Skipped)

	require.Len(t, res.Replacements, 2)
	assert.Equal(t, "f2", res.Replacements[0].FunctionID)
	assert.Equal(t, "f1", res.Replacements[1].FunctionID)
	assert.Equal(t, srcF2, res.Replacements[0].OriginalText)

	assert.Equal(t, NameMap{"a": "identity", "b": "value", "cd": "increment", "ef": "num", "gh": "inner"}, res.NameMap)
	assert.Equal(t, map[string]int{"cd": 2}, res.Renamed)
}

func TestReassembleSingleCharNeverRewritten(t *testing.T) {
	res := Reassemble(sample, sampleGraph(t), sampleResults(), rawOpts)
	assert.Contains(t, res.Code, "y=a(3)")
	assert.NotContains(t, res.Renamed, "a")
}

func TestReassembleSplicedRangeNotRewritten(t *testing.T) {
	res := Reassemble(sample, sampleGraph(t), sampleResults(), rawOpts)
	assert.Contains(t, res.Code, "// was cd\n")
}

func TestReassembleMissingLookupsSkipped(t *testing.T) {
	g := sampleGraph(t)
	results := sampleResults()
	delete(results, "f1")

	res := Reassemble(sample, g, results, rawOpts)
	assert.True(t, strings.HasPrefix(res.Code, srcF1))
	assert.Len(t, res.Replacements, 1)
	assert.Empty(t, res.Skipped)
}

func TestReassembleNilInputs(t *testing.T) {
	res := Reassemble("var ab=1;", &callgraph.Graph{}, nil, rawOpts)
	assert.Equal(t, "var ab=1;", res.Code)
	assert.Empty(t, res.Replacements)
	assert.Empty(t, res.NameMap)
}

func TestReassembleSkipsBadRanges(t *testing.T) {
	src := "function ab(){}function cd(){}"
	g := &callgraph.Graph{Functions: []callgraph.Function{
		{ID: "out", Start: 10, End: 500},
		{ID: "neg", Start: -1, End: 3},
		{ID: "one", Start: 0, End: 15},
		{ID: "overlap", Start: 10, End: 20},
		{ID: "two", Start: 15, End: 30},
		{ID: "empty", Start: 0, End: 0},
	}}
	results := Results{
		"out":     {Code: "X"},
		"neg":     {Code: "X"},
		"one":     {Code: "function first(){}"},
		"overlap": {Code: "Y"},
		"two":     {Code: "function second(){}"},
		"empty":   {Code: ""},
	}

	res := Reassemble(src, g, results, rawOpts)
	assert.Equal(t, "function first(){}function second(){}", res.Code)
	assert.Len(t, res.Skipped, 4)
	joined := strings.Join(res.Skipped, "\n")
	assert.Contains(t, joined, "out: range")
	assert.Contains(t, joined, "neg: range")
	assert.Contains(t, joined, "overlap: range [10,20) overlaps")
	assert.Contains(t, joined, "empty: empty proposal")
}

func TestSpliceSpans(t *testing.T) {
	src := "AAAA-BB-CCCCCC"
	reps := []Replacement{
		{Start: 8, End: 14, NewText: "c"},
		{Start: 5, End: 7, NewText: "bbbbbb"},
		{Start: 0, End: 4, NewText: "aa"},
	}
	code, spans := splice(src, reps)
	assert.Equal(t, "aa-bbbbbb-c", code)
	require.Len(t, spans, 3)
	assert.Equal(t, "aa", code[spans[0].start:spans[0].end])
	assert.Equal(t, "bbbbbb", code[spans[1].start:spans[1].end])
	assert.Equal(t, "c", code[spans[2].start:spans[2].end])
}

func TestBuildNameMapLastWriteWins(t *testing.T) {
	g := &callgraph.Graph{Functions: []callgraph.Function{
		{ID: "first", Start: 0, End: 1},
		{ID: "second", Start: 1, End: 2},
	}}
	results := Results{
		"first":  {ParameterNames: map[string]string{"qq": "config"}},
		"second": {LocalNames: map[string]string{"qq": "options"}},
	}
	assert.Equal(t, "options", BuildNameMap(g, results)["qq"])

	// Reversing call graph order flips the winner.
	g.Functions[0], g.Functions[1] = g.Functions[1], g.Functions[0]
	assert.Equal(t, "config", BuildNameMap(g, results)["qq"])

	// Within one function locals override parameters.
	results = Results{"first": {
		ParameterNames: map[string]string{"zz": "param"},
		LocalNames:     map[string]string{"zz": "local"},
	}}
	assert.Equal(t, "local", BuildNameMap(g, results)["zz"])
}

func TestBuildNameMapDropsUnusable(t *testing.T) {
	g := &callgraph.Graph{Functions: []callgraph.Function{{ID: "f", Name: "xy"}}}
	results := Results{"f": {
		SuggestedName:  "xy",
		ParameterNames: map[string]string{"pq": "class", "rs": "1abc", "tu": "has space", "vw": "", "ok": "fine$_1"},
	}}
	assert.Equal(t, NameMap{"ok": "fine$_1"}, BuildNameMap(g, results))
}

func TestRenameLongestFirst(t *testing.T) {
	names := NameMap{"ab": "first", "abc": "second", "b": "never"}
	code, renamed := renameOutside("abc+ab+b+xabc+abcx", nil, names)
	assert.Equal(t, "second+first+b+xabc+abcx", code)
	assert.Equal(t, map[string]int{"ab": 1, "abc": 1}, renamed)
}

func TestRenameBoundariesAcrossSpans(t *testing.T) {
	// "ab" directly after a spliced "x" is part of the identifier "xab".
	code := "xab;ab"
	spans := []span{{0, 1}}
	got, _ := renameOutside(code, spans, NameMap{"ab": "renamed"})
	assert.Equal(t, "xab;renamed", got)
}

func TestRewriteIdentsMemberAccess(t *testing.T) {
	renamed := map[string]int{}
	got := rewriteIdents("q.ab+ab+...ab+q?.ab", NameMap{"ab": "z9"}, 0, 0, renamed)
	assert.Equal(t, "q.ab+z9+...z9+q?.ab", got)
	assert.Equal(t, 2, renamed["ab"])

	renamed = map[string]int{}
	got = rewriteIdents("ab", NameMap{"ab": "z9"}, '.', 0, renamed)
	assert.Equal(t, "ab", got)
	assert.Empty(t, renamed)
}

func TestRenameNoChaining(t *testing.T) {
	code, renamed := renameOutside("ab+cd", nil, NameMap{"ab": "cd", "cd": "ef"})
	assert.Equal(t, "cd+ef", code)
	assert.Equal(t, map[string]int{"ab": 1, "cd": 1}, renamed)
}

func TestRenameSwap(t *testing.T) {
	code, renamed := renameOutside("xy(yx);yx=xy", nil, NameMap{"xy": "yx", "yx": "xy"})
	assert.Equal(t, "yx(xy);xy=yx", code)
	assert.Equal(t, map[string]int{"xy": 2, "yx": 2}, renamed)
}

func TestRenameUnicodeIdentifiers(t *testing.T) {
	code, _ := renameOutside("café+caf", nil, NameMap{"caf": "coffee", "café": "bar"})
	assert.Equal(t, "bar+coffee", code)
}

func TestReassembleFormatsWhenValid(t *testing.T) {
	src := "function ab(){return 1}\r\nconst cd=ab();  "
	g := &callgraph.Graph{Functions: []callgraph.Function{{ID: "f", Start: 0, End: 23, Name: "ab"}}}
	results := Results{"f": {Code: "function one() {\n  return 1;\n}", SuggestedName: "one"}}

	res := Reassemble(src, g, results, Options{Parser: fakeParser{}})
	assert.True(t, res.Formatted)
	assert.Equal(t, "function one() {\n  return 1;\n}\n\nconst cd=one();\n", res.Code)
}

func TestReassembleUnformattedOnParseFailure(t *testing.T) {
	src := "function ab(){return 1}  \r\n"
	g := &callgraph.Graph{Functions: []callgraph.Function{{ID: "f", Start: 0, End: 23}}}
	results := Results{"f": {Code: "function one( {"}}

	res := Reassemble(src, g, results, Options{Parser: fakeParser{err: errors.New("bad")}})
	assert.False(t, res.Formatted)
	assert.Equal(t, "function one( {  \r\n", res.Code)
}

func TestLoadResults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")
	data := `[
		{"functionId":"f1","deminifiedCode":"function a(){}","suggestedName":"a","confidence":0.5},
		{"functionId":"f1","deminifiedCode":"function b(){}","confidence":0.8},
		{"functionId":"","deminifiedCode":"x"},
		null
	]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	res, err := LoadResults(path)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "function b(){}", res["f1"].Code)

	require.NoError(t, os.WriteFile(path, []byte("{"), 0644))
	_, err = LoadResults(path)
	assert.Error(t, err)
}
