// Package callgraph models the function table an external AST pass
// produces for one bundled module, and renders it with lattice.
package callgraph

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
)

// Function is one function found in a module's source text.
// [Start, End) is a byte range into the original text.
type Function struct {
	ID       string   `json:"id"`
	ParentID string   `json:"parentId,omitempty"`
	Start    int      `json:"start"`
	End      int      `json:"end"`
	Source   string   `json:"originalSource,omitempty"`
	Name     string   `json:"originalName,omitempty"`
	Calls    []string `json:"calls,omitempty"` // callee function IDs
}

// IsTopLevel reports whether f has no enclosing function.
func (f *Function) IsTopLevel() bool { return f.ParentID == "" }

// Label is the display name used in rendered graphs.
func (f *Function) Label() string {
	if f.Name == "" {
		return f.ID
	}
	return f.Name + " [" + f.ID + "]"
}

// Graph is the ordered function table of one module.
type Graph struct {
	Functions []Function `json:"functions"`
}

// Load decodes a graph from JSON.
func Load(r io.Reader) (*Graph, error) {
	var g Graph
	if err := json.NewDecoder(r).Decode(&g); err != nil {
		return nil, fmt.Errorf("callgraph: decode: %w", err)
	}
	return &g, nil
}

// LoadFile decodes the graph stored at path.
func LoadFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("callgraph: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// ByID indexes functions by ID. A duplicated ID keeps its first entry.
func (g *Graph) ByID() map[string]*Function {
	m := make(map[string]*Function, len(g.Functions))
	for i := range g.Functions {
		if _, dup := m[g.Functions[i].ID]; !dup {
			m[g.Functions[i].ID] = &g.Functions[i]
		}
	}
	return m
}

// TopLevel returns the functions without a parent, in table order.
func (g *Graph) TopLevel() []*Function {
	var out []*Function
	for i := range g.Functions {
		if g.Functions[i].IsTopLevel() {
			out = append(out, &g.Functions[i])
		}
	}
	return out
}

// Validate reports inconsistencies in a graph produced upstream. None of
// them stop reassembly; they explain why a function was skipped.
func (g *Graph) Validate(srcLen int) []string {
	var issues []string
	seen := make(map[string]bool, len(g.Functions))
	byID := g.ByID()
	for _, f := range g.Functions {
		if seen[f.ID] {
			issues = append(issues, fmt.Sprintf("duplicate function id %q", f.ID))
		}
		seen[f.ID] = true
		if f.Start < 0 || f.End < f.Start || f.End > srcLen {
			issues = append(issues, fmt.Sprintf("function %q: range [%d,%d) outside source (%d bytes)", f.ID, f.Start, f.End, srcLen))
		}
		if f.ParentID == "" {
			continue
		}
		p, ok := byID[f.ParentID]
		if !ok {
			issues = append(issues, fmt.Sprintf("function %q: unknown parent %q", f.ID, f.ParentID))
			continue
		}
		if f.Start < p.Start || f.End > p.End {
			issues = append(issues, fmt.Sprintf("function %q: range [%d,%d) not inside parent %q [%d,%d)", f.ID, f.Start, f.End, p.ID, p.Start, p.End))
		}
	}
	sort.Strings(issues)
	return issues
}
