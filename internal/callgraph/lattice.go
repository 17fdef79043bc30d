package callgraph

import (
	"github.com/zboralski/lattice"
	"github.com/zboralski/lattice/render"
)

// BuildNestingGraph builds a lattice.Graph with one node per function and
// an edge from each function to the functions nested in it.
func BuildNestingGraph(g *Graph) *lattice.Graph {
	byID := g.ByID()
	lg := &lattice.Graph{}
	for i := range g.Functions {
		f := &g.Functions[i]
		lg.Nodes = append(lg.Nodes, f.Label())
		if p, ok := byID[f.ParentID]; ok && f.ParentID != "" {
			lg.Edges = append(lg.Edges, lattice.Edge{
				Caller: p.Label(),
				Callee: f.Label(),
			})
		}
	}
	lg.Dedup()
	return lg
}

// BuildCallGraph builds a lattice.Graph from the Calls lists. Callee IDs
// missing from the table are rendered by ID.
func BuildCallGraph(g *Graph) *lattice.Graph {
	byID := g.ByID()
	lg := &lattice.Graph{}
	for i := range g.Functions {
		f := &g.Functions[i]
		lg.Nodes = append(lg.Nodes, f.Label())
		for _, id := range f.Calls {
			callee := id
			if c, ok := byID[id]; ok {
				callee = c.Label()
			}
			lg.Edges = append(lg.Edges, lattice.Edge{
				Caller: f.Label(),
				Callee: callee,
			})
		}
	}
	lg.Dedup()
	return lg
}

// DOT renders lg as Graphviz DOT.
func DOT(lg *lattice.Graph, title string) string {
	return render.DOT(lg, title)
}
