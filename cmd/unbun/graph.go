package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zboralski/lattice"

	"unbun/internal/callgraph"
	"unbun/internal/logger"
)

func newGraphCmd() *cobra.Command {
	var (
		graphPath string
		outPath   string
		kind      string
		title     string
		nodesPath string
	)
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render a call graph as Graphviz DOT",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := callgraph.LoadFile(graphPath)
			if err != nil {
				return err
			}

			var build func(*callgraph.Graph) *lattice.Graph
			switch kind {
			case "nesting":
				build = callgraph.BuildNestingGraph
			case "calls":
				build = callgraph.BuildCallGraph
			default:
				return fmt.Errorf("unknown graph kind %q (want nesting or calls)", kind)
			}
			if title == "" {
				title = kind
			}

			lg := build(g)
			if err := os.WriteFile(outPath, []byte(callgraph.DOT(lg, title)), 0644); err != nil {
				return err
			}
			if nodesPath != "" {
				if err := writeJSON(nodesPath, lg); err != nil {
					return err
				}
			}
			logger.Logger.Info("graph written", "kind", kind, "nodes", len(lg.Nodes), "edges", len(lg.Edges))
			fmt.Fprintf(cmd.OutOrStdout(), "%d nodes, %d edges -> %s\n", len(lg.Nodes), len(lg.Edges), outPath)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&graphPath, "callgraph", "", "call graph JSON")
	f.StringVar(&outPath, "out", "", "DOT output file")
	f.StringVar(&kind, "kind", "nesting", "nesting or calls")
	f.StringVar(&title, "title", "", "graph title (default the kind)")
	f.StringVar(&nodesPath, "json", "", "also write the lattice graph as JSON")
	_ = cmd.MarkFlagRequired("callgraph")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
