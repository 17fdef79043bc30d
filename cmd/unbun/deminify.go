package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"unbun/internal/callgraph"
	"unbun/internal/deminify"
	"unbun/internal/logger"
	"unbun/internal/telemetry"
)

var loaders = map[string]api.Loader{
	"js":  api.LoaderJS,
	"jsx": api.LoaderJSX,
	"ts":  api.LoaderTS,
	"tsx": api.LoaderTSX,
}

func newDeminifyCmd() *cobra.Command {
	var (
		sourcePath  string
		graphPath   string
		resultsPath string
		outPath     string
		summaryPath string
		loaderName  string
		stats       bool
		noFormat    bool
	)
	cmd := &cobra.Command{
		Use:   "deminify",
		Short: "Reassemble a minified module from per-function rename proposals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, ok := loaders[loaderName]
			if !ok {
				return fmt.Errorf("unknown loader %q", loaderName)
			}
			_, span := telemetry.Tracer().Start(cmd.Context(), "deminify")
			defer span.End()
			span.SetAttributes(attribute.String("source", sourcePath))

			src, err := os.ReadFile(sourcePath)
			if err != nil {
				return err
			}
			graph, err := callgraph.LoadFile(graphPath)
			if err != nil {
				return err
			}
			results, err := deminify.LoadResults(resultsPath)
			if err != nil {
				return err
			}
			for _, issue := range graph.Validate(len(src)) {
				logger.Logger.Warn("call graph", "issue", issue)
			}

			parser := deminify.ESBuildParser{Loader: loader}
			res := deminify.Reassemble(string(src), graph, results, deminify.Options{
				Parser:     parser,
				SkipFormat: noFormat,
			})
			for _, s := range res.Skipped {
				logger.Logger.Warn("replacement skipped", "reason", s)
			}
			if v := deminify.Verify(parser, res.Code); !v.Valid {
				for _, e := range v.Errors {
					logger.Logger.Warn("reassembled code does not parse", "error", e)
				}
			}
			logger.Logger.Info("reassembled",
				"functions", len(res.Replacements),
				"renames", len(res.NameMap),
				"formatted", res.Formatted)
			span.SetAttributes(attribute.Int("functions", len(res.Replacements)))

			if err := os.WriteFile(outPath, []byte(res.Code), 0644); err != nil {
				return err
			}
			if summaryPath != "" {
				sum := deminify.Summarize(graph, results)
				if err := os.WriteFile(summaryPath, []byte(sum.Markdown()), 0644); err != nil {
					return err
				}
			}
			if stats {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(deminify.ComputeStats(string(src), res))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d functions, %d renames)\n", outPath, len(res.Replacements), len(res.NameMap))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&sourcePath, "source", "", "minified module")
	f.StringVar(&graphPath, "callgraph", "", "call graph JSON")
	f.StringVar(&resultsPath, "results", "", "per-function proposals JSON")
	f.StringVar(&outPath, "out", "", "reassembled output file")
	f.StringVar(&summaryPath, "summary", "", "write a Markdown change summary")
	f.StringVar(&loaderName, "loader", "js", "parser loader: js, jsx, ts or tsx")
	f.BoolVar(&stats, "stats", false, "print size statistics as JSON")
	f.BoolVar(&noFormat, "no-format", false, "skip formatting")
	for _, name := range []string{"source", "callgraph", "results", "out"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}
