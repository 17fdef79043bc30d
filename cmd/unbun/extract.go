package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"unbun/internal/decompile"
	"unbun/internal/logger"
	"unbun/internal/output"
	"unbun/internal/telemetry"
)

func newExtractCmd(g *globalFlags) *cobra.Command {
	var (
		outDir      string
		concurrency int
		jsonOut     bool
	)
	cmd := &cobra.Command{
		Use:   "extract <binary>",
		Short: "Decompile a standalone executable and write its modules to disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, span := telemetry.Tracer().Start(cmd.Context(), "extract")
			defer span.End()
			span.SetAttributes(attribute.String("binary", args[0]), attribute.String("out", outDir))
			cmd.SetContext(ctx)

			res, err := decompile.File(args[0], decompile.Options{Options: g.decodeOptions()})
			if err != nil {
				span.RecordError(err)
				return err
			}
			logDiags(res.Diags)
			logger.Logger.Info("decoded",
				"bun_version", res.BunVersion,
				"modules", len(res.Modules),
				"original_sources", len(res.OriginalSources))

			sum, err := output.Extract(res, outDir, output.Options{Concurrency: concurrency})
			if err != nil {
				span.RecordError(err)
				return err
			}
			for _, s := range sum.Skipped {
				logger.Logger.Warn("duplicate path skipped", "path", s)
			}
			span.SetAttributes(attribute.Int("files", len(sum.Files)))

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(sum)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d files to %s\n", len(sum.Files), sum.Root)
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "output directory")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "parallel file writes (default GOMAXPROCS)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the extraction summary as JSON")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
