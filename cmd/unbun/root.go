package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"unbun/internal/bunfmt"
	"unbun/internal/logger"
	"unbun/internal/telemetry"
)

const envScanWindow = "UNBUN_SCAN_WINDOW"

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	logLevel   string
	logJSON    bool
	scanWindow int
	otel       bool
	otelURL    string

	shutdown func()
}

func (g *globalFlags) decodeOptions() bunfmt.Options {
	return bunfmt.Options{ScanWindow: g.scanWindow}
}

func newRootCmd() (*cobra.Command, *globalFlags) {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "unbun",
		Short: "Decompiler for Bun standalone executables",
		Long: `unbun recovers the embedded module graph of an executable produced by
bun build --compile: bundled modules, source maps, bytecode, the original
sources carried by the source maps, and the runtime arguments.

Examples:
  unbun scan ./app                         Print trailer, offsets and module table
  unbun extract ./app --out ./app.out      Write every module to disk
  unbun deminify --source index.js --callgraph cg.json --results names.json --out index.readable.js
  unbun graph --callgraph cg.json --out cg.dot`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.setup(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.logLevel, "log-level", "", "debug, info, warn or error (default $"+logger.EnvLevel+" or info)")
	pf.BoolVar(&g.logJSON, "log-json", false, "log as JSON")
	pf.IntVar(&g.scanWindow, "scan-window", 0, "bytes searched backward for the trailer (default $"+envScanWindow+" or 4 MiB)")
	pf.BoolVar(&g.otel, "otel", false, "export traces over OTLP/HTTP")
	pf.StringVar(&g.otelURL, "otel-url", telemetry.DefaultExporterURL, "OTLP/HTTP collector URL")

	root.AddCommand(
		newScanCmd(g),
		newExtractCmd(g),
		newDeminifyCmd(),
		newGraphCmd(),
	)
	return root, g
}

// execute runs root and flushes telemetry afterwards. cobra skips post-run
// hooks when RunE fails, so the flush cannot live in one.
func execute(root *cobra.Command, g *globalFlags) error {
	defer g.flush()
	return root.Execute()
}

func (g *globalFlags) flush() {
	if g.shutdown != nil {
		g.shutdown()
		g.shutdown = nil
	}
}

// setup configures logging, the scan window and tracing.
func (g *globalFlags) setup(cmd *cobra.Command) error {
	lvl := logger.Level()
	if g.logLevel != "" {
		l, ok := logger.ParseLevel(g.logLevel)
		if !ok {
			return fmt.Errorf("unknown log level %q", g.logLevel)
		}
		lvl = l
	}
	logger.Init(lvl, cmd.ErrOrStderr(), g.logJSON)

	if !cmd.Flags().Changed("scan-window") {
		if env := os.Getenv(envScanWindow); env != "" {
			n, err := strconv.Atoi(env)
			if err != nil || n <= 0 {
				return fmt.Errorf("%s: invalid window %q", envScanWindow, env)
			}
			g.scanWindow = n
		}
	}
	if g.scanWindow < 0 {
		return fmt.Errorf("--scan-window must not be negative")
	}

	shutdown, err := telemetry.Init(cmd.Context(), telemetry.Config{
		Enabled:     g.otel,
		ExporterURL: g.otelURL,
		ServiceName: telemetry.DefaultServiceName,
		Version:     Version,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	g.shutdown = shutdown
	return nil
}
