package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"unbun/internal/binfile"
	"unbun/internal/bunfmt"
	"unbun/internal/decompile"
	"unbun/internal/logger"
	"unbun/internal/standalone"
	"unbun/internal/telemetry"
)

// scanReport is the --json form of scan.
type scanReport struct {
	Size       int64              `json:"size"`
	Mapped     bool               `json:"mapped"`
	BunVersion string             `json:"bun_version,omitempty"`
	Layout     *standalone.Layout `json:"layout"`
	Args       []string           `json:"args"`
	Flags      uint32             `json:"flags"`
	Modules    []moduleRow        `json:"modules"`
	Diags      []bunfmt.Diag      `json:"diagnostics,omitempty"`
}

type moduleRow struct {
	Index      int    `json:"index"`
	Name       string `json:"name"`
	Loader     string `json:"loader"`
	Encoding   string `json:"encoding"`
	Format     string `json:"format"`
	Side       string `json:"side"`
	Size       int    `json:"size"`
	SourceMap  int    `json:"source_map_size"`
	Bytecode   int    `json:"bytecode_size"`
	EntryPoint bool   `json:"entry_point,omitempty"`
}

func newScanCmd(g *globalFlags) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "scan <binary>",
		Short: "Print the trailer, offsets and module table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, span := telemetry.Tracer().Start(cmd.Context(), "scan")
			defer span.End()
			span.SetAttributes(attribute.String("binary", args[0]))
			cmd.SetContext(ctx)

			f, err := binfile.Open(args[0])
			if err != nil {
				span.RecordError(err)
				return err
			}
			defer f.Close()
			logger.Logger.Debug("input opened", "path", args[0], "size", f.Size(), "mapped", f.Mapped())

			// Module spans alias the mapping; the report is printed before Close.
			res, err := decompile.Decompile(f.Bytes(), decompile.Options{Options: g.decodeOptions()})
			if err != nil {
				span.RecordError(err)
				return err
			}
			logDiags(res.Diags)

			rep := buildScanReport(res)
			rep.Size = f.Size()
			rep.Mapped = f.Mapped()
			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}
			printScan(cmd.OutOrStdout(), rep)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON")
	return cmd
}

func buildScanReport(res *decompile.Result) *scanReport {
	rep := &scanReport{
		BunVersion: res.BunVersion,
		Layout:     res.Layout,
		Args:       res.Args,
		Flags:      res.Flags,
		Diags:      res.Diags,
		Modules:    make([]moduleRow, 0, len(res.Modules)),
	}
	for _, m := range res.Modules {
		rep.Modules = append(rep.Modules, moduleRow{
			Index:      m.Index,
			Name:       m.Name,
			Loader:     m.Loader.String(),
			Encoding:   m.Encoding.String(),
			Format:     m.Format.String(),
			Side:       m.Side.String(),
			Size:       len(m.Contents),
			SourceMap:  len(m.SourceMap),
			Bytecode:   len(m.Bytecode),
			EntryPoint: m.IsEntryPoint,
		})
	}
	return rep
}

func printScan(w io.Writer, rep *scanReport) {
	bold := color.New(color.Bold)
	entry := color.New(color.FgGreen)

	version := rep.BunVersion
	if version == "" {
		version = "unknown"
	}
	l := rep.Layout
	access := "read"
	if rep.Mapped {
		access = "mmap"
	}
	bold.Fprintf(w, "Bun %s\n", version)
	fmt.Fprintf(w, "input:    %d bytes (%s)\n", rep.Size, access)
	fmt.Fprintf(w, "trailer:  0x%x\n", l.TrailerPos)
	fmt.Fprintf(w, "offsets:  0x%x (byte_count=%d modules=%s entry=%d args=%s flags=0x%x)\n",
		l.OffsetsPos, l.Offsets.ByteCount, l.Offsets.ModulesPtr, l.Offsets.EntryPointID, l.Offsets.ArgsPtr, l.Offsets.Flags)
	fmt.Fprintf(w, "data:     0x%x-0x%x\n", l.DataStart, l.DataEnd())
	fmt.Fprintf(w, "args:     %q\n", rep.Args)
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	bold.Fprintln(tw, "#\tNAME\tLOADER\tENCODING\tFORMAT\tSIDE\tSIZE\tMAP\tBYTECODE")
	for _, m := range rep.Modules {
		line := fmt.Sprintf("%d\t%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d",
			m.Index, m.Name, m.Loader, m.Encoding, m.Format, m.Side, m.Size, m.SourceMap, m.Bytecode)
		if m.EntryPoint {
			entry.Fprintln(tw, line+"\t(entry)")
		} else {
			fmt.Fprintln(tw, line)
		}
	}
	tw.Flush()
}

func logDiags(diags []bunfmt.Diag) {
	for _, d := range diags {
		logger.Logger.Warn(d.Msg, "kind", string(d.Kind), "offset", fmt.Sprintf("0x%x", d.Offset))
	}
}
