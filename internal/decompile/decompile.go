// Package decompile turns a Bun standalone executable into its embedded
// modules and recovered original sources.
package decompile

import (
	"fmt"

	"unbun/internal/binfile"
	"unbun/internal/bunfmt"
	"unbun/internal/sourcemap"
	"unbun/internal/standalone"
)

// Options controls a decompile run.
type Options struct {
	bunfmt.Options
	SourceMaps sourcemap.Parser // nil = sourcemap.JSONParser
}

func (o Options) sourceMaps() sourcemap.Parser {
	if o.SourceMaps != nil {
		return o.SourceMaps
	}
	return sourcemap.JSONParser{}
}

// Result is everything recovered from one executable.
type Result struct {
	BunVersion      string              `json:"bun_version,omitempty"`
	Layout          *standalone.Layout  `json:"layout"`
	Modules         []standalone.Module `json:"modules"`
	OriginalSources []sourcemap.Source  `json:"original_sources"`
	Args            []string            `json:"args"`
	Flags           uint32              `json:"flags"`
	Diags           []bunfmt.Diag       `json:"diagnostics,omitempty"`
}

// EntryPoint returns the module flagged as entry point, or nil.
func (r *Result) EntryPoint() *standalone.Module {
	for i := range r.Modules {
		if r.Modules[i].IsEntryPoint {
			return &r.Modules[i]
		}
	}
	return nil
}

// Decompile decodes buf. Structural failures return no result: a corrupt
// module table cannot be partially trusted. Source map failures only
// produce diagnostics. Module spans in the result alias buf.
func Decompile(buf []byte, opts Options) (*Result, error) {
	var diags bunfmt.Diags

	layout, err := standalone.Locate(buf, opts.Options)
	if err != nil {
		return nil, fmt.Errorf("decompile: locate: %w", err)
	}
	mods, err := standalone.ParseModules(buf, layout, &diags)
	if err != nil {
		return nil, fmt.Errorf("decompile: modules: %w", err)
	}
	args, err := standalone.ParseArgs(buf, layout)
	if err != nil {
		return nil, fmt.Errorf("decompile: %w", err)
	}

	res := &Result{
		BunVersion: standalone.ExtractVersion(buf),
		Layout:     layout,
		Modules:    mods,
		Args:       args,
		Flags:      layout.Offsets.Flags,
	}
	checkVersion(res.BunVersion, &diags)

	parser := opts.sourceMaps()
	for _, m := range mods {
		if len(m.SourceMap) == 0 {
			continue
		}
		srcs, err := parser.Parse(m.SourceMap)
		if err != nil {
			off := uint64(layout.DataStart) + uint64(m.Record.SourceMap.Offset)
			diags.Addf(off, bunfmt.DiagSourceMap, "%s: %v", m.Name, err)
			continue
		}
		res.OriginalSources = append(res.OriginalSources, srcs...)
	}

	res.Diags = diags.Items()
	return res, nil
}

func checkVersion(tok string, diags *bunfmt.Diags) {
	if tok == "" {
		diags.Add(0, bunfmt.DiagVersion, "no runtime version banner found")
		return
	}
	v, err := standalone.ParseVersion(tok)
	if err != nil {
		diags.Add(0, bunfmt.DiagVersion, err.Error())
		return
	}
	if err := standalone.CheckVersion(v); err != nil {
		diags.Add(0, bunfmt.DiagVersion, err.Error())
	}
}

// File decompiles the executable at path. The file is mapped for the
// duration of the call; the returned modules own their bytes.
func File(path string, opts Options) (*Result, error) {
	f, err := binfile.Open(path)
	if err != nil {
		return nil, fmt.Errorf("decompile: %w", err)
	}
	defer f.Close()

	res, err := Decompile(f.Bytes(), opts)
	if err != nil {
		return nil, err
	}
	for i := range res.Modules {
		res.Modules[i] = res.Modules[i].Clone()
	}
	return res, nil
}
