package bunfmt

import "fmt"

// DiagKind classifies a diagnostic message.
type DiagKind string

const (
	DiagTruncated DiagKind = "truncated"
	DiagSourceMap DiagKind = "sourcemap"
	DiagVersion   DiagKind = "version"
)

// Diag records a non-fatal issue encountered while decoding.
type Diag struct {
	Offset uint64   `json:"offset"`
	Kind   DiagKind `json:"kind"`
	Msg    string   `json:"msg"`
}

func (d Diag) String() string {
	return fmt.Sprintf("[%s] 0x%x: %s", d.Kind, d.Offset, d.Msg)
}

// Diags accumulates diagnostics.
type Diags struct {
	items []Diag
}

func (d *Diags) Add(offset uint64, kind DiagKind, msg string) {
	d.items = append(d.items, Diag{Offset: offset, Kind: kind, Msg: msg})
}

func (d *Diags) Addf(offset uint64, kind DiagKind, format string, args ...any) {
	d.items = append(d.items, Diag{Offset: offset, Kind: kind, Msg: fmt.Sprintf(format, args...)})
}

func (d *Diags) Items() []Diag { return d.items }

// Options controls decoding behavior across packages.
type Options struct {
	ScanWindow int // bytes searched backward for the trailer; 0 = DefaultScanWindow
}

func (o Options) EffectiveScanWindow() int {
	if o.ScanWindow > 0 {
		return o.ScanWindow
	}
	return DefaultScanWindow
}
