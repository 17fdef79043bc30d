// Package bunfmt provides shared types for the Bun standalone executable format.
package bunfmt

import "fmt"

// Trailer is the marker appended after the module graph by bun build --compile.
var Trailer = []byte("\n---- Bun! ----\n")

// Fixed record sizes of the standalone layout.
const (
	OffsetsSize       = 32
	ModuleRecordSize  = 36
	StringPointerSize = 8
)

// DefaultScanWindow bounds the backward trailer search. Code signing on
// macOS pads the file after the payload, so the trailer is not always the
// last thing in the file.
const DefaultScanWindow = 4 << 20

// Virtual root prefixes of embedded module names.
const (
	RootPrefix       = "/$bunfs/root/"
	LegacyRootPrefix = "B:/~BUN/root/"
)

// StringPointer locates a byte span inside the embedded data segment.
type StringPointer struct {
	Offset uint32 `json:"offset"`
	Length uint32 `json:"length"`
}

func (p StringPointer) String() string {
	return fmt.Sprintf("[0x%x+%d]", p.Offset, p.Length)
}

// IsEmpty reports whether the pointer refers to no bytes.
func (p StringPointer) IsEmpty() bool { return p.Length == 0 }

// Offsets is the fixed record stored immediately before the trailer.
// Layout (little-endian):
//
//	+0x00: byte_count      uint32
//	+0x04: padding         uint32
//	+0x08: modules_ptr     StringPointer
//	+0x10: entry_point_id  uint32
//	+0x14: compile_args    StringPointer
//	+0x1c: flags           uint32
type Offsets struct {
	ByteCount    uint32        `json:"byte_count"`
	ModulesPtr   StringPointer `json:"modules_ptr"`
	EntryPointID uint32        `json:"entry_point_id"`
	ArgsPtr      StringPointer `json:"args_ptr"`
	Flags        uint32        `json:"flags"`
}

// ModuleCount returns the number of whole module records described by ModulesPtr.
func (o Offsets) ModuleCount() int {
	return int(o.ModulesPtr.Length / ModuleRecordSize)
}
