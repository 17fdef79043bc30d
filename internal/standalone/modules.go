package standalone

import (
	"fmt"
	"strings"

	"unbun/internal/bunfmt"
)

// Record is one raw 36-byte module table entry.
// Layout:
//
//	+0x00: name       StringPointer
//	+0x08: contents   StringPointer
//	+0x10: sourcemap  StringPointer
//	+0x18: bytecode   StringPointer
//	+0x20: encoding   uint8
//	+0x21: loader     uint8
//	+0x22: format     uint8
//	+0x23: side       uint8
type Record struct {
	Name      bunfmt.StringPointer `json:"name"`
	Contents  bunfmt.StringPointer `json:"contents"`
	SourceMap bunfmt.StringPointer `json:"sourcemap"`
	Bytecode  bunfmt.StringPointer `json:"bytecode"`
	Encoding  bunfmt.Encoding      `json:"encoding"`
	Loader    bunfmt.Loader        `json:"loader"`
	Format    bunfmt.ModuleFormat  `json:"format"`
	Side      bunfmt.Side          `json:"side"`
}

// Module is one embedded file with its spans resolved.
type Module struct {
	Index        int                 `json:"index"`
	Name         string              `json:"name"`
	Contents     []byte              `json:"-"`
	SourceMap    []byte              `json:"-"`
	Bytecode     []byte              `json:"-"`
	Encoding     bunfmt.Encoding     `json:"-"`
	Loader       bunfmt.Loader       `json:"-"`
	Format       bunfmt.ModuleFormat `json:"-"`
	Side         bunfmt.Side         `json:"-"`
	IsEntryPoint bool                `json:"is_entry_point"`
	Record       Record              `json:"record"`
}

// IsEmpty reports whether the module carries nothing worth writing.
func (m *Module) IsEmpty() bool {
	return len(m.Contents) == 0 && len(m.SourceMap) == 0 && len(m.Bytecode) == 0
}

// Clone returns a copy of m whose spans no longer alias the source buffer.
func (m Module) Clone() Module {
	m.Contents = cloneBytes(m.Contents)
	m.SourceMap = cloneBytes(m.SourceMap)
	m.Bytecode = cloneBytes(m.Bytecode)
	return m
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

// ParseModules decodes the module table described by l.Offsets.ModulesPtr.
// Exactly the module at index EntryPointID is flagged as the entry point.
// A final record cut short by the end of buf decodes with zero bytes and
// is reported to diags (which may be nil); a record starting past the end
// means the table length cannot be trusted.
func ParseModules(buf []byte, l *Layout, diags *bunfmt.Diags) ([]Module, error) {
	count := l.Offsets.ModuleCount()
	if count == 0 {
		return nil, fmt.Errorf("%w: module table %s holds no records", bunfmt.ErrCorruptModuleGraph, l.Offsets.ModulesPtr)
	}
	tableStart := int64(l.DataStart) + int64(l.Offsets.ModulesPtr.Offset)
	if tableStart >= int64(len(buf)) {
		return nil, fmt.Errorf("%w: module table at %d past end of file (%d bytes)", bunfmt.ErrCorruptModuleGraph, tableStart, len(buf))
	}

	avail := (int64(len(buf)) - tableStart + bunfmt.ModuleRecordSize - 1) / bunfmt.ModuleRecordSize
	mods := make([]Module, 0, min(int64(count), avail))
	for i := 0; i < count; i++ {
		pos := tableStart + int64(i)*bunfmt.ModuleRecordSize
		if pos >= int64(len(buf)) {
			return nil, fmt.Errorf("%w: module %d: record at %d past end of file (%d bytes, table claims %d records)",
				bunfmt.ErrCorruptModuleGraph, i, pos, len(buf), count)
		}
		if end := pos + bunfmt.ModuleRecordSize; end > int64(len(buf)) && diags != nil {
			diags.Addf(uint64(pos), bunfmt.DiagTruncated, "module %d: record truncated to %d of %d bytes",
				i, int64(len(buf))-pos, bunfmt.ModuleRecordSize)
		}
		rec := decodeRecord(buf, int(pos))

		m, err := resolveModule(buf, l, rec)
		if err != nil {
			return nil, fmt.Errorf("module %d: %w", i, err)
		}
		m.Index = i
		m.IsEntryPoint = uint32(i) == l.Offsets.EntryPointID
		mods = append(mods, m)
	}
	return mods, nil
}

// decodeRecord reads the record at pos. Bytes past the end of buf read as
// zero so a truncated final record still decodes.
func decodeRecord(buf []byte, pos int) Record {
	return Record{
		Name:      bunfmt.StringPointer{Offset: u32At(buf, pos+0x00), Length: u32At(buf, pos+0x04)},
		Contents:  bunfmt.StringPointer{Offset: u32At(buf, pos+0x08), Length: u32At(buf, pos+0x0c)},
		SourceMap: bunfmt.StringPointer{Offset: u32At(buf, pos+0x10), Length: u32At(buf, pos+0x14)},
		Bytecode:  bunfmt.StringPointer{Offset: u32At(buf, pos+0x18), Length: u32At(buf, pos+0x1c)},
		Encoding:  bunfmt.Encoding(byteAt(buf, pos+0x20)),
		Loader:    bunfmt.Loader(byteAt(buf, pos+0x21)),
		Format:    bunfmt.ModuleFormat(byteAt(buf, pos+0x22)),
		Side:      bunfmt.Side(byteAt(buf, pos+0x23)),
	}
}

func resolveModule(buf []byte, l *Layout, rec Record) (Module, error) {
	name, err := l.Resolve(buf, rec.Name)
	if err != nil {
		return Module{}, fmt.Errorf("name: %w", err)
	}
	contents, err := l.Resolve(buf, rec.Contents)
	if err != nil {
		return Module{}, fmt.Errorf("contents: %w", err)
	}
	sourceMap, err := l.Resolve(buf, rec.SourceMap)
	if err != nil {
		return Module{}, fmt.Errorf("sourcemap: %w", err)
	}
	bytecode, err := l.Resolve(buf, rec.Bytecode)
	if err != nil {
		return Module{}, fmt.Errorf("bytecode: %w", err)
	}
	return Module{
		Name:      NormalizeName(decodeUTF8(name)),
		Contents:  contents,
		SourceMap: sourceMap,
		Bytecode:  bytecode,
		Encoding:  rec.Encoding,
		Loader:    rec.Loader,
		Format:    rec.Format,
		Side:      rec.Side,
		Record:    rec,
	}, nil
}

// NormalizeName strips the current or legacy virtual root prefix.
func NormalizeName(name string) string {
	if s, ok := strings.CutPrefix(name, bunfmt.RootPrefix); ok {
		return s
	}
	if s, ok := strings.CutPrefix(name, bunfmt.LegacyRootPrefix); ok {
		return s
	}
	return name
}

func decodeUTF8(b []byte) string {
	return strings.ToValidUTF8(string(b), "\uFFFD")
}

func byteAt(buf []byte, pos int) byte {
	if pos < 0 || pos >= len(buf) {
		return 0
	}
	return buf[pos]
}

func u32At(buf []byte, pos int) uint32 {
	return uint32(byteAt(buf, pos)) | uint32(byteAt(buf, pos+1))<<8 |
		uint32(byteAt(buf, pos+2))<<16 | uint32(byteAt(buf, pos+3))<<24
}
