// Package standalonetest builds synthetic standalone executables for tests.
package standalonetest

import (
	"encoding/binary"
	"strings"

	"unbun/internal/bunfmt"
)

// Module describes one embedded file.
type Module struct {
	Name      string
	Contents  string
	SourceMap string
	Bytecode  string
	Encoding  uint8
	Loader    uint8
	Format    uint8
	Side      uint8
}

// Builder lays out a payload the way bun build --compile does:
// prefix | data segment | offsets | trailer | padding.
type Builder struct {
	Prefix       []byte // stands in for the runtime executable
	Modules      []Module
	EntryPointID uint32
	Args         []string
	Flags        uint32
	Padding      int // zero bytes after the trailer
}

// Build returns the encoded executable.
func (b *Builder) Build() []byte {
	var data []byte
	put := func(s string) bunfmt.StringPointer {
		if s == "" {
			return bunfmt.StringPointer{}
		}
		p := bunfmt.StringPointer{Offset: uint32(len(data)), Length: uint32(len(s))}
		data = append(data, s...)
		return p
	}

	var table []byte
	for _, m := range b.Modules {
		rec := make([]byte, bunfmt.ModuleRecordSize)
		putPointer(rec[0x00:], put(m.Name))
		putPointer(rec[0x08:], put(m.Contents))
		putPointer(rec[0x10:], put(m.SourceMap))
		putPointer(rec[0x18:], put(m.Bytecode))
		rec[0x20] = m.Encoding
		rec[0x21] = m.Loader
		rec[0x22] = m.Format
		rec[0x23] = m.Side
		table = append(table, rec...)
	}
	modulesPtr := bunfmt.StringPointer{Offset: uint32(len(data)), Length: uint32(len(table))}
	data = append(data, table...)

	var argsPtr bunfmt.StringPointer
	if len(b.Args) > 0 {
		argsPtr = put(strings.Join(b.Args, "\x00") + "\x00")
	}

	off := make([]byte, bunfmt.OffsetsSize)
	le := binary.LittleEndian
	le.PutUint32(off[0x00:], uint32(len(data)))
	putPointer(off[0x08:], modulesPtr)
	le.PutUint32(off[0x10:], b.EntryPointID)
	putPointer(off[0x14:], argsPtr)
	le.PutUint32(off[0x1c:], b.Flags)

	out := make([]byte, 0, len(b.Prefix)+len(data)+len(off)+len(bunfmt.Trailer)+b.Padding)
	out = append(out, b.Prefix...)
	out = append(out, data...)
	out = append(out, off...)
	out = append(out, bunfmt.Trailer...)
	out = append(out, make([]byte, b.Padding)...)
	return out
}

// OffsetsPos returns the position of the offsets record in a buffer
// produced by b.Build.
func (b *Builder) OffsetsPos(buf []byte) int {
	return len(buf) - b.Padding - len(bunfmt.Trailer) - bunfmt.OffsetsSize
}

// PutU32 overwrites a little-endian uint32 at pos.
func PutU32(buf []byte, pos int, v uint32) {
	binary.LittleEndian.PutUint32(buf[pos:], v)
}

func putPointer(b []byte, p bunfmt.StringPointer) {
	binary.LittleEndian.PutUint32(b[0:], p.Offset)
	binary.LittleEndian.PutUint32(b[4:], p.Length)
}
