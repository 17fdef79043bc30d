// Package standalone decodes the module graph embedded in Bun standalone
// executables.
package standalone

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"unbun/internal/bunfmt"
)

// Layout describes where the standalone payload lives inside a buffer.
// All positions are absolute offsets into the buffer passed to Locate.
type Layout struct {
	Offsets    bunfmt.Offsets `json:"offsets"`
	TrailerPos int            `json:"trailer_pos"`
	OffsetsPos int            `json:"offsets_pos"`
	DataStart  int            `json:"data_start"`
	BufLen     int            `json:"buf_len"`
}

// DataEnd returns the end of the embedded data segment. The offsets record
// starts right after it.
func (l *Layout) DataEnd() int { return l.OffsetsPos }

// Locate finds the trailer by scanning backward from the end of buf,
// within opts.EffectiveScanWindow() bytes, and decodes the offsets record
// preceding it.
func Locate(buf []byte, opts bunfmt.Options) (*Layout, error) {
	pos := findTrailer(buf, opts.EffectiveScanWindow())
	if pos < 0 {
		return nil, bunfmt.ErrInvalidTrailer
	}

	offPos := pos - bunfmt.OffsetsSize
	if offPos < 0 {
		return nil, fmt.Errorf("%w: offsets record at %d precedes start of file", bunfmt.ErrInvalidBinary, offPos)
	}
	off := decodeOffsets(buf[offPos:pos])

	dataStart := int64(offPos) - int64(off.ByteCount)
	if dataStart < 0 {
		return nil, fmt.Errorf("%w: data segment starts at %d (byte count %d)", bunfmt.ErrCorruptModuleGraph, dataStart, off.ByteCount)
	}

	return &Layout{
		Offsets:    off,
		TrailerPos: pos,
		OffsetsPos: offPos,
		DataStart:  int(dataStart),
		BufLen:     len(buf),
	}, nil
}

// findTrailer returns the absolute position of the last trailer occurrence
// inside the final window bytes of buf, or -1.
func findTrailer(buf []byte, window int) int {
	start := len(buf) - window
	if start < 0 {
		start = 0
	}
	i := bytes.LastIndex(buf[start:], bunfmt.Trailer)
	if i < 0 {
		return -1
	}
	return start + i
}

// Offsets record layout, relative to the record start.
const (
	offByteCount    = 0x00
	offModulesPtr   = 0x08
	offEntryPointID = 0x10
	offArgsPtr      = 0x14
	offFlags        = 0x1c
)

func decodeOffsets(rec []byte) bunfmt.Offsets {
	le := binary.LittleEndian
	return bunfmt.Offsets{
		ByteCount:    le.Uint32(rec[offByteCount:]),
		ModulesPtr:   decodePointer(rec[offModulesPtr:]),
		EntryPointID: le.Uint32(rec[offEntryPointID:]),
		ArgsPtr:      decodePointer(rec[offArgsPtr:]),
		Flags:        le.Uint32(rec[offFlags:]),
	}
}

func decodePointer(b []byte) bunfmt.StringPointer {
	return bunfmt.StringPointer{
		Offset: binary.LittleEndian.Uint32(b[0:]),
		Length: binary.LittleEndian.Uint32(b[4:]),
	}
}

// Resolve returns the bytes p refers to. Every call is bounds-checked
// against the data segment; the returned slice aliases buf.
func (l *Layout) Resolve(buf []byte, p bunfmt.StringPointer) ([]byte, error) {
	if p.Length == 0 {
		return nil, nil
	}
	start := int64(l.DataStart) + int64(p.Offset)
	end := start + int64(p.Length)
	if end > int64(l.DataEnd()) || end > int64(len(buf)) {
		return nil, fmt.Errorf("%w: pointer %s ends at %d past data segment end %d",
			bunfmt.ErrCorruptModuleGraph, p, end, l.DataEnd())
	}
	return buf[start:end], nil
}
