package asmmodel

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"

	"github.com/xyproto/hexpatch/internal/codec"
	"github.com/xyproto/hexpatch/internal/header"
)

// textSectionNames are the section names §4.3 singles out for
// disassembly; any other named section is emitted as a data SectionTag.
var textSectionNames = map[string]bool{".text": true, "__text": true}

// Model is the pair (Offsets, Lines) from design §3: Offsets has one
// entry per byte of the underlying store, each indexing into Lines.
// Invariant: for every byte b, Lines[Offsets[b]] covers b.
type Model struct {
	Offsets []int
	Lines   []Line

	hasText   bool
	textStart int
	textEnd   int
	textVA    uint64
}

// Build constructs a Model from data by walking hdr's sections in file
// order (design §4.3 "sections_from_bytes"), disassembling .text/__text
// regions with dec and assigning every other byte to a SectionTag.
func Build(data []byte, hdr *header.Header, dec codec.Decoder, symbols *header.SymbolTable) *Model {
	m := &Model{Offsets: make([]int, len(data))}
	sections := sectionsOf(hdr, len(data))

	cursor := 0
	for _, sec := range sections {
		secStart := int(sec.FileOffset)
		if secStart > cursor {
			m.emitGap(data, cursor, secStart, hdr)
		}
		if secStart > len(data) {
			continue
		}
		secEnd := secStart + int(sec.Size)
		if secEnd > len(data) {
			secEnd = len(data)
		}
		if secEnd <= secStart {
			continue
		}
		if textSectionNames[sec.Name] {
			m.markTextSection(secStart, secEnd, sec.VirtualAddress)
			m.emitCode(data, dec, sec.Name, secStart, secEnd, sec.VirtualAddress, symbols)
		} else {
			m.emitTag(sec.Name, secStart, secEnd, sec.VirtualAddress)
		}
		if secEnd > cursor {
			cursor = secEnd
		}
	}
	if cursor < len(data) {
		m.emitGap(data, cursor, len(data), hdr)
	}
	return m
}

// sectionsOf returns hdr's sections sorted by file offset, or a single
// synthetic whole-file ".text" section if hdr has none (design §4.3 step
// 1).
func sectionsOf(hdr *header.Header, length int) []header.Section {
	if hdr != nil && hdr.Parsed && len(hdr.Generic.Sections) > 0 {
		return hdr.Generic.SortedSections()
	}
	return []header.Section{{Name: ".text", VirtualAddress: 0, FileOffset: 0, Size: uint64(length)}}
}

func (m *Model) markTextSection(start, end int, va uint64) {
	m.hasText = true
	m.textStart = start
	m.textEnd = end
	m.textVA = va
}

// emitGap assigns an "unknown" SectionTag to the byte range [start, end)
// not claimed by any section (design §4.3 step 2, step 5).
func (m *Model) emitGap(data []byte, start, end int, hdr *header.Header) {
	if end > len(data) {
		end = len(data)
	}
	if start >= end {
		return
	}
	va := uint64(start)
	if hdr != nil {
		va = hdr.PhysicalToVirtual(uint64(start))
	}
	m.emitTag("unknown", start, end, va)
}

// emitTag appends one SectionTag line covering [start, end) and assigns
// every byte in it to the new line's index.
func (m *Model) emitTag(name string, start, end int, va uint64) {
	idx := len(m.Lines)
	m.Lines = append(m.Lines, Line{
		Kind:     KindSectionTag,
		FileAddr: uint64(start),
		VirtAddr: va,
		Name:     name,
		Size:     uint64(end - start),
	})
	for b := start; b < end; b++ {
		m.Offsets[b] = idx
	}
}

// emitCode appends one SectionTag for the section itself, then
// disassembles [start, end) and appends one instruction Line per decoded
// instruction, assigning the covered bytes (design §4.3 step 3).
func (m *Model) emitCode(data []byte, dec codec.Decoder, name string, start, end int, va uint64, symbols *header.SymbolTable) {
	m.emitTag(name, start, end, va)
	if dec == nil {
		return
	}
	insts := dec.Decode(data[start:end], va, true)
	for _, inst := range insts {
		m.appendInstruction(start, inst, symbols)
	}
}

// appendInstruction appends one instruction Line at fileBase+inst.Offset
// and assigns its covered bytes.
func (m *Model) appendInstruction(fileBase int, inst codec.Instruction, symbols *header.SymbolTable) {
	idx := len(m.Lines)
	fileAddr := fileBase + inst.Offset
	m.Lines = append(m.Lines, Line{
		Kind:     KindInstruction,
		FileAddr: uint64(fileAddr),
		VirtAddr: inst.VirtualAddress,
		Mnemonic: inst.Mnemonic,
		Operands: substituteSymbols(inst.Operands, symbols),
		Bytes:    inst.Bytes,
	})
	for b := fileAddr; b < fileAddr+len(inst.Bytes); b++ {
		m.Offsets[b] = idx
	}
}

var hexImmediate = regexp.MustCompile(`0x[0-9a-fA-F]+`)

// substituteSymbols replaces a hex immediate in operands with a known
// symbol name at that address, when one exists (design §3: "operands
// formatted with symbol substitution where a hex immediate equals a
// known symbol address").
func substituteSymbols(operands string, symbols *header.SymbolTable) string {
	if symbols == nil {
		return operands
	}
	return hexImmediate.ReplaceAllStringFunc(operands, func(tok string) string {
		v, err := strconv.ParseUint(tok[2:], 16, 64)
		if err != nil {
			return tok
		}
		if name, ok := symbols.NameAt(v); ok {
			return name
		}
		return tok
	})
}

// LineIndexAt returns the index into Lines covering byte b.
func (m *Model) LineIndexAt(b int) int {
	return m.Offsets[b]
}

// LineAt returns the Line covering byte b.
func (m *Model) LineAt(b int) Line {
	return m.Lines[m.Offsets[b]]
}

// InstructionStart returns the file address of the instruction (or tag)
// covering byte b — the "current instruction" the Patcher and Navigator
// resolve a cursor position against.
func (m *Model) InstructionStart(b int) int {
	return int(m.LineAt(b).FileAddr)
}

// HasTextSection reports whether Build found a .text/__text section.
func (m *Model) HasTextSection() bool {
	return m.hasText
}

// TextBounds returns the file-offset bounds of the text section Build
// found, if any.
func (m *Model) TextBounds() (start, end int, ok bool) {
	return m.textStart, m.textEnd, m.hasText
}

// EditAssembly re-disassembles the file starting at fromByte after a
// patch has rewritten a prefix of modifiedBytes bytes there, per design
// §4.3 "edit_assembly(modified_bytes)". It stops as soon as a freshly
// decoded instruction re-syncs with the pre-existing stream (same bytes
// and virtual address) and at least modifiedBytes have been
// re-disassembled, then splices the changed range into Lines/Offsets.
func (m *Model) EditAssembly(data []byte, dec codec.Decoder, symbols *header.SymbolTable, fromByte, modifiedBytes int) {
	if m.hasText && (fromByte < m.textStart || fromByte >= m.textEnd) {
		return
	}
	if fromByte < 0 || fromByte >= len(data) {
		return
	}
	limit := len(data)
	if m.hasText && m.textEnd < limit {
		limit = m.textEnd
	}
	if fromByte >= limit {
		return
	}

	fromLineIdx := m.Offsets[fromByte]
	va := m.vaFor(fromByte)
	insts := dec.Decode(data[fromByte:limit], va, true)

	oldOffsets := m.Offsets
	oldLines := m.Lines

	var newLines []Line
	decoded := 0
	toByte := fromByte
	matchedOldIdx := -1
	for _, inst := range insts {
		fileAddr := fromByte + inst.Offset
		newLines = append(newLines, Line{
			Kind:     KindInstruction,
			FileAddr: uint64(fileAddr),
			VirtAddr: inst.VirtualAddress,
			Mnemonic: inst.Mnemonic,
			Operands: substituteSymbols(inst.Operands, symbols),
			Bytes:    inst.Bytes,
		})
		instEnd := fileAddr + len(inst.Bytes)
		decoded = instEnd - fromByte

		oldIdx := -1
		if fileAddr < len(oldOffsets) {
			oldIdx = oldOffsets[fileAddr]
		}
		resynced := oldIdx >= 0 && linesResync(oldLines[oldIdx], fileAddr, inst)
		if resynced && decoded >= modifiedBytes {
			toByte = instEnd
			matchedOldIdx = oldIdx
			break
		}
		toByte = instEnd
	}

	if fromByte == toByte {
		return
	}

	var oldEndIdx int
	if matchedOldIdx >= 0 {
		oldEndIdx = matchedOldIdx
	} else {
		// Ran to limit without resyncing: replace through whatever old
		// line covered the last touched byte.
		last := toByte - 1
		if last < 0 {
			last = 0
		}
		if last < len(oldOffsets) {
			oldEndIdx = oldOffsets[last]
		} else {
			oldEndIdx = len(oldLines) - 1
		}
	}

	oldCount := oldEndIdx - fromLineIdx + 1
	delta := len(newLines) - oldCount

	lines := make([]Line, 0, len(oldLines)+delta)
	lines = append(lines, oldLines[:fromLineIdx]...)
	lines = append(lines, newLines...)
	lines = append(lines, oldLines[oldEndIdx+1:]...)
	m.Lines = lines

	for i, l := range newLines {
		start := int(l.FileAddr)
		end := start + len(l.Bytes)
		if end > toByte {
			end = toByte
		}
		for b := start; b < end; b++ {
			m.Offsets[b] = fromLineIdx + i
		}
	}
	if delta != 0 {
		for b := toByte; b < len(m.Offsets); b++ {
			m.Offsets[b] += delta
		}
	}
}

// vaFor derives the virtual address of file byte b from the text
// section's base, falling back to the identity mapping used for bare
// files without a header.
func (m *Model) vaFor(b int) uint64 {
	if m.hasText {
		return m.textVA + uint64(b-m.textStart)
	}
	return uint64(b)
}

// linesResync implements the design's re-sync condition: the freshly
// decoded instruction at fileAddr has the same bytes and virtual address
// as the line that used to sit there.
func linesResync(old Line, fileAddr int, fresh codec.Instruction) bool {
	return old.Kind == KindInstruction &&
		old.FileAddr == uint64(fileAddr) &&
		old.VirtAddr == fresh.VirtualAddress &&
		bytes.Equal(old.Bytes, fresh.Bytes)
}

// String renders the full model as a debugging aid (not used by any
// operation; handy when a test failure needs a human-readable dump).
func (m *Model) String() string {
	var b bytes.Buffer
	for _, l := range m.Lines {
		fmt.Fprintf(&b, "%08x %s\n", l.FileAddr, l.Text())
	}
	return b.String()
}
