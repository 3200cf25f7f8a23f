// Package asmmodel implements the assembly model (design §3, §4.3): a
// file-wide list of AssemblyLines (section markers and decoded
// instructions) together with a byte-index-to-line-index map, kept
// consistent across patches by incremental re-disassembly instead of a
// full rebuild.
package asmmodel

// Kind distinguishes the two AssemblyLine variants (design §3).
type Kind int

const (
	// KindInstruction is one decoded instruction.
	KindInstruction Kind = iota
	// KindSectionTag is a section marker (a real section, or a
	// synthetic "unknown" gap/trailer).
	KindSectionTag
)

// Line is the tagged {Instruction | SectionTag} variant from design §3.
// Instruction fields (Mnemonic, Operands, Bytes) are populated only when
// Kind == KindInstruction; SectionTag fields (Name, Size) only when Kind
// == KindSectionTag.
type Line struct {
	Kind Kind

	FileAddr uint64
	VirtAddr uint64

	// Instruction fields.
	Mnemonic string
	Operands string
	Bytes    []byte

	// SectionTag fields.
	Name string
	Size uint64
}

// Len returns bytes.len() for an instruction line or size for a section
// tag (design §3: "Helpers: len() returns bytes.len() or size").
func (l Line) Len() uint64 {
	if l.Kind == KindInstruction {
		return uint64(len(l.Bytes))
	}
	return l.Size
}

// FileAddress is l.FileAddr.
func (l Line) FileAddress() uint64 { return l.FileAddr }

// VirtualAddress is l.VirtAddr.
func (l Line) VirtualAddress() uint64 { return l.VirtAddr }

// Text renders the line the way a hex-editor listing would: the bare
// mnemonic for a no-operand instruction, "mnemonic operands" otherwise,
// or the section name for a tag.
func (l Line) Text() string {
	if l.Kind == KindSectionTag {
		return l.Name
	}
	if l.Operands == "" {
		return l.Mnemonic
	}
	return l.Mnemonic + " " + l.Operands
}
