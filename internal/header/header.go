// Package header implements the executable-model component of the design
// (§3-§4.2, §4.6): detecting an object file's format, extracting its
// architecture/bitness/endianness/entry point/sections/symbols into a
// single source-format-independent Header, and the virtual/physical
// address utilities built on top of it.
package header

import "sort"

// FileType is the on-disk container format detected for the binary.
type FileType int

const (
	FileTypeUnknown FileType = iota
	FileTypeCOFF
	FileTypeCOFFBig
	FileTypeELF32
	FileTypeELF64
	FileTypeMachO32
	FileTypeMachO64
	FileTypePE32
	FileTypePE64
	FileTypeXCOFF32
	FileTypeXCOFF64
)

func (t FileType) String() string {
	switch t {
	case FileTypeCOFF:
		return "COFF"
	case FileTypeCOFFBig:
		return "COFF-big"
	case FileTypeELF32:
		return "ELF32"
	case FileTypeELF64:
		return "ELF64"
	case FileTypeMachO32:
		return "Mach-O32"
	case FileTypeMachO64:
		return "Mach-O64"
	case FileTypePE32:
		return "PE32"
	case FileTypePE64:
		return "PE64"
	case FileTypeXCOFF32:
		return "XCOFF32"
	case FileTypeXCOFF64:
		return "XCOFF64"
	default:
		return "Unknown"
	}
}

// Architecture is a closed, source-format-independent CPU architecture
// identifier (design §3: "closed set").
type Architecture int

const (
	ArchUnknown Architecture = iota
	ArchX86
	ArchX86_64
	ArchAArch64
	ArchArm
	ArchMips
	ArchMips64
	ArchPowerPc
	ArchPowerPc64
	ArchRiscv32
	ArchRiscv64
	ArchS390x
	ArchSparc64
)

func (a Architecture) String() string {
	switch a {
	case ArchX86:
		return "x86"
	case ArchX86_64:
		return "x86_64"
	case ArchAArch64:
		return "aarch64"
	case ArchArm:
		return "arm"
	case ArchMips:
		return "mips"
	case ArchMips64:
		return "mips64"
	case ArchPowerPc:
		return "powerpc"
	case ArchPowerPc64:
		return "powerpc64"
	case ArchRiscv32:
		return "riscv32"
	case ArchRiscv64:
		return "riscv64"
	case ArchS390x:
		return "s390x"
	case ArchSparc64:
		return "sparc64"
	default:
		return "unknown"
	}
}

// Endianness is the byte order of multi-byte fields in the object.
type Endianness int

const (
	LittleEndian Endianness = iota
	BigEndian
)

// Section is one named range of the file mapped into the loaded image.
// Sections with Size == 0 are discarded by the parser (design §4.2).
type Section struct {
	Name           string
	VirtualAddress uint64
	FileOffset     uint64
	Size           uint64
}

// SymbolTable holds the address<->name bidirectional mapping (design §3:
// "keys unique in each direction"). Later insertions of a name or address
// already present overwrite the earlier one, matching a map's usual
// semantics; this is deliberate in favor of "last parser wins" (e.g. a PDB
// public symbol overriding a stripped object-table entry for the same
// address).
type SymbolTable struct {
	byAddr map[uint64]string
	byName map[string]uint64
}

// NewSymbolTable returns an empty SymbolTable.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{byAddr: map[uint64]string{}, byName: map[string]uint64{}}
}

// Add records name at addr in both directions.
func (t *SymbolTable) Add(addr uint64, name string) {
	if name == "" {
		return
	}
	t.byAddr[addr] = name
	t.byName[name] = addr
}

// NameAt returns the symbol name at addr, if any.
func (t *SymbolTable) NameAt(addr uint64) (string, bool) {
	name, ok := t.byAddr[addr]
	return name, ok
}

// AddressOf returns the address for name, if any.
func (t *SymbolTable) AddressOf(name string) (uint64, bool) {
	addr, ok := t.byName[name]
	return addr, ok
}

// Len returns the number of distinct addresses with a symbol.
func (t *SymbolTable) Len() int {
	return len(t.byAddr)
}

// Names returns every symbol name, unordered.
func (t *SymbolTable) Names() []string {
	names := make([]string, 0, len(t.byName))
	for n := range t.byName {
		names = append(names, n)
	}
	return names
}

// GenericHeader is the parsed, format-independent view of an object file
// (design §3).
type GenericHeader struct {
	FileType     FileType
	Architecture Architecture
	Bitness      int
	Endianness   Endianness
	Entry        uint64
	Sections     []Section
	Symbols      *SymbolTable
}

// Header is the tagged {None | Parsed(GenericHeader)} variant from the
// design. A nil *Header or one with Parsed == false represents
// Header::None.
type Header struct {
	Parsed bool
	Generic GenericHeader
}

// None returns Header::None.
func None() *Header {
	return &Header{}
}

// SymbolToAddress implements design §4.6.
func (h *Header) SymbolToAddress(name string) (uint64, bool) {
	if !h.Parsed || h.Generic.Symbols == nil {
		return 0, false
	}
	return h.Generic.Symbols.AddressOf(name)
}

// VirtualToPhysical implements design §4.6: linear scan of sections,
// first covering section wins.
func (h *Header) VirtualToPhysical(va uint64) (uint64, bool) {
	if !h.Parsed {
		return 0, false
	}
	for _, s := range h.Generic.Sections {
		if va >= s.VirtualAddress && va < s.VirtualAddress+s.Size {
			return s.FileOffset + (va - s.VirtualAddress), true
		}
	}
	return 0, false
}

// PhysicalToVirtual implements design §4.6: symmetric scan; if no
// section covers pa, pa is returned unchanged ("identity mapping for bare
// files").
func (h *Header) PhysicalToVirtual(pa uint64) uint64 {
	if !h.Parsed {
		return pa
	}
	for _, s := range h.Generic.Sections {
		if pa >= s.FileOffset && pa < s.FileOffset+s.Size {
			return s.VirtualAddress + (pa - s.FileOffset)
		}
	}
	return pa
}

// SectionByName returns the first section with the given name.
func (h *Header) SectionByName(name string) (Section, bool) {
	if !h.Parsed {
		return Section{}, false
	}
	for _, s := range h.Generic.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

// SortedSections returns sections ordered by FileOffset, the order the
// assembly model walks them in.
func (h *GenericHeader) SortedSections() []Section {
	out := make([]Section, len(h.Sections))
	copy(out, h.Sections)
	sort.Slice(out, func(i, j int) bool { return out[i].FileOffset < out[j].FileOffset })
	return out
}

// discardEmpty drops sections with Size == 0, per design §4.2.
func discardEmpty(secs []Section) []Section {
	out := secs[:0:0]
	for _, s := range secs {
		if s.Size > 0 {
			out = append(out, s)
		}
	}
	return out
}
