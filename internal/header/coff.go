package header

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"fmt"
)

// looksLikeCOFF recognizes a bare little-endian COFF object file: no MZ/PE
// wrapper, just a raw IMAGE_FILE_HEADER whose Machine field names a known
// little-endian machine. debug/pe.NewFile already accepts these directly
// (it special-cases the absence of an "MZ" prefix), so detection only has
// to rule out the magics the other parsers already claim.
func looksLikeCOFF(data []byte) bool {
	if len(data) < 20 || looksLikeELF(data) || looksLikeMachO(data) || looksLikePE(data) {
		return false
	}
	machine := binary.LittleEndian.Uint16(data[0:2])
	switch machine {
	case pe.IMAGE_FILE_MACHINE_I386, pe.IMAGE_FILE_MACHINE_AMD64,
		pe.IMAGE_FILE_MACHINE_ARM, pe.IMAGE_FILE_MACHINE_ARMNT, pe.IMAGE_FILE_MACHINE_ARM64,
		pe.IMAGE_FILE_MACHINE_RISCV32, pe.IMAGE_FILE_MACHINE_RISCV64:
		return true
	}
	return false
}

// parseCOFF builds a GenericHeader from a bare COFF object using the same
// debug/pe reader parsePE uses for full PE images: debug/pe.NewFile accepts
// object files with no optional header just as readily as full images.
// Object files have no entry point or image base, so the entry and
// PDB sideload steps parsePE performs simply don't apply.
func parseCOFF(data []byte) (GenericHeader, error) {
	f, err := pe.NewFile(bytes.NewReader(data))
	if err != nil {
		return GenericHeader{}, err
	}
	defer f.Close()

	g := GenericHeader{Symbols: NewSymbolTable(), FileType: FileTypeCOFF, Bitness: 32}
	g.Architecture = peArchitecture(f.Machine)
	if g.Architecture == ArchX86_64 || g.Architecture == ArchAArch64 || g.Architecture == ArchRiscv64 {
		g.Bitness = 64
	}

	for _, s := range f.Sections {
		if s.Size == 0 {
			continue
		}
		g.Sections = append(g.Sections, Section{
			Name:           s.Name,
			VirtualAddress: uint64(s.VirtualAddress),
			FileOffset:     uint64(s.Offset),
			Size:           uint64(s.Size),
		})
	}
	for _, s := range f.Symbols {
		if s.Value == 0 || s.Name == "" {
			continue
		}
		g.Symbols.Add(uint64(s.Value), Demangle(s.Name))
	}
	return g, nil
}

// bigCOFFFileHeader mirrors pe.FileHeader but read big-endian, for the
// handful of big-endian COFF object producers (older MIPS/PowerPC
// toolchains). debug/pe always reads little-endian, so there is no
// standard-library or corpus support for this shape; it is hand-rolled the
// same fixed-struct-via-encoding/binary way elf_static.go writes ELF
// structures, just mirrored for reading.
type bigCOFFFileHeader struct {
	Machine              uint16
	NumberOfSections     uint16
	TimeDateStamp        uint32
	PointerToSymbolTable uint32
	NumberOfSymbols      uint32
	SizeOfOptionalHeader uint16
	Characteristics      uint16
}

type bigCOFFSectionHeader struct {
	Name                 [8]byte
	VirtualSize          uint32
	VirtualAddress       uint32
	SizeOfRawData        uint32
	PointerToRawData     uint32
	PointerToRelocations uint32
	PointerToLineNumbers uint32
	NumberOfRelocations  uint16
	NumberOfLineNumbers  uint16
	Characteristics      uint32
}

const bigCOFFFileHeaderSize = 20
const bigCOFFSectionHeaderSize = 40

// bigEndianMachines lists the Machine values known to appear in big-endian
// COFF objects, recognized in on-disk (big-endian) byte order.
var bigEndianMachines = map[uint16]bool{
	0x0162: true, // old MIPS big-endian COFF
	0x01f2: true, // old PowerPC big-endian COFF
}

func looksLikeCOFFBig(data []byte) bool {
	if len(data) < bigCOFFFileHeaderSize {
		return false
	}
	machine := binary.BigEndian.Uint16(data[0:2])
	return bigEndianMachines[machine]
}

// parseCOFFBig reads a big-endian bare COFF object file header and section
// table directly; there is no symbol-table reader since big-endian COFF
// object producers this old predate any demangling convention worth
// recovering.
func parseCOFFBig(data []byte) (GenericHeader, error) {
	if len(data) < bigCOFFFileHeaderSize {
		return GenericHeader{}, fmt.Errorf("coff-big: file too small")
	}
	var fh bigCOFFFileHeader
	fh.Machine = binary.BigEndian.Uint16(data[0:2])
	fh.NumberOfSections = binary.BigEndian.Uint16(data[2:4])
	fh.TimeDateStamp = binary.BigEndian.Uint32(data[4:8])
	fh.PointerToSymbolTable = binary.BigEndian.Uint32(data[8:12])
	fh.NumberOfSymbols = binary.BigEndian.Uint32(data[12:16])
	fh.SizeOfOptionalHeader = binary.BigEndian.Uint16(data[16:18])
	fh.Characteristics = binary.BigEndian.Uint16(data[18:20])

	g := GenericHeader{Symbols: NewSymbolTable(), FileType: FileTypeCOFFBig, Bitness: 32, Endianness: BigEndian}
	switch fh.Machine {
	case 0x0162:
		g.Architecture = ArchMips
	case 0x01f2:
		g.Architecture = ArchPowerPc
	}

	secOff := bigCOFFFileHeaderSize + int(fh.SizeOfOptionalHeader)
	for i := 0; i < int(fh.NumberOfSections); i++ {
		off := secOff + i*bigCOFFSectionHeaderSize
		if off+bigCOFFSectionHeaderSize > len(data) {
			break
		}
		var sh bigCOFFSectionHeader
		sh.Name = [8]byte(data[off : off+8])
		sh.VirtualSize = binary.BigEndian.Uint32(data[off+8 : off+12])
		sh.VirtualAddress = binary.BigEndian.Uint32(data[off+12 : off+16])
		sh.SizeOfRawData = binary.BigEndian.Uint32(data[off+16 : off+20])
		sh.PointerToRawData = binary.BigEndian.Uint32(data[off+20 : off+24])
		if sh.SizeOfRawData == 0 {
			continue
		}
		g.Sections = append(g.Sections, Section{
			Name:           cString(sh.Name[:]),
			VirtualAddress: uint64(sh.VirtualAddress),
			FileOffset:     uint64(sh.PointerToRawData),
			Size:           uint64(sh.SizeOfRawData),
		})
	}
	return g, nil
}
