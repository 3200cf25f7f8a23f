package header

import (
	"bytes"
	"debug/elf"
)

// elfMagic is the canonical ELF magic used for format detection (design
// §4.2: "Detection is by canonical magic").
var elfMagic = []byte{0x7f, 'E', 'L', 'F'}

func looksLikeELF(data []byte) bool {
	return bytes.HasPrefix(data, elfMagic)
}

// parseELF builds a GenericHeader from an ELF object using the standard
// library's debug/elf reader, the same package other_examples' own
// binscan.elfExe and elfexec.parseNotes use to open ELF binaries.
func parseELF(data []byte) (GenericHeader, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return GenericHeader{}, err
	}
	defer f.Close()

	g := GenericHeader{
		Symbols: NewSymbolTable(),
	}

	switch f.Class {
	case elf.ELFCLASS64:
		g.Bitness = 64
		g.FileType = FileTypeELF64
	default:
		g.Bitness = 32
		g.FileType = FileTypeELF32
	}
	if f.Data == elf.ELFDATA2MSB {
		g.Endianness = BigEndian
	}
	g.Architecture = elfArchitecture(f.Machine)
	if g.Architecture == ArchRiscv32 && g.Bitness == 64 {
		g.Architecture = ArchRiscv64
	}
	g.Entry = f.Entry

	for _, s := range f.Sections {
		if s.Size == 0 {
			continue
		}
		g.Sections = append(g.Sections, Section{
			Name:           s.Name,
			VirtualAddress: s.Addr,
			FileOffset:     s.Offset,
			Size:           s.Size,
		})
	}

	addSyms := func(syms []elf.Symbol) {
		for _, s := range syms {
			if s.Name == "" || s.Value == 0 {
				continue
			}
			g.Symbols.Add(s.Value, Demangle(s.Name))
		}
	}
	if syms, err := f.Symbols(); err == nil {
		addSyms(syms)
	}
	if dynsyms, err := f.DynamicSymbols(); err == nil {
		addSyms(dynsyms)
	}

	return g, nil
}

func elfArchitecture(m elf.Machine) Architecture {
	switch m {
	case elf.EM_386:
		return ArchX86
	case elf.EM_X86_64:
		return ArchX86_64
	case elf.EM_AARCH64:
		return ArchAArch64
	case elf.EM_ARM:
		return ArchArm
	case elf.EM_MIPS:
		return ArchMips
	case elf.EM_MIPS64:
		return ArchMips64
	case elf.EM_PPC:
		return ArchPowerPc
	case elf.EM_PPC64:
		return ArchPowerPc64
	case elf.EM_RISCV:
		return ArchRiscv32 // bitness disambiguates 32 vs 64 at the caller
	case elf.EM_S390:
		return ArchS390x
	case elf.EM_SPARCV9:
		return ArchSparc64
	default:
		return ArchUnknown
	}
}
