package header

import (
	"bytes"
	"debug/pe"
	"encoding/binary"
	"path"
	"strings"

	"github.com/xyproto/hexpatch/internal/herr"
	"github.com/xyproto/hexpatch/internal/notify"
	"github.com/xyproto/hexpatch/internal/vfs"
)

func looksLikePE(data []byte) bool {
	return bytes.HasPrefix(data, []byte("MZ"))
}

// imageDebugDirectorySize is sizeof(IMAGE_DEBUG_DIRECTORY), matching the
// layout the teacher's pe_reader.go reads other PE tables with (fixed
// little-endian structs via encoding/binary).
const imageDebugDirectorySize = 28

// imageDebugTypeCodeView is IMAGE_DEBUG_TYPE_CODEVIEW (design §4.2 and §6:
// "debug directory entry of type 2").
const imageDebugTypeCodeView = 2

// cvSignatureRSDS is the CodeView 'RSDS' signature used by modern
// (PDB 7.0) toolchains.
const cvSignatureRSDS = 0x53445352

// parsePE builds a GenericHeader from a PE/PE+ image using debug/pe, then
// sideloads a PDB (if the debug directory names one) for public symbols,
// per design §4.2 and §6.
func parsePE(data []byte, path_ string, fs vfs.FileSystem, log *notify.Log) (GenericHeader, error) {
	f, err := pe.NewFile(bytes.NewReader(data))
	if err != nil {
		return GenericHeader{}, err
	}
	defer f.Close()

	g := GenericHeader{Symbols: NewSymbolTable()}
	g.Architecture = peArchitecture(f.Machine)

	var imageBase uint64
	var debugDirRVA, debugDirSize uint32
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader64:
		g.Bitness = 64
		g.FileType = FileTypePE64
		g.Entry = uint64(oh.AddressOfEntryPoint)
		imageBase = oh.ImageBase
		debugDirRVA = oh.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_DEBUG].VirtualAddress
		debugDirSize = oh.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_DEBUG].Size
	case *pe.OptionalHeader32:
		g.Bitness = 32
		g.FileType = FileTypePE32
		g.Entry = uint64(oh.AddressOfEntryPoint)
		imageBase = uint64(oh.ImageBase)
		debugDirRVA = oh.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_DEBUG].VirtualAddress
		debugDirSize = oh.DataDirectory[pe.IMAGE_DIRECTORY_ENTRY_DEBUG].Size
	default:
		g.Bitness = 32
		g.FileType = FileTypePE32
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
		g.Symbols.Add(imageBase+uint64(s.Value), Demangle(s.Name))
	}

	if debugDirSize > 0 {
		if pdbPath, ok := findPDBPath(data, g.Sections, debugDirRVA, debugDirSize); ok {
			sideloadPDB(g.Symbols, pdbPath, path_, fs, imageBase, g.Sections, log)
		}
	}

	return g, nil
}

func peArchitecture(m pe.Machine) Architecture {
	switch m {
	case pe.IMAGE_FILE_MACHINE_I386:
		return ArchX86
	case pe.IMAGE_FILE_MACHINE_AMD64:
		return ArchX86_64
	case pe.IMAGE_FILE_MACHINE_ARM64:
		return ArchAArch64
	case pe.IMAGE_FILE_MACHINE_ARMNT:
		return ArchArm
	case pe.IMAGE_FILE_MACHINE_RISCV64:
		return ArchRiscv64
	case pe.IMAGE_FILE_MACHINE_RISCV32:
		return ArchRiscv32
	default:
		return ArchUnknown
	}
}

// rvaToFileOffset converts an RVA to a file offset using already-parsed
// sections, the same linear scan approach as the teacher's
// pe_reader.go:rvaToFileOffset.
func rvaToFileOffset(secs []Section, rva uint32) (uint32, bool) {
	for _, s := range secs {
		if uint64(rva) >= s.VirtualAddress && uint64(rva) < s.VirtualAddress+s.Size {
			return uint32(s.FileOffset) + (rva - uint32(s.VirtualAddress)), true
		}
	}
	return 0, false
}

// findPDBPath scans the debug directory for a CodeView (type 2) entry and
// returns the embedded PDB path.
func findPDBPath(data []byte, secs []Section, debugDirRVA, debugDirSize uint32) (string, bool) {
	off, ok := rvaToFileOffset(secs, debugDirRVA)
	if !ok || uint64(off)+uint64(debugDirSize) > uint64(len(data)) {
		return "", false
	}
	n := int(debugDirSize) / imageDebugDirectorySize
	for i := 0; i < n; i++ {
		entry := data[int(off)+i*imageDebugDirectorySize:]
		typ := binary.LittleEndian.Uint32(entry[12:16])
		if typ != imageDebugTypeCodeView {
			continue
		}
		size := binary.LittleEndian.Uint32(entry[16:20])
		ptrRaw := binary.LittleEndian.Uint32(entry[24:28])
		if uint64(ptrRaw)+uint64(size) > uint64(len(data)) || size < 24 {
			continue
		}
		cv := data[ptrRaw : ptrRaw+size]
		sig := binary.LittleEndian.Uint32(cv[0:4])
		if sig != cvSignatureRSDS {
			continue
		}
		// RSDS record: signature(4) + GUID(16) + Age(4) + NUL-terminated path.
		pathBytes := cv[24:]
		if idx := bytes.IndexByte(pathBytes, 0); idx >= 0 {
			pathBytes = pathBytes[:idx]
		}
		return string(pathBytes), true
	}
	return "", false
}

// sideloadPDB opens pdbPath (resolved relative to binaryPath's parent via
// fs unless already absolute, per design §4.2/§6), reads its public
// symbols, and adds them at rva+imageBase. Any failure is non-fatal and
// only logged as Info, per design §7.
func sideloadPDB(into *SymbolTable, pdbPath, binaryPath string, fs vfs.FileSystem, imageBase uint64, secs []Section, log *notify.Log) {
	resolved := resolvePDBPath(pdbPath, binaryPath, fs)
	raw, err := fs.Read(resolved)
	if err != nil {
		if log != nil {
			log.Info("PDB sideload skipped: %v", herr.Wrap(herr.IoError, err, "reading %s", resolved))
		}
		return
	}
	pubs, err := parsePDBPublics(raw)
	if err != nil {
		if log != nil {
			log.Info("PDB sideload skipped: %v", herr.Wrap(herr.ParseError, err, "parsing %s", resolved))
		}
		return
	}
	for _, p := range pubs {
		if int(p.Segment) < 1 || int(p.Segment) > len(secs) {
			continue
		}
		rva := secs[p.Segment-1].VirtualAddress + uint64(p.Offset)
		into.Add(imageBase+rva, Demangle(p.Name))
	}
}

// resolvePDBPath normalizes a possibly-Windows-style path recorded in the
// CV_INFO record and joins it against the binary's parent directory
// unless it is already absolute (design §4.2, §6).
func resolvePDBPath(pdbPath, binaryPath string, fs vfs.FileSystem) string {
	normalized := strings.ReplaceAll(pdbPath, `\`, fs.Separator())
	if path.IsAbs(filepathToSlash(normalized, fs.Separator())) || isWindowsAbs(normalized) {
		return normalized
	}
	dir := parentDir(binaryPath, fs.Separator())
	if dir == "" {
		return normalized
	}
	return dir + fs.Separator() + normalized
}

func isWindowsAbs(p string) bool {
	return len(p) >= 3 && p[1] == ':' && (p[2] == '\\' || p[2] == '/')
}

func filepathToSlash(p, sep string) string {
	if sep == "/" {
		return p
	}
	return strings.ReplaceAll(p, sep, "/")
}

func parentDir(p, sep string) string {
	idx := strings.LastIndex(p, sep)
	if idx < 0 {
		return ""
	}
	return p[:idx]
}
