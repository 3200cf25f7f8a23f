package header

import "encoding/binary"

// XCOFF (AIX's object format) has no standard-library or corpus-importable
// reader anywhere: debug/ only ships ELF/PE/Mach-O/plan9obj. This is a
// from-scratch big-endian reader covering exactly what the rest of the
// header package needs (bitness, entry, sections), following the published
// AIX XCOFF32/XCOFF64 file-header and section-header layouts the same
// fixed-offset-via-encoding/binary style as the rest of this package.

const (
	xcoffMagic32 = 0x01DF
	xcoffMagic64 = 0x01F7
)

func looksLikeXCOFF(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	magic := binary.BigEndian.Uint16(data[0:2])
	return magic == xcoffMagic32 || magic == xcoffMagic64
}

func parseXCOFF(data []byte) (GenericHeader, error) {
	if len(data) < 2 {
		return GenericHeader{}, errTooSmall
	}
	magic := binary.BigEndian.Uint16(data[0:2])
	if magic == xcoffMagic64 {
		return parseXCOFF64(data)
	}
	return parseXCOFF32(data)
}

var errTooSmall = &parseError{"xcoff: file too small"}

type parseError struct{ msg string }

func (e *parseError) Error() string { return e.msg }

// parseXCOFF32 reads the 20-byte FILHDR, the AOUT optional header (to
// recover the entry point at a fixed offset), and a run of 40-byte SCNHDRs.
func parseXCOFF32(data []byte) (GenericHeader, error) {
	const filhdrSize = 20
	if len(data) < filhdrSize {
		return GenericHeader{}, errTooSmall
	}
	nscns := binary.BigEndian.Uint16(data[2:4])
	opthdrSize := binary.BigEndian.Uint16(data[16:18])

	g := GenericHeader{
		Symbols:    NewSymbolTable(),
		FileType:   FileTypeXCOFF32,
		Bitness:    32,
		Endianness: BigEndian,
		// XCOFF targets POWER/PowerPC exclusively.
		Architecture: ArchPowerPc,
	}

	aoutOff := filhdrSize
	if opthdrSize >= 16 && aoutOff+16 <= len(data) {
		g.Entry = uint64(binary.BigEndian.Uint32(data[aoutOff+12 : aoutOff+16]))
	}

	const scnhdrSize = 40
	scnOff := filhdrSize + int(opthdrSize)
	for i := 0; i < int(nscns); i++ {
		off := scnOff + i*scnhdrSize
		if off+scnhdrSize > len(data) {
			break
		}
		name := cString(data[off : off+8])
		vaddr := binary.BigEndian.Uint32(data[off+12 : off+16])
		size := binary.BigEndian.Uint32(data[off+16 : off+20])
		scnptr := binary.BigEndian.Uint32(data[off+20 : off+24])
		if size == 0 {
			continue
		}
		g.Sections = append(g.Sections, Section{
			Name: name, VirtualAddress: uint64(vaddr), FileOffset: uint64(scnptr), Size: uint64(size),
		})
	}
	return g, nil
}

// parseXCOFF64 mirrors parseXCOFF32 with the widened 24-byte FILHDR and
// 72-byte SCNHDR that XCOFF64 uses for its 64-bit fields.
func parseXCOFF64(data []byte) (GenericHeader, error) {
	const filhdrSize = 24
	if len(data) < filhdrSize {
		return GenericHeader{}, errTooSmall
	}
	nscns := binary.BigEndian.Uint16(data[2:4])
	opthdrSize := binary.BigEndian.Uint16(data[16:18])

	g := GenericHeader{
		Symbols:      NewSymbolTable(),
		FileType:     FileTypeXCOFF64,
		Bitness:      64,
		Endianness:   BigEndian,
		Architecture: ArchPowerPc64,
	}

	aoutOff := filhdrSize
	if opthdrSize >= 24 && aoutOff+24 <= len(data) {
		g.Entry = binary.BigEndian.Uint64(data[aoutOff+16 : aoutOff+24])
	}

	const scnhdrSize = 72
	scnOff := filhdrSize + int(opthdrSize)
	for i := 0; i < int(nscns); i++ {
		off := scnOff + i*scnhdrSize
		if off+scnhdrSize > len(data) {
			break
		}
		name := cString(data[off : off+8])
		vaddr := binary.BigEndian.Uint64(data[off+16 : off+24])
		size := binary.BigEndian.Uint64(data[off+24 : off+32])
		scnptr := binary.BigEndian.Uint64(data[off+32 : off+40])
		if size == 0 {
			continue
		}
		g.Sections = append(g.Sections, Section{
			Name: name, VirtualAddress: vaddr, FileOffset: scnptr, Size: size,
		})
	}
	return g, nil
}
