package header

import (
	"encoding/binary"
	"fmt"
)

// This file implements just enough of the Microsoft PDB 7.0 (MSF) container
// format to enumerate public symbols (S_PUB32 records) out of a sideloaded
// PDB: the MSF superblock and stream directory, and the fixed-size DBI
// stream header that names the symbol record stream. There is no
// importable pure-Go PDB library anywhere in the retrieved corpus (the
// Windows-specific `pe_windows.go` example only reads the CV_INFO record,
// not the PDB itself), so this is a from-scratch reader, following the
// published MSF/DBI layouts the way pe_reader.go reads PE structures: one
// fixed-size struct at a time via encoding/binary.

const msfMagic = "Microsoft C/C++ MSF 7.00\r\n\x1aDS\x00\x00\x00"

type msfSuperblock struct {
	PageSize         uint32
	FreePageMapPage  uint32
	PageCount        uint32
	DirectorySize    uint32
	Unknown          uint32
	DirectoryMapPage uint32 // first (and, for small PDBs, only) page of the stream-directory page list
}

// pubSymbol is one decoded S_PUB32 CodeView symbol record.
type pubSymbol struct {
	Name    string
	Offset  uint32
	Segment uint16
}

const (
	symPub32 = 0x110E
)

// dbiStreamIndex is always 3 in an MSF PDB: 0=old directory copy,
// 1=PDB info, 2=TPI, 3=DBI, 4=IPI.
const dbiStreamIndex = 3

func parsePDBPublics(data []byte) ([]pubSymbol, error) {
	if len(data) < len(msfMagic)+4*6 {
		return nil, fmt.Errorf("pdb: file too small")
	}
	if string(data[:len(msfMagic)]) != msfMagic {
		return nil, fmt.Errorf("pdb: bad MSF magic")
	}
	hdr := data[len(msfMagic):]
	var sb msfSuperblock
	sb.PageSize = binary.LittleEndian.Uint32(hdr[0:4])
	sb.FreePageMapPage = binary.LittleEndian.Uint32(hdr[4:8])
	sb.PageCount = binary.LittleEndian.Uint32(hdr[8:12])
	sb.DirectorySize = binary.LittleEndian.Uint32(hdr[12:16])
	sb.Unknown = binary.LittleEndian.Uint32(hdr[16:20])
	sb.DirectoryMapPage = binary.LittleEndian.Uint32(hdr[20:24])
	if sb.PageSize == 0 {
		return nil, fmt.Errorf("pdb: zero page size")
	}

	readPage := func(page uint32) ([]byte, error) {
		start := uint64(page) * uint64(sb.PageSize)
		if start+uint64(sb.PageSize) > uint64(len(data)) {
			return nil, fmt.Errorf("pdb: page %d out of range", page)
		}
		return data[start : start+uint64(sb.PageSize)], nil
	}

	numDirPages := (sb.DirectorySize + sb.PageSize - 1) / sb.PageSize
	dirMapPage, err := readPage(sb.DirectoryMapPage)
	if err != nil {
		return nil, err
	}
	dirPages := make([]uint32, numDirPages)
	for i := range dirPages {
		dirPages[i] = binary.LittleEndian.Uint32(dirMapPage[i*4 : i*4+4])
	}

	directory := make([]byte, 0, sb.DirectorySize)
	for _, p := range dirPages {
		pg, err := readPage(p)
		if err != nil {
			return nil, err
		}
		directory = append(directory, pg...)
	}
	directory = directory[:sb.DirectorySize]

	numStreams := binary.LittleEndian.Uint32(directory[0:4])
	sizesOff := 4
	sizes := make([]uint32, numStreams)
	for i := range sizes {
		sizes[i] = binary.LittleEndian.Uint32(directory[sizesOff+i*4 : sizesOff+i*4+4])
	}

	pageListOff := sizesOff + int(numStreams)*4
	readStream := func(idx int) ([]byte, error) {
		if idx < 0 || idx >= int(numStreams) {
			return nil, fmt.Errorf("pdb: stream %d does not exist", idx)
		}
		size := sizes[idx]
		if size == 0xFFFFFFFF {
			return nil, fmt.Errorf("pdb: stream %d absent", idx)
		}
		// Sum page counts for streams before idx to find our page-list offset.
		off := pageListOff
		for i := 0; i < idx; i++ {
			s := sizes[i]
			if s == 0xFFFFFFFF {
				s = 0
			}
			off += int((s + sb.PageSize - 1) / sb.PageSize * 4)
		}
		numPages := (size + sb.PageSize - 1) / sb.PageSize
		out := make([]byte, 0, size)
		for i := uint32(0); i < numPages; i++ {
			if off+4 > len(directory) {
				return nil, fmt.Errorf("pdb: truncated stream directory")
			}
			page := binary.LittleEndian.Uint32(directory[off : off+4])
			off += 4
			pg, err := readPage(page)
			if err != nil {
				return nil, err
			}
			out = append(out, pg...)
		}
		return out[:size], nil
	}

	dbi, err := readStream(dbiStreamIndex)
	if err != nil || len(dbi) < 64 {
		return nil, fmt.Errorf("pdb: reading DBI stream: %v", err)
	}
	symRecordStream := int(int16(binary.LittleEndian.Uint16(dbi[20:22])))

	syms, err := readStream(symRecordStream)
	if err != nil {
		return nil, fmt.Errorf("pdb: reading symbol record stream: %v", err)
	}
	return decodePublics(syms), nil
}

// decodePublics walks the flat CodeView symbol-record stream and extracts
// every S_PUB32. Each record is: uint16 Length (excludes itself), uint16
// Kind, payload[Length-2].
func decodePublics(syms []byte) []pubSymbol {
	var out []pubSymbol
	off := 0
	for off+4 <= len(syms) {
		length := int(binary.LittleEndian.Uint16(syms[off : off+2]))
		if length < 2 || off+2+length > len(syms) {
			break
		}
		kind := binary.LittleEndian.Uint16(syms[off+2 : off+4])
		body := syms[off+4 : off+2+length]
		if kind == symPub32 && len(body) >= 10 {
			offset := binary.LittleEndian.Uint32(body[4:8])
			segment := binary.LittleEndian.Uint16(body[8:10])
			name := cString(body[10:])
			out = append(out, pubSymbol{Name: name, Offset: offset, Segment: segment})
		}
		off += 2 + length
	}
	return out
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
