package header

import (
	"encoding/binary"
	"testing"

	"github.com/xyproto/hexpatch/internal/notify"
	"github.com/xyproto/hexpatch/internal/vfs"
)

// buildMinimalELF64 hand-assembles the smallest e_ident+Ehdr64 debug/elf
// will accept: a little-endian x86-64 executable with no program or
// section headers, matching the teacher's habit of poking raw struct
// layouts byte-by-byte (elf_writer.go) rather than going through a
// builder type.
func buildMinimalELF64(entry uint64) []byte {
	b := make([]byte, 64)
	copy(b[0:4], []byte{0x7f, 'E', 'L', 'F'})
	b[4] = 2 // ELFCLASS64
	b[5] = 1 // ELFDATA2LSB
	b[6] = 1 // EV_CURRENT
	binary.LittleEndian.PutUint16(b[16:18], 2)  // ET_EXEC
	binary.LittleEndian.PutUint16(b[18:20], 62) // EM_X86_64
	binary.LittleEndian.PutUint32(b[20:24], 1)  // e_version
	binary.LittleEndian.PutUint64(b[24:32], entry)
	binary.LittleEndian.PutUint16(b[52:54], 64) // e_ehsize
	return b
}

func TestParseELFMinimal(t *testing.T) {
	data := buildMinimalELF64(0x400000)
	fs, _ := vfs.NewLocal()
	hdr, log := Parse(data, "a.elf", fs)
	if !hdr.Parsed {
		t.Fatalf("expected parsed header, got None; log=%v", log.Entries())
	}
	if hdr.Generic.Architecture != ArchX86_64 {
		t.Fatalf("architecture = %v, want x86_64", hdr.Generic.Architecture)
	}
	if hdr.Generic.Bitness != 64 {
		t.Fatalf("bitness = %d, want 64", hdr.Generic.Bitness)
	}
	if hdr.Generic.Entry != 0x400000 {
		t.Fatalf("entry = 0x%x, want 0x400000", hdr.Generic.Entry)
	}
}

func TestParseUnrecognizedBytesIsNone(t *testing.T) {
	fs, _ := vfs.NewLocal()
	hdr, log := Parse([]byte{1, 2, 3, 4}, "raw.bin", fs)
	if hdr.Parsed {
		t.Fatal("expected Header::None for unrecognized bytes")
	}
	if last, ok := log.Last(); !ok || last.Severity != notify.Info {
		t.Fatalf("expected an Info entry logged, got %v", log.Entries())
	}
}

func TestVirtualPhysicalRoundTrip(t *testing.T) {
	hdr := &Header{Parsed: true, Generic: GenericHeader{
		Sections: []Section{
			{Name: ".text", VirtualAddress: 0x400000, FileOffset: 0x1000, Size: 0x200},
		},
	}}

	pa, ok := hdr.VirtualToPhysical(0x400010)
	if !ok || pa != 0x1010 {
		t.Fatalf("VirtualToPhysical = (0x%x, %v), want (0x1010, true)", pa, ok)
	}
	if _, ok := hdr.VirtualToPhysical(0x500000); ok {
		t.Fatal("expected no section to cover 0x500000")
	}

	va := hdr.PhysicalToVirtual(0x1010)
	if va != 0x400010 {
		t.Fatalf("PhysicalToVirtual = 0x%x, want 0x400010", va)
	}
	// Bytes outside any section map identity, per design's "bare files"
	// fallback.
	if got := hdr.PhysicalToVirtual(0x5000); got != 0x5000 {
		t.Fatalf("PhysicalToVirtual outside any section = 0x%x, want identity 0x5000", got)
	}
}

func TestSymbolTableBidirectional(t *testing.T) {
	st := NewSymbolTable()
	st.Add(0x1000, "main")
	st.Add(0x2000, "helper")

	if name, ok := st.NameAt(0x1000); !ok || name != "main" {
		t.Fatalf("NameAt(0x1000) = (%q, %v), want (main, true)", name, ok)
	}
	if addr, ok := st.AddressOf("helper"); !ok || addr != 0x2000 {
		t.Fatalf("AddressOf(helper) = (0x%x, %v), want (0x2000, true)", addr, ok)
	}
	if st.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", st.Len())
	}
}
