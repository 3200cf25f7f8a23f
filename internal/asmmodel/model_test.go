package asmmodel

import (
	"testing"

	"github.com/xyproto/hexpatch/internal/codec/x86"
)

func instructionLines(m *Model) []Line {
	var out []Line
	for _, l := range m.Lines {
		if l.Kind == KindInstruction {
			out = append(out, l)
		}
	}
	return out
}

func TestBuildSingleInstructionNoHeader(t *testing.T) {
	data := []byte{0x48, 0x89, 0xD8} // mov rax, rbx
	m := Build(data, nil, x86.NewDecoder(), nil)

	if len(m.Offsets) != len(data) {
		t.Fatalf("len(Offsets) = %d, want %d", len(m.Offsets), len(data))
	}
	insts := instructionLines(m)
	if len(insts) != 1 {
		t.Fatalf("got %d instruction lines, want 1: %s", len(insts), m.String())
	}
	if got := insts[0].Text(); got != "mov rax, rbx" {
		t.Fatalf("instruction text = %q, want %q", got, "mov rax, rbx")
	}
	for b := range data {
		l := m.LineAt(b)
		if l.FileAddress() > uint64(b) || uint64(b) >= l.FileAddress()+l.Len() {
			t.Fatalf("byte %d not covered by its line (addr=%d len=%d)", b, l.FileAddress(), l.Len())
		}
	}
}

func TestBuildInvalidBytesBecomeDotByte(t *testing.T) {
	data := []byte{0x06, 0x0E, 0x07} // invalid on x86-64
	m := Build(data, nil, x86.NewDecoder(), nil)

	insts := instructionLines(m)
	if len(insts) == 0 {
		t.Fatal("expected at least one line")
	}
	for _, l := range insts {
		if l.Mnemonic != ".byte" {
			t.Fatalf("mnemonic = %q, want %q", l.Mnemonic, ".byte")
		}
	}
}

func TestEditAssemblyResyncAfterGrowth(t *testing.T) {
	// mov rax,rbx; mov rcx,rax; mov rax,rax
	data := []byte{0x48, 0x89, 0xD8, 0x48, 0x89, 0xC1, 0x48, 0x89, 0xC0}
	dec := x86.NewDecoder()
	m := Build(data, nil, dec, nil)

	// Patch "nop; nop; nop" over the first 3 bytes.
	copy(data[0:3], []byte{0x90, 0x90, 0x90})
	m.EditAssembly(data, dec, nil, 0, 3)

	insts := instructionLines(m)
	want := []string{"nop", "nop", "nop", "mov rcx, rax", "mov rax, rax"}
	if len(insts) != len(want) {
		t.Fatalf("got %d instructions, want %d: %s", len(insts), len(want), m.String())
	}
	for i, w := range want {
		if got := insts[i].Text(); got != w {
			t.Fatalf("instruction %d = %q, want %q", i, got, w)
		}
	}

	if len(m.Offsets) != len(data) {
		t.Fatalf("len(Offsets) = %d, want %d", len(m.Offsets), len(data))
	}
	for b := range data {
		l := m.LineAt(b)
		if l.FileAddress() > uint64(b) || uint64(b) >= l.FileAddress()+l.Len() {
			t.Fatalf("byte %d not covered after edit (addr=%d len=%d)", b, l.FileAddress(), l.Len())
		}
	}

	// Then move to offset 1 and patch "jmp rax" (2 bytes) over the
	// second and third nops.
	copy(data[1:3], []byte{0xFF, 0xE0})
	m.EditAssembly(data, dec, nil, 1, 2)

	insts = instructionLines(m)
	want = []string{"nop", "jmp rax", "mov rcx, rax", "mov rax, rax"}
	if len(insts) != len(want) {
		t.Fatalf("got %d instructions, want %d: %s", len(insts), len(want), m.String())
	}
	for i, w := range want {
		if got := insts[i].Text(); got != w {
			t.Fatalf("instruction %d = %q, want %q", i, got, w)
		}
	}
}

func TestEditAssemblyNoOpWhenUnchanged(t *testing.T) {
	data := []byte{0x90, 0x90, 0x90}
	dec := x86.NewDecoder()
	m := Build(data, nil, dec, nil)
	before := m.String()

	m.EditAssembly(data, dec, nil, 0, 0)
	m.EditAssembly(data, dec, nil, 0, 0)

	if after := m.String(); after != before {
		t.Fatalf("EditAssembly with modifiedBytes=0 changed the model:\nbefore:\n%s\nafter:\n%s", before, after)
	}
}
