package hexpatch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xyproto/hexpatch/internal/asmmodel"
	"github.com/xyproto/hexpatch/internal/codec"
	x86codec "github.com/xyproto/hexpatch/internal/codec/x86"
	"github.com/xyproto/hexpatch/internal/header"
	"github.com/xyproto/hexpatch/internal/vfs"
)

func newTestSession(t *testing.T) (*Session, string) {
	t.Helper()
	dir := t.TempDir()
	fs, err := vfs.NewLocal()
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	if err := fs.Cd(dir); err != nil {
		t.Fatalf("Cd: %v", err)
	}
	registry := codec.NewRegistry()
	registry.Register(header.ArchX86_64, x86codec.NewDecoder(), x86codec.NewEncoder())
	return New(fs, registry, 1000, 80, 24), dir
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

// Scenario 1: basic edit/undo (spec §8).
func TestSessionBasicEditUndo(t *testing.T) {
	sess, dir := newTestSession(t)
	path := writeFile(t, dir, "a.bin", []byte{0x48, 0x89, 0xD8})
	if err := sess.Open(filepath.Base(path)); err != nil {
		t.Fatalf("Open: %v", err)
	}

	sess.Nav.JumpTo(0, false)
	sess.Patch("nop; nop; nop")

	if got := sess.Store.Bytes(); string(got) != string([]byte{0x90, 0x90, 0x90}) {
		t.Fatalf("bytes after patch = % x, want 90 90 90", got)
	}
	insts := instructionTexts(sess.Model)
	want := []string{"nop", "nop", "nop"}
	if !equalStrings(insts, want) {
		t.Fatalf("lines after patch = %v, want %v", insts, want)
	}

	sess.Undo()
	if got := sess.Store.Bytes(); string(got) != string([]byte{0x48, 0x89, 0xD8}) {
		t.Fatalf("bytes after undo = % x, want 48 89 d8", got)
	}
	insts = instructionTexts(sess.Model)
	want = []string{"mov rax, rbx"}
	if !equalStrings(insts, want) {
		t.Fatalf("lines after undo = %v, want %v", insts, want)
	}
}

// Regression: PatchNibble can write mid-instruction (offset != the
// instruction's file_address), and Undo must still resolve EditAssembly's
// fromByte from the instruction boundary, not the raw change offset, or
// the model's Offsets/Lines invariant breaks for bytes before the write
// (design §4.3, §8 invariant 2).
func TestSessionUndoAfterMidInstructionNibblePatch(t *testing.T) {
	sess, dir := newTestSession(t)
	// nop; mov rax, rbx — the mov spans bytes 1-3, so offset 2 sits in
	// the middle of it, not at its file_address.
	path := writeFile(t, dir, "f.bin", []byte{0x90, 0x48, 0x89, 0xD8})
	if err := sess.Open(filepath.Base(path)); err != nil {
		t.Fatalf("Open: %v", err)
	}

	sess.Nav.JumpTo(2, false)
	sess.PatchNibble(true, 0xF)

	sess.Undo()

	if got := sess.Store.Bytes(); string(got) != string([]byte{0x90, 0x48, 0x89, 0xD8}) {
		t.Fatalf("bytes after undo = % x, want 90 48 89 d8", got)
	}
	assertOffsetsCoverLines(t, sess.Model)

	sess.Redo()
	assertOffsetsCoverLines(t, sess.Model)
}

func assertOffsetsCoverLines(t *testing.T, m *asmmodel.Model) {
	t.Helper()
	for b, idx := range m.Offsets {
		if idx < 0 || idx >= len(m.Lines) {
			t.Fatalf("Offsets[%d] = %d, out of range of Lines (len %d)", b, idx, len(m.Lines))
		}
		l := m.Lines[idx]
		if l.FileAddress() > uint64(b) || uint64(b) >= l.FileAddress()+l.Len() {
			t.Fatalf("byte %d not covered by its line (addr=%d len=%d)", b, l.FileAddress(), l.Len())
		}
	}
}

// Scenario 2: truncation — a 5-byte file given 10 bytes at offset 3 via
// PushChange only ever writes bytes 3-4 (spec §8).
func TestSessionPatchTruncatesAtEOF(t *testing.T) {
	sess, dir := newTestSession(t)
	path := writeFile(t, dir, "b.bin", []byte{1, 2, 3, 4, 5})
	if err := sess.Open(filepath.Base(path)); err != nil {
		t.Fatalf("Open: %v", err)
	}

	n, err := sess.Store.PushChange(3, []byte{0x90, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90})
	if err != nil {
		t.Fatalf("PushChange: %v", err)
	}
	if n != 2 {
		t.Fatalf("PushChange returned %d, want 2", n)
	}
	if sess.Store.Len() != 5 {
		t.Fatalf("file length changed: %d, want 5", sess.Store.Len())
	}
	want := []byte{1, 2, 3, 0x90, 0x90}
	if string(sess.Store.Bytes()) != string(want) {
		t.Fatalf("bytes = % x, want % x", sess.Store.Bytes(), want)
	}
}

// Scenario 4: invalid bytes decode as .byte (spec §8).
func TestSessionInvalidBytesBecomeDotByte(t *testing.T) {
	sess, dir := newTestSession(t)
	path := writeFile(t, dir, "c.bin", []byte{0x06, 0x0E, 0x07})
	if err := sess.Open(filepath.Base(path)); err != nil {
		t.Fatalf("Open: %v", err)
	}
	for _, l := range sess.Model.Lines {
		if l.Kind == asmmodel.KindInstruction && l.Mnemonic != ".byte" {
			t.Fatalf("mnemonic = %q, want .byte", l.Mnemonic)
		}
	}
}

// Scenario 5: virtual-address jump (spec §8).
func TestSessionVirtualJump(t *testing.T) {
	sess, dir := newTestSession(t)
	data := make([]byte, 0x1200)
	path := writeFile(t, dir, "d.bin", data)

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	hdr := &header.Header{Parsed: true, Generic: header.GenericHeader{
		Architecture: header.ArchX86_64,
		Bitness:      64,
		Sections: []header.Section{
			{Name: ".text", VirtualAddress: 0x400000, FileOffset: 0x1000, Size: 0x200},
		},
		Symbols: header.NewSymbolTable(),
	}}
	sess.OpenBytes(path, raw, hdr)

	if err := sess.Jump("v0x400010"); err != nil {
		t.Fatalf("Jump: %v", err)
	}
	if got := sess.Nav.Position().GlobalByteIndex; got != 0x1010 {
		t.Fatalf("global byte index = 0x%x, want 0x1010", got)
	}

	if err := sess.Jump("v0x500000"); err == nil {
		t.Fatal("expected UnknownVirtualAddress error, got nil")
	}
}

// Scenario 6: text search wrap (spec §8).
func TestSessionFindTextWrap(t *testing.T) {
	sess, dir := newTestSession(t)
	data := []byte("hello world hello")[:16]
	path := writeFile(t, dir, "e.bin", data)
	if err := sess.Open(filepath.Base(path)); err != nil {
		t.Fatalf("Open: %v", err)
	}

	sess.Nav.JumpTo(12, false)
	if !sess.Find("hello") {
		t.Fatal("expected a match")
	}
	if got := sess.Nav.Position().GlobalByteIndex; got != 0 {
		t.Fatalf("after wrap, global byte index = %d, want 0", got)
	}
	if !sess.Find("hello") {
		t.Fatal("expected a second match")
	}
	if got := sess.Nav.Position().GlobalByteIndex; got != 12 {
		t.Fatalf("second search, global byte index = %d, want 12", got)
	}
}

func instructionTexts(m *asmmodel.Model) []string {
	var out []string
	for _, l := range m.Lines {
		if l.Kind == asmmodel.KindInstruction {
			out = append(out, l.Text())
		}
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
