package patch

import (
	"testing"

	"github.com/xyproto/hexpatch/internal/asmmodel"
	x86codec "github.com/xyproto/hexpatch/internal/codec/x86"
	"github.com/xyproto/hexpatch/internal/header"
	"github.com/xyproto/hexpatch/internal/store"
)

func newPatcher(t *testing.T, data []byte) (*Patcher, *store.ByteStore) {
	t.Helper()
	dec := x86codec.NewDecoder()
	enc := x86codec.NewEncoder()
	s := store.New(data, store.DefaultHistoryLimit)
	m := asmmodel.Build(s.Bytes(), header.None(), dec, nil)
	return New(s, m, header.None(), dec, enc), s
}

func TestPatchNibbleUpdatesSingleByte(t *testing.T) {
	p, s := newPatcher(t, []byte{0x12, 0x34})
	if _, err := p.PatchNibble(0, true, 0xA); err != nil {
		t.Fatalf("PatchNibble: %v", err)
	}
	if got := s.Bytes()[0]; got != 0xA2 {
		t.Fatalf("byte 0 = 0x%x, want 0xa2", got)
	}
	if _, err := p.PatchNibble(0, false, 0xB); err != nil {
		t.Fatalf("PatchNibble: %v", err)
	}
	if got := s.Bytes()[0]; got != 0xAB {
		t.Fatalf("byte 0 = 0x%x, want 0xab", got)
	}
}

func TestPatchObserverSeesBytesBeforeCommit(t *testing.T) {
	p, s := newPatcher(t, []byte{0x90, 0x90, 0x90})
	var seen []byte
	p.Observer = func(b []byte) {
		seen = append(seen, b...)
		// Rewrite in place, as the design's plugin hook permits.
		for i := range b {
			b[i] = 0xCC
		}
	}
	if _, err := p.PatchBytes(0, []byte{0x90}, true); err != nil {
		t.Fatalf("PatchBytes: %v", err)
	}
	if len(seen) != 1 || seen[0] != 0x90 {
		t.Fatalf("observer saw %v, want [0x90]", seen)
	}
	if got := s.Bytes()[0]; got != 0xCC {
		t.Fatalf("committed byte = 0x%x, want 0xcc (observer-rewritten)", got)
	}
}

func TestPatchAssembleAndApply(t *testing.T) {
	p, s := newPatcher(t, []byte{0xC3, 0x90, 0x90})
	n, err := p.Patch(0, "nop")
	if err != nil {
		t.Fatalf("Patch: %v", err)
	}
	if n != 1 {
		t.Fatalf("Patch wrote %d bytes, want 1", n)
	}
	if got := s.Bytes()[0]; got != 0x90 {
		t.Fatalf("byte 0 = 0x%x, want 0x90", got)
	}
}

func TestPatchAssembleErrorLeavesBytesUntouched(t *testing.T) {
	p, s := newPatcher(t, []byte{0x90, 0x90, 0x90})
	orig := append([]byte(nil), s.Bytes()...)
	if _, err := p.Patch(0, "not_a_real_instruction"); err == nil {
		t.Fatal("expected an assemble error")
	}
	if string(s.Bytes()) != string(orig) {
		t.Fatalf("bytes changed after a failed assemble: %x, want %x", s.Bytes(), orig)
	}
}
