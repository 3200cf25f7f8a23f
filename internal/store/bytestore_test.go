package store

import "testing"

func TestSetAndGet(t *testing.T) {
	s := New([]byte{1, 2, 3}, DefaultHistoryLimit)
	if err := s.Set(1, 9); err != nil {
		t.Fatalf("Set: %v", err)
	}
	b, ok := s.Get(1)
	if !ok || b != 9 {
		t.Fatalf("Get(1) = %d, %v; want 9, true", b, ok)
	}
	if !s.Dirty() {
		t.Fatal("expected dirty after Set changed a byte")
	}
}

func TestSetOutOfBounds(t *testing.T) {
	s := New([]byte{1, 2, 3}, DefaultHistoryLimit)
	if err := s.Set(3, 9); err == nil {
		t.Fatal("expected OutOfBounds error")
	}
}

func TestSetSameValueNotDirty(t *testing.T) {
	s := New([]byte{1, 2, 3}, DefaultHistoryLimit)
	if err := s.Set(0, 1); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if s.Dirty() {
		t.Fatal("setting equal value should not mark dirty")
	}
	if s.HistoryLog().Len() != 0 {
		t.Fatal("setting equal value should not push a history entry")
	}
}

func TestUndoRedoIsIdentity(t *testing.T) {
	s := New([]byte{0x48, 0x89, 0xD8}, DefaultHistoryLimit)
	before := append([]byte(nil), s.Bytes()...)

	if _, err := s.PushChange(0, []byte{0x90, 0x90, 0x90}); err != nil {
		t.Fatalf("PushChange: %v", err)
	}
	patched := append([]byte(nil), s.Bytes()...)

	s.Undo()
	s.Redo()
	afterRoundtrip := s.Bytes()
	for i := range patched {
		if patched[i] != afterRoundtrip[i] {
			t.Fatalf("undo+redo changed bytes: got %v want %v", afterRoundtrip, patched)
		}
	}

	s.Undo()
	after := s.Bytes()
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("undo did not restore original bytes: got %v want %v", after, before)
		}
	}
}

func TestPushChangeTruncatesAtEOF(t *testing.T) {
	s := New([]byte{0, 0, 0, 0, 0}, DefaultHistoryLimit)
	n, err := s.PushChange(3, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	if err != nil {
		t.Fatalf("PushChange: %v", err)
	}
	if n != 2 {
		t.Fatalf("PushChange returned %d, want 2", n)
	}
	if s.Len() != 5 {
		t.Fatalf("file length changed: %d", s.Len())
	}
	want := []byte{0, 0, 0, 1, 2}
	got := s.Bytes()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("bytes = %v, want %v", got, want)
		}
	}
}

func TestPushChangeNoOpWhenIdentical(t *testing.T) {
	s := New([]byte{1, 2, 3}, DefaultHistoryLimit)
	n, err := s.PushChange(0, []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("PushChange: %v", err)
	}
	if n != 0 {
		t.Fatalf("PushChange returned %d, want 0", n)
	}
	if s.HistoryLog().Len() != 0 {
		t.Fatal("identical PushChange must not record history")
	}
}

func TestDirtyClearedOnSave(t *testing.T) {
	s := New([]byte{1, 2, 3}, DefaultHistoryLimit)
	s.Set(0, 9)
	if !s.Dirty() {
		t.Fatal("expected dirty")
	}
	s.MarkSaved()
	if s.Dirty() {
		t.Fatal("expected clean after MarkSaved")
	}
}

func TestDirtyAfterUndoPastSavePoint(t *testing.T) {
	s := New([]byte{1, 2, 3}, DefaultHistoryLimit)
	s.Set(0, 9)
	s.MarkSaved()
	s.Set(0, 42)
	s.Undo()
	if s.Dirty() {
		t.Fatal("undo back to the saved bytes should clear dirty")
	}
	s.Undo()
	if !s.Dirty() {
		t.Fatal("undo past the save point should leave dirty set")
	}
}

func TestHistoryLimitEvicts(t *testing.T) {
	s := New(make([]byte, 10), 2)
	s.Set(0, 1)
	s.Set(1, 2)
	s.Set(2, 3)
	if s.HistoryLog().Len() != 2 {
		t.Fatalf("history length = %d, want 2 after eviction", s.HistoryLog().Len())
	}
	// Oldest change (index 0) should no longer be undoable.
	s.Undo()
	s.Undo()
	b, _ := s.Get(0)
	if b != 1 {
		t.Fatalf("byte 0 = %d, want 1 (its change should have been evicted, not undone)", b)
	}
}

func TestClearHistoryLeavesBytes(t *testing.T) {
	s := New([]byte{1, 2, 3}, DefaultHistoryLimit)
	s.Set(0, 9)
	s.ClearHistory()
	if s.HistoryLog().Len() != 0 {
		t.Fatal("expected empty history")
	}
	b, _ := s.Get(0)
	if b != 9 {
		t.Fatal("ClearHistory must not revert bytes")
	}
	if !s.Dirty() {
		t.Fatal("ClearHistory must not touch dirty")
	}
}
