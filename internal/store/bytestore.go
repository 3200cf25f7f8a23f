// Package store implements the byte-owning, undo/redo-capable document
// model described in design §3-§4.1: ByteStore owns a contiguous byte
// sequence, tracks a dirty flag, and delegates undo/redo to a bounded
// History of equal-length Changes.
package store

import (
	"github.com/xyproto/hexpatch/internal/herr"
)

// DefaultHistoryLimit matches the teacher's habit of giving every bounded
// structure a sane, overridable default rather than leaving it unbounded.
const DefaultHistoryLimit = 1000

// ByteStore is the exclusive owner of a file's bytes plus its edit
// history. No component outside this package ever mutates the backing
// slice directly.
type ByteStore struct {
	bytes    []byte
	original []byte // snapshot at open/last-save, for dirty comparison
	dirty    bool
	history  *History
}

// New wraps data as a ByteStore. The slice is copied so the caller may
// reuse or discard its own buffer afterward.
func New(data []byte, historyLimit int) *ByteStore {
	buf := make([]byte, len(data))
	copy(buf, data)
	orig := make([]byte, len(data))
	copy(orig, data)
	return &ByteStore{
		bytes:    buf,
		original: orig,
		history:  NewHistory(historyLimit),
	}
}

// Len returns the number of bytes in the store.
func (s *ByteStore) Len() int {
	return len(s.bytes)
}

// Get returns the byte at i and true, or (0, false) if i is out of bounds.
func (s *ByteStore) Get(i int) (byte, bool) {
	if i < 0 || i >= len(s.bytes) {
		return 0, false
	}
	return s.bytes[i], true
}

// Bytes returns the current contents. Callers must not mutate the
// returned slice; it aliases the store's internal buffer.
func (s *ByteStore) Bytes() []byte {
	return s.bytes
}

// Dirty reports whether current bytes differ from the original snapshot.
func (s *ByteStore) Dirty() bool {
	return s.dirty
}

// HistoryLog returns the underlying History, for callers that need direct
// access to it (its Limit/SetLimit, or PeekUndo/PeekRedo).
func (s *ByteStore) HistoryLog() *History {
	return s.history
}

// Set writes b at index i, recording a one-byte Change. Returns
// OutOfBounds if i is out of range.
func (s *ByteStore) Set(i int, b byte) error {
	if i < 0 || i >= len(s.bytes) {
		return herr.New(herr.OutOfBounds, "Set: index %d out of bounds (len %d)", i, len(s.bytes))
	}
	old := s.bytes[i]
	if old == b {
		return nil
	}
	s.history.Push(Change{Offset: i, Old: []byte{old}, New: []byte{b}})
	s.bytes[i] = b
	s.recomputeDirty()
	return nil
}

// PushChange records and applies new at offset, after truncating new to
// min(len(new), Len()-offset) so a patch never grows the file (design
// §4.1). Returns the number of bytes actually written. If the truncated
// new is identical to what's already there, no history entry is
// recorded and 0 is returned.
func (s *ByteStore) PushChange(offset int, new []byte) (int, error) {
	if offset < 0 || offset >= len(s.bytes) {
		return 0, herr.New(herr.OutOfBounds, "PushChange: offset %d out of bounds (len %d)", offset, len(s.bytes))
	}
	max := len(s.bytes) - offset
	if len(new) > max {
		new = new[:max]
	}
	window := s.bytes[offset : offset+len(new)]
	identical := true
	for i := range new {
		if window[i] != new[i] {
			identical = false
			break
		}
	}
	if identical {
		return 0, nil
	}

	old := make([]byte, len(new))
	copy(old, window)
	newCopy := make([]byte, len(new))
	copy(newCopy, new)
	s.history.Push(Change{Offset: offset, Old: old, New: newCopy})
	copy(window, new)
	s.recomputeDirty()
	return len(new), nil
}

// Undo reverts the most recent change, if any.
func (s *ByteStore) Undo() {
	s.history.Undo(s.bytes)
	s.recomputeDirty()
}

// Redo re-applies the next change, if any.
func (s *ByteStore) Redo() {
	s.history.Redo(s.bytes)
	s.recomputeDirty()
}

// ClearHistory empties the change log and cursor, leaving bytes and dirty
// untouched (design §4.1).
func (s *ByteStore) ClearHistory() {
	s.history.Clear()
}

// MarkSaved snapshots the current bytes as the new baseline and clears
// dirty. It does not touch history.
func (s *ByteStore) MarkSaved() {
	s.original = make([]byte, len(s.bytes))
	copy(s.original, s.bytes)
	s.dirty = false
}

func (s *ByteStore) recomputeDirty() {
	if len(s.bytes) != len(s.original) {
		s.dirty = true
		return
	}
	for i := range s.bytes {
		if s.bytes[i] != s.original[i] {
			s.dirty = true
			return
		}
	}
	s.dirty = false
}
