package store

// History is a bounded linear log of Changes with a cursor, per design
// §3-§4.1. Push truncates any redo tail, appends, and advances current to
// len(changes). Undo/redo move current and apply/revert the touched
// Change. A nonzero limit evicts the oldest entry once exceeded; limit 0
// means unbounded.
type History struct {
	changes []Change
	current int
	limit   int
}

// NewHistory returns an empty History. limit <= 0 means unbounded.
func NewHistory(limit int) *History {
	if limit < 0 {
		limit = 0
	}
	return &History{limit: limit}
}

// Limit returns the configured history limit (0 means unbounded).
func (h *History) Limit() int {
	return h.limit
}

// SetLimit changes the limit, trimming the oldest entries immediately if
// the log already exceeds the new bound.
func (h *History) SetLimit(limit int) {
	if limit < 0 {
		limit = 0
	}
	h.limit = limit
	h.evictOverflow()
}

// Len returns the number of recorded changes.
func (h *History) Len() int {
	return len(h.changes)
}

// Current returns the cursor position: changes[:current] have been
// applied, changes[current:] are available to redo.
func (h *History) Current() int {
	return h.current
}

// Push truncates any entries past the cursor, appends change, and moves
// the cursor past it. It does not apply the change to any bytes; the
// caller (ByteStore) already did that before recording it here.
func (h *History) Push(c Change) {
	h.changes = append(h.changes[:h.current], c)
	h.current = len(h.changes)
	h.evictOverflow()
}

func (h *History) evictOverflow() {
	if h.limit <= 0 || len(h.changes) <= h.limit {
		return
	}
	drop := len(h.changes) - h.limit
	h.changes = h.changes[drop:]
	h.current -= drop
	if h.current < 0 {
		h.current = 0
	}
}

// CanUndo reports whether Undo has anything to revert.
func (h *History) CanUndo() bool {
	return h.current > 0
}

// CanRedo reports whether Redo has anything to (re)apply.
func (h *History) CanRedo() bool {
	return h.current < len(h.changes)
}

// PeekUndo returns the Change Undo would revert, if any, without
// applying it. Callers (Session's Undo/Redo, which re-disassemble
// afterwards) use this to learn which byte range an upcoming undo/redo
// touches.
func (h *History) PeekUndo() (Change, bool) {
	if !h.CanUndo() {
		return Change{}, false
	}
	return h.changes[h.current-1], true
}

// PeekRedo returns the Change Redo would apply, if any, without applying
// it.
func (h *History) PeekRedo() (Change, bool) {
	if !h.CanRedo() {
		return Change{}, false
	}
	return h.changes[h.current], true
}

// Undo reverts changes[current-1] into b and decrements current. It is a
// no-op if CanUndo is false.
func (h *History) Undo(b []byte) {
	if !h.CanUndo() {
		return
	}
	h.current--
	h.changes[h.current].revert(b)
}

// Redo applies changes[current] into b and increments current. It is a
// no-op if CanRedo is false.
func (h *History) Redo(b []byte) {
	if !h.CanRedo() {
		return
	}
	h.changes[h.current].apply(b)
	h.current++
}

// Clear empties the log and resets the cursor. Bytes are untouched; the
// caller decides what that means for the dirty flag.
func (h *History) Clear() {
	h.changes = nil
	h.current = 0
}
