package store

// Change records one reversible mutation: writing new at offset, where
// len(old) == len(new) always holds. That invariant is what guarantees a
// file's length never changes through the undo/redo path (design §3).
type Change struct {
	Offset int
	Old    []byte
	New    []byte
}

// apply writes c.New at c.Offset into b.
func (c Change) apply(b []byte) {
	copy(b[c.Offset:c.Offset+len(c.New)], c.New)
}

// revert writes c.Old at c.Offset into b.
func (c Change) revert(b []byte) {
	copy(b[c.Offset:c.Offset+len(c.Old)], c.Old)
}
