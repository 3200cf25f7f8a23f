package nav

import (
	"bytes"
	"sort"
	"strings"

	"github.com/xyproto/hexpatch/internal/header"
	"github.com/xyproto/hexpatch/internal/herr"
	"github.com/xyproto/hexpatch/internal/store"
)

// Navigator implements design §4.5: cursor motion, jumps, and find,
// consuming a ByteStore and Header to answer "what is at cursor?" and
// "where on screen?".
type Navigator struct {
	Store  *store.ByteStore
	Header *header.Header

	Cursor Cursor
	Width  int
	Height int

	lastNeedle []byte
}

// New returns a Navigator over s, with the cursor zeroed (design §3
// lifecycle: "The cursor is zeroed on open").
func New(s *store.ByteStore, hdr *header.Header, width, height int) *Navigator {
	return &Navigator{Store: s, Header: hdr, Width: width, Height: height}
}

// BlocksPerRow derives the current layout's blocks-per-row from Width.
func (n *Navigator) BlocksPerRow() int {
	return BlocksPerRow(n.Width)
}

// Position returns the CursorPosition the current Cursor resolves to.
func (n *Navigator) Position() Position {
	return Resolve(n.Cursor, n.BlocksPerRow())
}

// lastRow returns the index of the file's final occupied screen row.
func (n *Navigator) lastRow() int {
	length := n.Store.Len()
	if length == 0 {
		return 0
	}
	blocksPerRow := n.BlocksPerRow()
	lastBlock := (length - 1) / BlockSize
	return lastBlock / blocksPerRow
}

// lastValidByteOnRow returns the last in-bounds global byte index on the
// row the cursor is on, or -1 if the row is entirely past EOF.
func (n *Navigator) lastValidByteOnRow(row int) int {
	length := n.Store.Len()
	if length == 0 {
		return -1
	}
	blocksPerRow := n.BlocksPerRow()
	rowFirstByte := row * blocksPerRow * BlockSize
	rowLastByte := rowFirstByte + blocksPerRow*BlockSize - 1
	if rowLastByte >= length {
		rowLastByte = length - 1
	}
	if rowLastByte < rowFirstByte {
		return -1
	}
	return rowLastByte
}

// MoveCursor implements design §4.5's move_cursor: it advances the
// cursor by (dx, dy) screen steps, skipping forbidden columns, wrapping
// at row boundaries, and clamping to the last partial row so the cursor
// never lands on an absent byte.
func (n *Navigator) MoveCursor(dx, dy int) {
	if dy != 0 {
		n.moveVertical(dy)
		return
	}
	n.moveHorizontal(dx)
}

func (n *Navigator) moveHorizontal(dx int) {
	if dx == 0 {
		return
	}
	blocksPerRow := n.BlocksPerRow()
	rowWidth := blocksPerRow * blockColumns

	x := n.Cursor.X + dx
	for forbidden(x) {
		x += dx
	}

	if x < 0 {
		n.moveVertical(-1)
		n.Cursor.X = n.lastColumnOnRow(n.Cursor.Scroll + n.Cursor.Y)
		return
	}
	if x >= rowWidth {
		n.Cursor.X = 0
		n.moveVertical(1)
		return
	}
	n.Cursor.X = x
	n.clampToData()
}

func (n *Navigator) moveVertical(dy int) {
	row := n.Cursor.Scroll + n.Cursor.Y + dy
	if row < 0 {
		row = 0
	}
	if last := n.lastRow(); row > last {
		row = last
	}
	if row < n.Cursor.Scroll {
		n.Cursor.Scroll = row
	} else if n.Height > 0 && row >= n.Cursor.Scroll+n.Height {
		n.Cursor.Scroll = row - n.Height + 1
	}
	n.Cursor.Y = row - n.Cursor.Scroll
	n.clampToData()
}

// clampToData implements "Never leave the data: on the last partial row,
// clamp cursor_x to the last valid byte column."
func (n *Navigator) clampToData() {
	row := n.Cursor.Scroll + n.Cursor.Y
	last := n.lastColumnOnRow(row)
	if n.Cursor.X > last {
		n.Cursor.X = last
	}
	if n.Cursor.X < 0 {
		n.Cursor.X = 0
	}
}

func (n *Navigator) lastColumnOnRow(row int) int {
	lastByte := n.lastValidByteOnRow(row)
	if lastByte < 0 {
		return 0
	}
	blocksPerRow := n.BlocksPerRow()
	rowFirstByte := row * blocksPerRow * BlockSize
	localByte := lastByte - rowFirstByte
	localBlock := localByte / BlockSize
	byteInBlock := localByte % BlockSize
	return localBlock*blockColumns + byteInBlock*byteColumns + 1 // low-nibble column
}

// JumpTo implements design §4.5's jump_to: addr is translated from
// virtual to physical first when isVirtual, clamped into [0, N), and the
// cursor is placed at the target byte's low nibble with minimal
// scrolling.
func (n *Navigator) JumpTo(addr uint64, isVirtual bool) error {
	target := addr
	if isVirtual {
		phys, ok := n.Header.VirtualToPhysical(addr)
		if !ok {
			return herr.New(herr.UnknownVirtualAddress, "no section covers virtual address 0x%x", addr)
		}
		target = phys
	}
	length := n.Store.Len()
	idx := int(target)
	if length == 0 {
		idx = 0
	} else if idx >= length {
		idx = length - 1
	} else if idx < 0 {
		idx = 0
	}
	n.Cursor = PlaceAt(idx, false, n.BlocksPerRow(), n.Height, n.Cursor.Scroll)
	return nil
}

// FindText implements design §4.5's find_text: a linear, wrap-once
// substring search that resumes after the current match when the same
// needle is searched again from a hit.
func (n *Navigator) FindText(needle []byte) bool {
	if len(needle) == 0 {
		return false
	}
	data := n.Store.Bytes()
	start := n.Position().GlobalByteIndex
	if bytes.Equal(needle, n.lastNeedle) && n.cursorOnMatch(needle) {
		start += len(needle)
	}
	n.lastNeedle = append([]byte(nil), needle...)

	if idx := indexFrom(data, needle, start); idx >= 0 {
		n.JumpTo(uint64(idx), false)
		return true
	}
	// Wrap once: search the prefix up to start+len(data) (design: "the
	// search wraps once (ends at cursor + N)").
	if idx := indexFrom(data, needle, 0); idx >= 0 && idx < start {
		n.JumpTo(uint64(idx), false)
		return true
	}
	return false
}

func (n *Navigator) cursorOnMatch(needle []byte) bool {
	pos := n.Position().GlobalByteIndex
	data := n.Store.Bytes()
	if pos+len(needle) > len(data) {
		return false
	}
	return bytes.Equal(data[pos:pos+len(needle)], needle)
}

func indexFrom(data, needle []byte, start int) int {
	if start < 0 || start >= len(data) {
		return -1
	}
	rel := bytes.Index(data[start:], needle)
	if rel < 0 {
		return -1
	}
	return start + rel
}

// SymbolMatch is one scored find_symbol candidate.
type SymbolMatch struct {
	Name    string
	Address uint64
	Score   int
}

// FindSymbol implements design §4.5's find_symbol: fuzzy-match filter
// against every known symbol name, returning matches sorted by
// descending score (glossary: "Fuzzy score").
func (n *Navigator) FindSymbol(filter string) []SymbolMatch {
	if n.Header == nil || !n.Header.Parsed || n.Header.Generic.Symbols == nil {
		return nil
	}
	var out []SymbolMatch
	for _, name := range n.Header.Generic.Symbols.Names() {
		score := FuzzyScore(filter, name)
		if score <= 0 && filter != "" {
			continue
		}
		addr, _ := n.Header.Generic.Symbols.AddressOf(name)
		out = append(out, SymbolMatch{Name: name, Address: addr, Score: score})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// JumpToSymbol resolves name's virtual address and jumps there
// (design §4.5: "on selection, jump to the symbol's virtual address").
func (n *Navigator) JumpToSymbol(name string) error {
	addr, ok := n.Header.SymbolToAddress(name)
	if !ok {
		return herr.New(herr.FuzzyMissing, "no symbol named %q", name)
	}
	return n.JumpTo(addr, true)
}

// FuzzyScore implements the glossary's "Fuzzy score": walk needle and
// haystack in lockstep, +1 per needle character matched in order, -1 per
// unmatched needle character.
func FuzzyScore(needle, haystack string) int {
	n := []byte(strings.ToLower(needle))
	h := []byte(strings.ToLower(haystack))
	score := 0
	hi := 0
	for _, nc := range n {
		found := false
		for hi < len(h) {
			hc := h[hi]
			hi++
			if nc == hc {
				found = true
				break
			}
		}
		if found {
			score++
		} else {
			score--
		}
	}
	return score
}
