// Package nav implements the cursor/viewport model shared by the hex,
// text, and assembly panes (design §3, §4.5): mapping screen coordinates
// to file byte indices, move/jump/find operations, and the fuzzy symbol
// search the UI surfaces as find_symbol.
package nav

// BlockSize is the fixed number of bytes per hex-pane cluster (design
// §4.5: "block_size (bytes per cluster, fixed at 8)").
const BlockSize = 8

// byteColumns is the number of screen columns one byte occupies in the
// hex pane: a hi-nibble char, a lo-nibble char, and a separator space.
const byteColumns = 3

// blockColumns is one block's total column footprint, including the
// inter-block gap (design §4.5: "5*block_size+2" reserves the joint
// hex+text footprint; the byte-pane-only footprint used by the cursor
// bijection is 3*block_size+1).
const blockColumns = byteColumns*BlockSize + 1

// BlocksPerRow derives how many byte-clusters fit across a terminal of
// width w (design §4.5): "blocks_per_row = max(1, (w-22)/(5*block_size+2))".
func BlocksPerRow(width int) int {
	n := (width - 22) / (5*BlockSize + 2)
	if n < 1 {
		return 1
	}
	return n
}

// Cursor is the stored state from design §3: a screen column/row plus a
// scroll offset. Every other cursor fact (CursorPosition) is derived from
// it on demand.
type Cursor struct {
	X, Y   int
	Scroll int
}

// Position is the derived CursorPosition from design §3.
type Position struct {
	GlobalByteIndex int
	HighNibble      bool
	LocalX          int
	LocalByteIndex  int
	BlockIndex      int
	LocalBlockIndex int
	LineIndex       int
	LineByteIndex   int
}

// Resolve computes the Position a given (cursor, scroll) lands on, for a
// layout with blocksPerRow blocks across (design §4.5's byte↔cursor
// bijection).
func Resolve(c Cursor, blocksPerRow int) Position {
	if blocksPerRow < 1 {
		blocksPerRow = 1
	}
	localX := c.X % blockColumns
	highNibble := localX%byteColumns == 0
	localByte := localX / byteColumns
	localBlockIndex := c.X / blockColumns
	row := c.Scroll + c.Y
	block := localBlockIndex + row*blocksPerRow
	global := block*BlockSize + localByte

	return Position{
		GlobalByteIndex: global,
		HighNibble:      highNibble,
		LocalX:          localX,
		LocalByteIndex:  localByte,
		BlockIndex:      block,
		LocalBlockIndex: localBlockIndex,
		LineIndex:       row,
		LineByteIndex:   localBlockIndex*BlockSize + localByte,
	}
}

// PlaceAt inverts Resolve: it returns the Cursor that lands on
// globalByteIndex/highNibble for a layout with blocksPerRow blocks
// across and viewportHeight visible rows, clamping scroll so the target
// row stays in view (design §4.5: jump_to "scroll minimally so the
// target row is in view").
func PlaceAt(globalByteIndex int, highNibble bool, blocksPerRow, viewportHeight, scroll int) Cursor {
	if blocksPerRow < 1 {
		blocksPerRow = 1
	}
	if globalByteIndex < 0 {
		globalByteIndex = 0
	}
	block := globalByteIndex / BlockSize
	localByte := globalByteIndex % BlockSize
	row := block / blocksPerRow
	localBlockIndex := block % blocksPerRow

	localX := localByte * byteColumns
	if !highNibble {
		localX++
	}
	cursorX := localBlockIndex*blockColumns + localX

	if viewportHeight < 1 {
		viewportHeight = 1
	}
	if row < scroll {
		scroll = row
	} else if row >= scroll+viewportHeight {
		scroll = row - viewportHeight + 1
	}
	if scroll < 0 {
		scroll = 0
	}

	return Cursor{X: cursorX, Y: row - scroll, Scroll: scroll}
}

// forbidden reports whether localX is a column move_cursor must never
// land on: the separator column after each byte's two nibble columns, or
// the inter-block gap column (design §4.5: "Skip 'forbidden' columns").
func forbidden(localX int) bool {
	m := localX % blockColumns
	return m == blockColumns-1 || m%byteColumns == byteColumns-1
}
