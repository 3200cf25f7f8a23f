package nav

import "testing"

func TestResolvePlaceAtRoundTrip(t *testing.T) {
	blocksPerRow := BlocksPerRow(80)
	for _, tc := range []struct {
		global     int
		highNibble bool
	}{
		{0, true},
		{0, false},
		{7, false},
		{8, true},
		{blocksPerRow * BlockSize, true},
		{blocksPerRow*BlockSize*3 + 5, false},
	} {
		cursor := PlaceAt(tc.global, tc.highNibble, blocksPerRow, 24, 0)
		pos := Resolve(cursor, blocksPerRow)
		if pos.GlobalByteIndex != tc.global || pos.HighNibble != tc.highNibble {
			t.Fatalf("PlaceAt(%d,%v)->Resolve = (%d,%v), want (%d,%v)",
				tc.global, tc.highNibble, pos.GlobalByteIndex, pos.HighNibble, tc.global, tc.highNibble)
		}
	}
}

func TestBlocksPerRowMinimumOne(t *testing.T) {
	if got := BlocksPerRow(0); got != 1 {
		t.Fatalf("BlocksPerRow(0) = %d, want 1", got)
	}
	if got := BlocksPerRow(-100); got != 1 {
		t.Fatalf("BlocksPerRow(-100) = %d, want 1", got)
	}
}

func TestForbiddenColumns(t *testing.T) {
	// Within one block, columns 0,1 are nibble columns (high/low) for byte
	// 0, column 2 is the separator, and so on; the final column of a block
	// is the inter-block gap.
	if forbidden(0) || forbidden(1) {
		t.Fatal("nibble columns must not be forbidden")
	}
	if !forbidden(2) {
		t.Fatal("byte separator column must be forbidden")
	}
	if !forbidden(blockColumns - 1) {
		t.Fatal("inter-block gap column must be forbidden")
	}
}
