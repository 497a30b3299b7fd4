package fgdbfile

import "testing"

func TestBlockMapRankAndHasBlock(t *testing.T) {
	// blocks 0,2,3 set out of 5; bit i of byte 0 is block i.
	raw := []byte{0b00001101}
	bm := NewBlockMap(raw, 5)

	if bm.NumSetBlocks() != 3 {
		t.Fatalf("NumSetBlocks = %d, want 3", bm.NumSetBlocks())
	}

	cases := []struct {
		block    int
		hasBlock bool
		rank     int
	}{
		{0, true, 0},
		{1, false, 1},
		{2, true, 1},
		{3, true, 2},
		{4, false, 3},
	}
	for _, c := range cases {
		if got := bm.HasBlock(c.block); got != c.hasBlock {
			t.Errorf("HasBlock(%d) = %v, want %v", c.block, got, c.hasBlock)
		}
		if got := bm.Rank(c.block); got != c.rank {
			t.Errorf("Rank(%d) = %d, want %d", c.block, got, c.rank)
		}
	}
}

func TestBlockMapNilIsDense(t *testing.T) {
	var bm *BlockMap
	if bm.NumSetBlocks() != 0 {
		t.Fatalf("nil BlockMap.NumSetBlocks() = %d, want 0", bm.NumSetBlocks())
	}
	if bm.Rank(5) != 5 {
		t.Fatalf("nil BlockMap.Rank(5) = %d, want 5 (identity)", bm.Rank(5))
	}
}

func TestPopCount(t *testing.T) {
	if got := PopCount([]byte{0xff, 0x0f, 0x00}); got != 12 {
		t.Fatalf("PopCount = %d, want 12", got)
	}
}
