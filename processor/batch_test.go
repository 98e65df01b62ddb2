package processor

import "testing"

func TestBatchSize(t *testing.T) {
	if got := BatchSize(2000, 72); got != 27 {
		t.Errorf("BatchSize(2000, 72) = %d, want 27", got)
	}
	if got := BatchSize(2000, 2000); got != 1 {
		t.Errorf("BatchSize(2000, 2000) = %d, want 1", got)
	}
	if got := BatchSize(2000, 0); got != 0 {
		t.Errorf("BatchSize with zero count = %d, want 0", got)
	}
}

func TestChunkCoversInputInOrder(t *testing.T) {
	ids := make([]int64, 0, 61)
	for i := int64(1); i <= 61; i++ {
		ids = append(ids, i)
	}

	for _, size := range []int{1, 2, 27, 61, 100} {
		batches := Chunk(ids, size)
		var joined []int64
		for i, b := range batches {
			if len(b) == 0 {
				t.Fatalf("size %d: empty batch at index %d", size, i)
			}
			if i < len(batches)-1 && len(b) != size {
				t.Errorf("size %d: non-final batch %d has length %d", size, i, len(b))
			}
			joined = append(joined, b...)
		}
		if len(joined) != len(ids) {
			t.Fatalf("size %d: concatenation has %d ids, want %d", size, len(joined), len(ids))
		}
		for i := range ids {
			if joined[i] != ids[i] {
				t.Fatalf("size %d: concatenation diverges at %d", size, i)
			}
		}
	}
}

func TestChunkDegenerateCases(t *testing.T) {
	if got := Chunk(nil, 5); got != nil {
		t.Errorf("empty input should yield no batches, got %v", got)
	}
	if got := Chunk([]int64{1, 2}, 0); got != nil {
		t.Errorf("zero size should yield no batches, got %v", got)
	}
}
