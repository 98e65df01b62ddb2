package processor

// BatchSize returns how many product ids fit into a single archive request
// given the server-side payload limit: floor(limit / count) snapshots per id.
func BatchSize(limit, count int) int {
	if count <= 0 {
		return 0
	}
	return limit / count
}

// Chunk splits ids into consecutive, non-overlapping batches of the given
// size, preserving order. The final batch may be shorter. A degenerate size
// or empty input yields no batches.
func Chunk(ids []int64, size int) [][]int64 {
	if size <= 0 || len(ids) == 0 {
		return nil
	}
	batches := make([][]int64, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, ids[start:end])
	}
	return batches
}
