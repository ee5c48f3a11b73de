package sync

// BatchPaths splits paths into consecutive batches whose argument file
// payload (one line per path) stays within limit bytes. Order is preserved.
// A path larger than limit forms a batch of its own; limit <= 0 means a
// single batch.
func BatchPaths(paths []string, limit int) [][]string {
	if len(paths) == 0 {
		return nil
	}
	if limit <= 0 {
		return [][]string{paths}
	}

	var batches [][]string
	var current []string
	size := 0
	for _, p := range paths {
		n := len(p) + 1
		if len(current) > 0 && size+n > limit {
			batches = append(batches, current)
			current, size = nil, 0
		}
		current = append(current, p)
		size += n
	}
	return append(batches, current)
}
