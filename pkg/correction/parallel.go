package correction

import "sync"

// parallelRows splits the frame rows across worker goroutines and waits
// for all of them. Because every pass joins its workers before returning,
// the writes of one pass are fully visible to the workers of the next;
// passes never interleave.
func parallelRows(height, workers int, fn func(y0, y1 int)) {
	if workers < 1 {
		workers = 1
	}
	if workers > height {
		workers = height
	}
	if height <= 0 {
		return
	}

	rowsPerWorker := (height + workers - 1) / workers

	var wg sync.WaitGroup
	for y0 := 0; y0 < height; y0 += rowsPerWorker {
		y1 := y0 + rowsPerWorker
		if y1 > height {
			y1 = height
		}
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			fn(y0, y1)
		}(y0, y1)
	}
	wg.Wait()
}
