package render

import (
	"runtime"
	"sync"
)

// parallelCells is the block-cell count above which Render splits columns
// across goroutines.
const parallelCells = 1 << 18

// parallelFor executes fn over [0, n) in contiguous chunks of at least
// minChunk, one goroutine per chunk.
func parallelFor(n, minChunk int, fn func(start, end int)) {
	workers := runtime.GOMAXPROCS(0)
	if n <= minChunk || workers <= 1 {
		fn(0, n)
		return
	}

	if n/minChunk < workers {
		workers = n / minChunk
	}
	if workers < 1 {
		workers = 1
	}

	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}

	wg.Wait()
}
