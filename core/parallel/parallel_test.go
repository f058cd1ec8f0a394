package parallel

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestParallelizeCoversEveryIndexOnce(t *testing.T) {
	for _, items := range []int{1, 2, 7, 1000, 12345} {
		seen := make([]int32, items)
		Parallelize(items, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&seen[i], 1)
			}
		})
		for i, c := range seen {
			if c != 1 {
				t.Fatalf("items=%d: index %d visited %d times", items, i, c)
			}
		}
	}
}

func TestParallelizeZeroItems(t *testing.T) {
	called := false
	Parallelize(0, func(start, end int) { called = true })
	ParallelizeWithThreshold(0, 10, func(start, end int) { called = true })
	if called {
		t.Error("fn must not be called for zero items")
	}
}

func TestParallelizeWithThresholdSequential(t *testing.T) {
	var mu sync.Mutex
	var ranges [][2]int
	ParallelizeWithThreshold(50, 100, func(start, end int) {
		mu.Lock()
		ranges = append(ranges, [2]int{start, end})
		mu.Unlock()
	})
	if len(ranges) != 1 || ranges[0] != [2]int{0, 50} {
		t.Errorf("expected a single [0,50) range, got %v", ranges)
	}
}

func TestParallelizeWithThresholdParallel(t *testing.T) {
	var total int64
	ParallelizeWithThreshold(5000, 100, func(start, end int) {
		atomic.AddInt64(&total, int64(end-start))
	})
	if total != 5000 {
		t.Errorf("total = %d, want 5000", total)
	}
}
