// Package parallel はサンプル列をCPUコア数に応じて分割し並列処理する
package parallel

import (
	"runtime"
	"sync"
)

// Parallelize は items 件を runtime.NumCPU() 個以下の連続区間 [start, end) に分け、
// 各区間で fn を並列に実行する。すべての区間が終わるまでブロックする
func Parallelize(items int, fn func(start, end int)) {
	if items <= 0 {
		return
	}

	workers := runtime.NumCPU()
	if workers > items {
		workers = items
	}
	chunk := (items + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < items; start += chunk {
		end := start + chunk
		if end > items {
			end = items
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold は items が threshold を超える場合のみ並列化し、
// それ以外は呼び出し元のゴルーチンで fn(0, items) を実行する
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= 0 {
		return
	}
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}
