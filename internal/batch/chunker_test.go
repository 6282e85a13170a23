package batch

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"
)

func TestMapChunkBarrier(t *testing.T) {
	t.Parallel()
	const (
		chunkSize = 5
		total     = 13
	)
	items := make([]int, total)
	for i := range items {
		items[i] = i
	}

	var mu sync.Mutex
	completed := make(map[int]bool, total)

	fn := func(ctx context.Context, item int) (int, error) {
		mu.Lock()
		for j := 0; j < (item/chunkSize)*chunkSize; j++ {
			if !completed[j] {
				mu.Unlock()
				t.Errorf("item %d started before item %d finished", item, j)
				return item, nil
			}
		}
		mu.Unlock()

		// Stagger latencies so a sliding window would overlap chunks.
		time.Sleep(time.Duration(item%chunkSize) * time.Millisecond)

		mu.Lock()
		completed[item] = true
		mu.Unlock()
		return item * 2, nil
	}

	results, stopped, err := Map(context.Background(), items, Options{ChunkSize: chunkSize, Delay: 0}, fn, nil)
	if err != nil {
		t.Fatalf("Map returned error: %v", err)
	}
	if stopped {
		t.Fatal("Map reported stopped without an AfterChunk callback")
	}
	if len(results) != total {
		t.Fatalf("len(results) = %d, want %d", len(results), total)
	}
	for i, res := range results {
		if res.Value != i*2 {
			t.Fatalf("results[%d] = %d, want %d", i, res.Value, i*2)
		}
	}
}

func TestMapAppendsWholeChunksInInputOrder(t *testing.T) {
	t.Parallel()
	items := []string{"a", "b", "c", "d", "e", "f", "g"}

	var chunkLens []int
	after := func(ctx context.Context, chunk []string, results []Result[string]) (bool, error) {
		chunkLens = append(chunkLens, len(results))
		for i, res := range results {
			if res.Value != chunk[i] {
				t.Errorf("chunk result %d = %q, want %q", i, res.Value, chunk[i])
			}
		}
		return true, nil
	}

	fn := func(ctx context.Context, item string) (string, error) {
		// Reverse-order latency inside the chunk.
		time.Sleep(time.Duration(5-len(item)) * time.Millisecond)
		return item, nil
	}

	results, _, err := Map(context.Background(), items, Options{ChunkSize: 3, Delay: 0}, fn, after)
	if err != nil {
		t.Fatalf("Map returned error: %v", err)
	}
	wantLens := []int{3, 3, 1}
	if len(chunkLens) != len(wantLens) {
		t.Fatalf("chunk count = %d, want %d", len(chunkLens), len(wantLens))
	}
	for i, n := range wantLens {
		if chunkLens[i] != n {
			t.Fatalf("chunk %d size = %d, want %d", i, chunkLens[i], n)
		}
	}
	for i, res := range results {
		if res.Value != items[i] {
			t.Fatalf("results[%d] = %q, want %q", i, res.Value, items[i])
		}
	}
}

func TestMapAfterChunkStopsRun(t *testing.T) {
	t.Parallel()
	items := []int{0, 1, 2, 3, 4, 5}
	calls := 0
	after := func(ctx context.Context, chunk []int, results []Result[int]) (bool, error) {
		calls++
		return false, nil
	}
	results, stopped, err := Map(context.Background(), items, Options{ChunkSize: 2, Delay: 0}, identity, after)
	if err != nil {
		t.Fatalf("Map returned error: %v", err)
	}
	if !stopped {
		t.Fatal("stopped = false, want true")
	}
	if calls != 1 {
		t.Fatalf("AfterChunk calls = %d, want 1", calls)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
}

func TestMapAfterChunkErrorAborts(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	after := func(ctx context.Context, chunk []int, results []Result[int]) (bool, error) {
		return true, boom
	}
	results, stopped, err := Map(context.Background(), []int{0, 1, 2}, Options{ChunkSize: 2, Delay: 0}, identity, after)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if stopped {
		t.Fatal("stopped = true on abort")
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
}

func TestMapObservesCancelBetweenChunks(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	after := func(ctx context.Context, chunk []int, results []Result[int]) (bool, error) {
		cancel()
		return true, nil
	}
	results, _, err := Map(ctx, []int{0, 1, 2, 3}, Options{ChunkSize: 2, Delay: 0}, identity, after)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2: the in-flight chunk must finish", len(results))
	}
}

func TestMapCarriesItemErrors(t *testing.T) {
	t.Parallel()
	fn := func(ctx context.Context, item int) (int, error) {
		if item%2 == 1 {
			return 0, errors.New("item " + strconv.Itoa(item))
		}
		return item, nil
	}
	results, _, err := Map(context.Background(), []int{0, 1, 2, 3}, Options{ChunkSize: 4, Delay: 0}, fn, nil)
	if err != nil {
		t.Fatalf("Map returned error: %v", err)
	}
	for i, res := range results {
		wantErr := i%2 == 1
		if (res.Err != nil) != wantErr {
			t.Fatalf("results[%d].Err = %v, want error: %t", i, res.Err, wantErr)
		}
	}
}

func TestMapDelaysBetweenChunksOnly(t *testing.T) {
	t.Parallel()
	const delay = 30 * time.Millisecond
	start := time.Now()
	_, _, err := Map(context.Background(), []int{0, 1, 2, 3}, Options{ChunkSize: 2, Delay: delay}, identity, nil)
	if err != nil {
		t.Fatalf("Map returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < delay {
		t.Fatalf("elapsed = %v, want at least %v", elapsed, delay)
	}

	// A single chunk has no boundary to wait at.
	start = time.Now()
	_, _, err = Map(context.Background(), []int{0, 1}, Options{ChunkSize: 2, Delay: delay}, identity, nil)
	if err != nil {
		t.Fatalf("Map returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed >= delay {
		t.Fatalf("single chunk took %v, should not include the inter-chunk delay", elapsed)
	}
}

func identity(ctx context.Context, item int) (int, error) {
	return item, nil
}
