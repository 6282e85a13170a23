package batch

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultChunkSize = 5
	DefaultDelay     = 2 * time.Second
)

// Result pairs one item's output with its error. A failed item never cancels
// its siblings; the error is carried here instead.
type Result[Out any] struct {
	Value Out
	Err   error
}

// MapFunc produces the output for a single item.
type MapFunc[In, Out any] func(ctx context.Context, item In) (Out, error)

// AfterChunk runs at each chunk barrier, after every item of the chunk has
// resolved and before the inter-chunk delay. Returning false stops the run
// cooperatively; returning an error aborts it.
type AfterChunk[In, Out any] func(ctx context.Context, items []In, results []Result[Out]) (bool, error)

// Options tunes the chunked map.
type Options struct {
	ChunkSize int
	Delay     time.Duration
}

func (o Options) normalized() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.Delay < 0 {
		o.Delay = DefaultDelay
	}
	return o
}

// Map runs fn over items in fixed-size chunks. Items within a chunk run
// concurrently and the next chunk starts only after every item of the
// current one has resolved: a hard barrier, not a sliding window. The
// aggregate result list grows by whole chunks, preserving input order within
// each chunk. Between chunks Map sleeps for the configured delay to respect
// upstream rate limits.
//
// Map returns the results accumulated so far, whether the run was stopped by
// the AfterChunk callback, and any abort error (context cancellation or an
// AfterChunk failure).
func Map[In, Out any](ctx context.Context, items []In, opts Options, fn MapFunc[In, Out], after AfterChunk[In, Out]) ([]Result[Out], bool, error) {
	opts = opts.normalized()
	results := make([]Result[Out], 0, len(items))

	for start := 0; start < len(items); start += opts.ChunkSize {
		if err := ctx.Err(); err != nil {
			return results, false, err
		}
		end := start + opts.ChunkSize
		if end > len(items) {
			end = len(items)
		}
		chunk := items[start:end]

		chunkResults := make([]Result[Out], len(chunk))
		var wg sync.WaitGroup
		for i, item := range chunk {
			wg.Add(1)
			go func(i int, item In) {
				defer wg.Done()
				out, err := fn(ctx, item)
				chunkResults[i] = Result[Out]{Value: out, Err: err}
			}(i, item)
		}
		wg.Wait()

		results = append(results, chunkResults...)

		if after != nil {
			cont, err := after(ctx, chunk, chunkResults)
			if err != nil {
				return results, false, err
			}
			if !cont {
				return results, true, nil
			}
		}

		if end < len(items) && opts.Delay > 0 {
			if err := sleep(ctx, opts.Delay); err != nil {
				return results, false, err
			}
		}
	}
	return results, false, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
