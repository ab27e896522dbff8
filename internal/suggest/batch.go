package suggest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"testsmith/internal/logging"

	"golang.org/x/sync/errgroup"
)

// BatchResult pairs one file with its outcome. Err is set when the run for
// that file failed; the rest of the batch still proceeds.
type BatchResult struct {
	Path       string
	Suggestion *Suggestion
	Err        error
}

// RunBatch processes the given files with at most concurrency runs in
// flight. Per-file failures are captured in the results rather than aborting
// the batch; the returned error covers only context cancellation.
func (r *Runner) RunBatch(ctx context.Context, paths []string, concurrency int, opts Options) ([]BatchResult, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files to process")
	}
	if concurrency <= 0 {
		concurrency = 2
	}

	logging.Suggest("batch started: %d files, concurrency=%d", len(paths), concurrency)

	var mu sync.Mutex
	results := make([]BatchResult, 0, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			sug, err := r.Run(ctx, path, opts)
			if err != nil {
				logging.SuggestError("batch item %s failed: %v", path, err)
			}

			mu.Lock()
			results = append(results, BatchResult{Path: path, Suggestion: sug, Err: err})
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch aborted: %w", err)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	logging.Suggest("batch finished: %d ok, %d failed", len(results)-failed, failed)

	return results, nil
}
