package extract

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ForEach calls fn for every index in [0, n) with at most limit calls in flight.
// fn writes its result into a caller-owned slice at index i, so output order is input
// order. fn cannot fail; a per-item error must be folded into that item's result, so
// one item never cancels its siblings. ForEach returns ctx.Err() if ctx was cancelled.
func ForEach(ctx context.Context, n, limit int, fn func(ctx context.Context, i int)) error {
	if n == 0 {
		return ctx.Err()
	}
	if limit <= 0 {
		limit = 1
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			fn(ctx, i)
			return nil
		})
	}
	_ = g.Wait()
	return ctx.Err()
}
