// Package batch holds the list helpers shared by repository enumeration and
// commit fetching.
package batch

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DeduplicateBy keeps the first item for each key, preserving order, and
// reports how many items were dropped.
func DeduplicateBy[T any, K comparable](items []T, key func(T) K) ([]T, int) {
	seen := make(map[K]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, it := range items {
		k := key(it)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, it)
	}
	return out, len(items) - len(out)
}

// Process runs fn over items in batches of size. Batches run one after the
// other; items inside a batch run concurrently. Results keep the input order.
// The first error cancels the remaining work of its batch and is returned.
func Process[T, R any](ctx context.Context, items []T, size int, fn func(context.Context, T) (R, error)) ([]R, error) {
	if len(items) == 0 {
		return nil, nil
	}
	if size <= 0 {
		size = len(items)
	}

	results := make([]R, len(items))
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				r, err := fn(gctx, items[i])
				if err != nil {
					return err
				}
				results[i] = r
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}
	return results, nil
}
