package shop

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// sharedCall runs fn once per key for all concurrent callers. fn receives ctx's values without
// its cancellation, so the backend call outlives the request that started it. Each caller stops
// waiting when its own ctx is done.
func sharedCall(ctx context.Context, group *singleflight.Group, key string, fn func(context.Context) (any, error)) (any, error) {
	detached := context.WithoutCancel(ctx)
	ch := group.DoChan(key, func() (any, error) {
		return fn(detached)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
