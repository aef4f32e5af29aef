package concurrent

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/zeusync/behavior/pkg/sequence"
)

// Concurrent runs action for each element of the iterator on its own
// goroutine and waits for all of them. The first error cancels the context
// passed to the other actions and is returned. A limit above zero bounds the
// number of actions running at once.
func Concurrent[T any](ctx context.Context, i *sequence.Iterator[T], limit int, action func(context.Context, T) error) error {
	group, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		group.SetLimit(limit)
	}
	for value := range i.Seq() {
		if ctx.Err() != nil {
			break
		}
		group.Go(func() error {
			return action(ctx, value)
		})
	}
	return group.Wait()
}

// ParallelMust runs action for each element on its own goroutine and waits.
func ParallelMust[T any](i *sequence.Iterator[T], action func(T)) {
	var wg sync.WaitGroup
	for value := range i.Seq() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			action(value)
		}()
	}
	wg.Wait()
}
