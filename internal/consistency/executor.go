package consistency

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dmagro/eth-console/internal/client"
)

// Result wraps one library's answer.
type Result[T any] struct {
	Library string
	Index   int
	Value   T
	Err     error
}

// ExecuteAll runs fn concurrently for each facade and collects results in
// facade order. It never fails fast: every facade is tried and its error is
// kept in its Result.
func ExecuteAll[T any](
	ctx context.Context,
	facades []*client.Facade,
	fn func(ctx context.Context, f *client.Facade) (T, error),
) []Result[T] {
	results := make([]Result[T], len(facades))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range facades {
		g.Go(func() error {
			val, err := fn(gctx, f)
			mu.Lock()
			results[i] = Result[T]{Library: f.Name(), Index: i, Value: val, Err: err}
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return results
}
