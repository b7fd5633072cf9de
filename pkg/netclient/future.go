package netclient

import "context"

// Future is the pending result of an asynchronous call.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func goFuture[T any](fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.val, f.err = fn()
	}()
	return f
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Await blocks until the result is available or ctx ends. Giving up on ctx
// does not cancel the call itself; cancel the context passed to the
// async entry point for that.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, requestFailed(ctx.Err())
	}
}

// PerformAsync starts Perform on its own goroutine.
func PerformAsync[S, E any](ctx context.Context, c *Client, d Descriptor[S, E]) *Future[*Response[S]] {
	return goFuture(func() (*Response[S], error) {
		return Perform(ctx, c, d)
	})
}

// PerformRawAsync starts c.PerformRaw on its own goroutine.
func (c *Client) PerformRawAsync(ctx context.Context, req Request) *Future[*RawResponse] {
	return goFuture(func() (*RawResponse, error) {
		return c.PerformRaw(ctx, req)
	})
}
