package weather

import "context"

// Result is the outcome of one asynchronous lookup.
type Result struct {
	Record Record
	Err    error
}

// Future delivers exactly one Result. Done yields the result once and is
// then closed.
type Future struct {
	done   chan Result
	cancel context.CancelFunc
}

// Go runs fn in its own goroutine and returns a Future for its result.
// Cancelling the future cancels the context passed to fn.
func Go(ctx context.Context, fn func(context.Context) (Record, error)) *Future {
	ctx, cancel := context.WithCancel(ctx)
	f := &Future{
		done:   make(chan Result, 1),
		cancel: cancel,
	}

	go func() {
		defer cancel()
		rec, err := fn(ctx)
		f.done <- Result{Record: rec, Err: err}
		close(f.done)
	}()

	return f
}

// Done returns the channel the single result is delivered on.
func (f *Future) Done() <-chan Result {
	return f.done
}

// Cancel abandons the lookup. A result is still delivered, usually carrying
// the cancellation error.
func (f *Future) Cancel() {
	f.cancel()
}

// Wait blocks until the result is available or ctx is done.
func (f *Future) Wait(ctx context.Context) (Record, error) {
	select {
	case res := <-f.done:
		return res.Record, res.Err
	case <-ctx.Done():
		return Record{}, ctx.Err()
	}
}
