// Package debounce runs only the latest of a burst of triggers, cancelling
// both pending and in-flight work for older ones.
package debounce

import (
	"context"
	"sync"
	"time"
)

// Debouncer delays fn until no new Trigger arrives for the delay. Each
// trigger gets its own context, cancelled as soon as a newer trigger arrives.
type Debouncer[T any] struct {
	delay time.Duration
	fn    func(ctx context.Context, v T)

	mu     sync.Mutex
	timer  *time.Timer
	cancel context.CancelFunc
	gen    uint64
	wg     sync.WaitGroup
	closed bool
}

// New creates a Debouncer calling fn with the latest value.
func New[T any](delay time.Duration, fn func(ctx context.Context, v T)) *Debouncer[T] {
	return &Debouncer[T]{delay: delay, fn: fn}
}

// Trigger schedules fn(v), superseding any earlier trigger.
func (d *Debouncer[T]) Trigger(parent context.Context, v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.stopLocked()

	ctx, cancel := context.WithCancel(parent)
	d.cancel = cancel
	d.gen++
	gen := d.gen

	d.wg.Add(1)
	d.timer = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()
		d.mu.Lock()
		current := gen == d.gen && !d.closed
		d.mu.Unlock()
		if !current || ctx.Err() != nil {
			return
		}
		d.fn(ctx, v)
	})
}

// Deliver runs f only if ctx, the context fn was called with, has not been
// superseded. f runs under the debouncer lock, so no Trigger can slip in
// between the check and f; f must not call back into the Debouncer.
func (d *Debouncer[T]) Deliver(ctx context.Context, f func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || ctx.Err() != nil {
		return false
	}
	f()
	return true
}

// Cancel drops the pending trigger and cancels one in flight.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
}

// Stop cancels outstanding work and waits for running calls to return.
// Triggers after Stop are ignored.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	d.closed = true
	d.stopLocked()
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Debouncer[T]) stopLocked() {
	if d.timer != nil && d.timer.Stop() {
		// the callback will never run, so release its slot here
		d.wg.Done()
	}
	d.timer = nil
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}
