package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter serializes calls to a single provider and enforces a minimum
// spacing between consecutive call starts. Spacing is measured start to
// start, not from completion, so a slow call does not push back the next
// one further than the configured gap.
type Limiter struct {
	spacing   time.Duration
	queue     []*call
	draining  bool
	lastStart time.Time
	mu        sync.Mutex
}

type call struct {
	ctx  context.Context
	fn   func(context.Context) error
	done chan error
}

// New creates a limiter with the given minimum gap between call starts.
// spacing <= 0 disables pacing but keeps the one-at-a-time ordering.
func New(spacing time.Duration) *Limiter {
	return &Limiter{spacing: spacing}
}

// Do enqueues fn and blocks until it has run or ctx is done. Calls run
// strictly in submission order, one at a time. An error from fn is
// returned to its own caller only and never stalls the queue.
func (l *Limiter) Do(ctx context.Context, fn func(context.Context) error) error {
	c := &call{ctx: ctx, fn: fn, done: make(chan error, 1)}

	l.mu.Lock()
	l.queue = append(l.queue, c)
	start := !l.draining
	if start {
		l.draining = true
	}
	l.mu.Unlock()

	if start {
		go l.drain()
	}

	select {
	case err := <-c.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of calls waiting to run
func (l *Limiter) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// drain executes queued calls until the queue is empty. Exactly one
// drain goroutine runs at a time; the draining flag makes the trigger in
// Do idempotent.
func (l *Limiter) drain() {
	for {
		l.mu.Lock()
		if len(l.queue) == 0 {
			l.draining = false
			l.mu.Unlock()
			return
		}
		c := l.queue[0]
		l.queue = l.queue[1:]

		var wait time.Duration
		if !l.lastStart.IsZero() && l.spacing > 0 {
			wait = l.spacing - time.Since(l.lastStart)
		}
		l.mu.Unlock()

		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-c.ctx.Done():
				timer.Stop()
				c.done <- c.ctx.Err()
				continue
			}
		}

		// Caller may have abandoned the call while it was queued.
		if err := c.ctx.Err(); err != nil {
			c.done <- err
			continue
		}

		l.mu.Lock()
		l.lastStart = time.Now()
		l.mu.Unlock()

		c.done <- c.fn(c.ctx)
	}
}
