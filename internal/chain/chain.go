// Package chain provides the ordering counter the engine sequences expiry
// and creation events against — the block-height analogue. The counter only
// moves forward; expiry is compared against it lazily, never swept.
package chain

import (
	"context"
	"sync/atomic"
	"time"
)

// Source yields the current ordering counter value.
type Source interface {
	Current() uint64
}

// Counter is a monotonically increasing Source backed by an atomic.
type Counter struct {
	height atomic.Uint64
}

// NewCounter creates a counter starting at the given height.
func NewCounter(start uint64) *Counter {
	c := &Counter{}
	c.height.Store(start)
	return c
}

// Current returns the current height.
func (c *Counter) Current() uint64 {
	return c.height.Load()
}

// Advance moves the counter forward by n and returns the new height.
func (c *Counter) Advance(n uint64) uint64 {
	return c.height.Add(n)
}

// Run advances the counter by one every interval until ctx is cancelled.
func (c *Counter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Advance(1)
		}
	}
}
