// Package clock provides the kernel's tick source: a goroutine that
// emits one tick per configured interval, counted atomically. It stands
// in for the HAL's timer programming and tick-ISR wiring: in production
// the tick channel would be fed by a hardware timer interrupt; here
// it's fed by a time.Ticker.
package clock

import (
	"sync/atomic"
	"time"
)

// TickClock emits ticks on Ch and counts them atomically so callers
// outside the dispatch loop (metrics, tests) can read the count without
// racing the emitter.
type TickClock struct {
	Ch    chan struct{}
	count atomic.Int64
	stop  chan struct{}
}

// New creates a clock with the given channel buffer depth. It does not
// start emitting until Start is called.
func New(buffer int) *TickClock {
	return &TickClock{
		Ch:   make(chan struct{}, buffer),
		stop: make(chan struct{}),
	}
}

// Start begins emitting ticks at interval. Safe to call at most once per
// clock.
func (c *TickClock) Start(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.count.Add(1)
				select {
				case c.Ch <- struct{}{}:
				default:
					// dispatcher fell behind; drop the tick rather than
					// block the emitter. The count still advanced, so
					// Count includes dropped ticks; the dispatcher's own
					// tick time does not.
				}
			case <-c.stop:
				close(c.Ch)
				return
			}
		}
	}()
}

// Stop signals the clock to stop emitting and closes Ch.
func (c *TickClock) Stop() {
	close(c.stop)
}

// Count returns the number of ticks emitted so far.
func (c *TickClock) Count() int64 {
	return c.count.Load()
}

// Step manually advances the clock by one tick without a running
// emitter goroutine. It only advances Count: nothing is sent on Ch, so
// it does not drive the dispatcher (Kernel.Tick does that).
func (c *TickClock) Step() {
	c.count.Add(1)
}
