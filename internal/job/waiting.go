// Package job holds reusable task bodies: small workloads a spawned
// task can run without every demo or test writing its own closure.
package job

import (
	"context"
	"time"

	"hellfirekernel/internal/tcb"
)

// Sleep returns a task body that voluntarily finishes after d of real
// time has elapsed. If preempted partway through, the closure's own
// remaining variable carries the partially-elapsed sleep forward to the
// next dispatch -- the resumption discipline ctxswitch.Context's doc
// comment describes.
func Sleep(d time.Duration) tcb.Entry {
	remaining := d
	return func(ctx context.Context) error {
		start := time.Now()
		select {
		case <-ctx.Done():
			remaining -= time.Since(start)
			if remaining < 0 {
				remaining = 0
			}
			return ctx.Err()
		case <-time.After(remaining):
			return nil
		}
	}
}

// Busy returns a task body that occupies every dispatch window it is
// given until preempted, simulating pure CPU-bound work. The kernel's
// own capacity/deadline accounting, not this function, decides when the
// job's budget is spent.
func Busy() tcb.Entry {
	return func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}
}

// Idle returns the kernel's idle task body. On its first dispatch it
// calls releaseSchedLock exactly once, unlocking scheduling after boot,
// and then spins, one dispatch window at a time, calling cpuIdle
// (khal's Idle) before waiting out the window. cpuIdle may be nil for
// tests that don't wire a HAL.
func Idle(releaseSchedLock func(), cpuIdle func()) tcb.Entry {
	var released bool
	return func(ctx context.Context) error {
		if !released {
			released = true
			releaseSchedLock()
		}
		if cpuIdle != nil {
			cpuIdle()
		}
		<-ctx.Done()
		return ctx.Err()
	}
}
