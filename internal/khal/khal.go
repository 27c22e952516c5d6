// Package khal is the hardware abstraction layer the kernel core
// consumes rather than implements: interrupt enable/disable, CPU idle,
// and per-core identity. The timer side of the HAL is already covered
// by internal/clock's TickClock; this package covers the rest -- the
// parts this kernel has no real silicon under it to implement, only a
// single simulated core.
//
// Multi-CPU coordination is out of scope, so HAL models exactly one
// core: CPUID always returns 0, and DisableInterrupts is a no-op whose
// returned func does nothing either; it touches no interrupt controller
// and excludes nothing. The kernel's own mutex provides its critical
// sections.
package khal

import "runtime"

// HAL is the set of hardware operations the kernel core consumes.
type HAL interface {
	// CPUID returns the identity of the core this kernel instance runs
	// on. Always 0 in this single-core implementation.
	CPUID() int

	// Idle yields the processor for one idle-task dispatch window,
	// standing in for cpu_idle()'s low-power wait-for-interrupt.
	Idle()

	// DisableInterrupts brackets a critical section: the dispatcher,
	// queue operations, and TCB field mutations happen with interrupts
	// disabled. The returned func re-enables them; callers must invoke
	// it exactly once, typically via defer.
	DisableInterrupts() func()
}

// core is the only HAL this kernel builds against: one simulated CPU.
type core struct{}

// NewCore returns the single-core HAL implementation.
func NewCore() HAL { return core{} }

func (core) CPUID() int { return 0 }

func (core) Idle() { runtime.Gosched() }

func (core) DisableInterrupts() func() {
	return func() {}
}
