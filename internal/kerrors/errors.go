// Package kerrors holds the kernel's error kinds, matched with errors.Is.
//
// These are the status values the kernel returns from its public API:
// allocator exhaustion, a full TCB table, admission failures,
// operations on a dead task id, and the two queue conditions that never
// escape the dispatcher.
package kerrors

import "errors"

var (
	// ErrOutOfMemory is returned when the allocator can't satisfy a
	// stack or queue allocation.
	ErrOutOfMemory = errors.New("kernel: out of memory")

	// ErrTooManyTasks is returned by Spawn when no TCB slot is free.
	ErrTooManyTasks = errors.New("kernel: too many tasks")

	// ErrAdmissionRefused is returned by Spawn when a real-time task
	// would push total utilization past the active policy's bound.
	ErrAdmissionRefused = errors.New("kernel: admission refused")

	// ErrInvalidID is returned by any lifecycle call that names a slot
	// that does not exist or is already IDLE.
	ErrInvalidID = errors.New("kernel: invalid task id")

	// ErrQueueFull and ErrQueueEmpty are local to the bounded FIFO and
	// never surface past the dispatcher.
	ErrQueueFull  = errors.New("kernel: queue full")
	ErrQueueEmpty = errors.New("kernel: queue empty")
)

// PanicCode identifies a fatal invariant violation. Unlike the error
// kinds above, a PanicCode is never returned to a caller -- it is
// passed to Panic, which halts the kernel.
type PanicCode int

const (
	PanicOOM PanicCode = iota
	PanicGPF
	PanicAborted
	PanicNoRunnableTask
	PanicQueueOverflow
)

func (c PanicCode) String() string {
	switch c {
	case PanicOOM:
		return "PANIC_OOM"
	case PanicGPF:
		return "PANIC_GPF"
	case PanicAborted:
		return "PANIC_ABORTED"
	case PanicNoRunnableTask:
		return "PANIC_NO_RUNNABLE_TASK"
	case PanicQueueOverflow:
		return "PANIC_QUEUE_OVERFLOW"
	default:
		return "PANIC_UNKNOWN"
	}
}

// Panic halts the kernel with a diagnostic. It is called only for
// conditions that would otherwise corrupt scheduler invariants --
// never for an ordinary error a caller can recover from.
func Panic(code PanicCode) {
	panic("kernel panic: " + code.String())
}
