package kernel

import (
	"fmt"

	"hellfirekernel/internal/ctxswitch"
	"hellfirekernel/internal/kconfig"
	"hellfirekernel/internal/kerrors"
	"hellfirekernel/internal/policy"
	"hellfirekernel/internal/tcb"
)

// Spawn allocates a TCB slot and a stack, admits the task if it
// declares a real-time period, and enqueues it.
//
// capacity is a required parameter alongside priority: the TCB data
// model needs capacity for the utilization admission test, and real
// spawn call sites pass it explicitly (for example the polling server
// is spawned with period=20, capacity=6, deadline=20). priority is kept
// too, since every task -- real-time or not -- carries one in the TCB.
// See DESIGN.md for the full rationale.
func (k *Kernel) Spawn(entry tcb.Entry, period, capacity, deadline int64, priority uint8, name string, stackSize int) (int32, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.spawnLocked(entry, period, capacity, deadline, priority, name, stackSize, false)
}

// SpawnAperiodic deposits an aperiodic job directly into the aperiodic
// queue instead of the run queue: an aperiodic job is an ordinary task
// spawned with period = 0, but routed to a dedicated entry point rather
// than inferred from an overloaded zero period also shared with
// best-effort tasks. See DESIGN.md for the full rationale.
func (k *Kernel) SpawnAperiodic(name string, capacityTicks int64) (int32, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.spawnLocked(nil, 0, capacityTicks, 0, 0, name, 512, true)
}

func (k *Kernel) spawnLocked(entry tcb.Entry, period, capacity, deadline int64, priority uint8, name string, stackSize int, aperiodic bool) (int32, error) {
	if period > 0 {
		if capacity <= 0 || deadline < capacity || deadline > period {
			return 0, kerrors.ErrAdmissionRefused
		}
		candidate := &tcb.Task{Period: period, Capacity: capacity, Deadline: deadline}
		admitted := false
		switch k.cfg.RTPolicy {
		case kconfig.RTPolicyEDF:
			admitted = policy.AdmitEDF(k.table, candidate)
		default:
			admitted = policy.AdmitRMA(k.table, candidate)
		}
		if !admitted {
			k.emit(EventAdmissionRefused, -1, fmt.Sprintf("%s (C=%d,T=%d,D=%d)", name, capacity, period, deadline))
			return 0, kerrors.ErrAdmissionRefused
		}
	}

	stack, err := k.alloc.Alloc(stackSize)
	if err != nil {
		return 0, kerrors.ErrOutOfMemory
	}

	s := k.table.Alloc(name, priority, period, capacity, deadline, entry, stack)
	if s == nil {
		k.alloc.Free(stack)
		return 0, kerrors.ErrTooManyTasks
	}

	if entry != nil {
		s.Context = ctxswitch.Prepare(entry)
	}

	switch {
	case aperiodic:
		if err := k.aperiodicQueue.AddTail(s.ID); err != nil {
			k.table.Free(s.ID)
			k.alloc.Free(stack)
			return 0, kerrors.ErrTooManyTasks
		}
	case period > 0:
		if err := k.rtQueue.AddTail(s.ID); err != nil {
			k.table.Free(s.ID)
			k.alloc.Free(stack)
			return 0, kerrors.ErrTooManyTasks
		}
	default:
		if err := k.runQueue.AddTail(s.ID); err != nil {
			k.table.Free(s.ID)
			k.alloc.Free(stack)
			return 0, kerrors.ErrTooManyTasks
		}
	}

	k.emit(EventSpawn, s.ID, name)
	return s.ID, nil
}

// Kill removes id from its queue, frees its stack, and marks it IDLE.
// Self-kill is legal: the caller is expected to have
// arrived here via the dispatcher (e.g. a task's own entry returning a
// terminal error), since a task cannot synchronously kill its own Go
// call stack out from under itself the way setjmp-based self-kill can.
func (k *Kernel) Kill(id int32) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.killLocked(id)
}

func (k *Kernel) killLocked(id int32) error {
	t := k.table.Get(id)
	if t == nil || t.State == tcb.StateIdle {
		return kerrors.ErrInvalidID
	}
	k.runQueue.Remove1(id)
	k.delayQueue.Remove1(id)
	k.rtQueue.Remove1(id)
	k.aperiodicQueue.Remove1(id)
	stack := t.Stack
	k.table.Free(id)
	k.alloc.Free(stack)
	k.emit(EventKill, id, "")
	return nil
}

// SelfID returns the currently running task's slot id.
func (k *Kernel) SelfID() int32 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.currentID
}

// SchedLock sets the global flag the dispatcher consults: while locked,
// tick accounting still happens but no context switch is performed.
// Used during critical init.
func (k *Kernel) SchedLock(on bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.schedLock = on
}

// Yield records a cooperative context switch: the caller, if queued,
// moves to the tail of its class queue without any capacity charge, and
// the dispatcher reconsiders selection on the very next tick. Because
// this kernel's "context switch" is a synchronous per-tick dispatch
// rather than a live goroutine the caller is suspended inside, Yield
// here just updates the bookkeeping a task's own entry should consult:
// it records the cooperative-switch counter and rotates the caller's
// queue position to the tail of its class's queue, without accounting
// any capacity charge.
func (k *Kernel) Yield(id int32) {
	k.mu.Lock()
	defer k.mu.Unlock()
	t := k.table.Get(id)
	if t == nil || t.State == tcb.StateIdle {
		return
	}
	k.coopSwitches++
	if k.metrics != nil {
		k.metrics.CoopSwitches.Inc()
	}
	switch {
	case t.IsRealTime():
		if k.rtQueue.Remove1(id) {
			k.rtQueue.AddTail(id)
		}
	default:
		if k.runQueue.Remove1(id) {
			k.runQueue.AddTail(id)
		}
	}
	k.emit(EventYield, id, "")
}

// DelayMS converts ms to ticks, moves id to the delay queue, and marks
// it DELAYED.
func (k *Kernel) DelayMS(id int32, ms int64) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	t := k.table.Get(id)
	if t == nil || t.State == tcb.StateIdle {
		return kerrors.ErrInvalidID
	}
	ticks := ms / int64(k.cfg.TickMS)
	if ticks <= 0 {
		ticks = 1
	}
	switch {
	case t.IsRealTime():
		k.rtQueue.Remove1(id)
	default:
		k.runQueue.Remove1(id)
	}
	t.Delay = ticks
	t.State = tcb.StateDelayed
	if err := k.delayQueue.AddTail(id); err != nil {
		k.panic(kerrors.PanicQueueOverflow)
	}
	k.emit(EventDelay, id, fmt.Sprintf("%d ticks", ticks))
	return nil
}
