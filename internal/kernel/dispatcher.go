package kernel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hellfirekernel/internal/ctxswitch"
	"hellfirekernel/internal/kerrors"
	"hellfirekernel/internal/policy"
	"hellfirekernel/internal/pollserver"
	"hellfirekernel/internal/tcb"
)

// onTick is the tick ISR's bottom half: delay sweep, real-time
// release/deadline sweep, current-task accounting, the sched_lock
// short-circuit, selection, and the context switch itself. The sweeps
// and accounting always run; only the switch is skipped while
// scheduling is locked -- bookkeeping still happens, but no context
// switch is performed.
func (k *Kernel) onTick() {
	k.mu.Lock()
	k.interrupts++
	k.tickTimeUS += int64(k.cfg.TickMS) * 1000
	if k.metrics != nil {
		k.metrics.Interrupts.Inc()
		k.metrics.TickTimeMicros.Add(float64(k.cfg.TickMS) * 1000)
	}

	k.delaySweepLocked()
	k.rtSweepLocked()
	k.accountCurrentLocked()
	k.refreshMetricsLocked()

	if k.schedLock {
		k.mu.Unlock()
		return
	}

	nextID := k.selectAndSwitchLocked()
	next := k.table.Get(nextID)
	isServer := k.hasServer && nextID == k.serverID
	var ctxv *ctxswitch.Context
	if !isServer && next != nil {
		ctxv, _ = next.Context.(*ctxswitch.Context)
	}
	k.mu.Unlock()

	window, cancel := context.WithTimeout(context.Background(), time.Duration(k.cfg.TickMS)*time.Millisecond)
	defer cancel()

	if isServer {
		k.mu.Lock()
		stacks := make(map[int32][]byte)
		for _, id := range k.aperiodicQueue.Items() {
			if t := k.table.Get(id); t != nil {
				stacks[id] = t.Stack
			}
		}
		events := pollserver.RunOnce(next, k.aperiodicQueue, k.table)
		for _, ev := range events {
			k.emitServerEventLocked(ev)
			if ev.Kind == pollserver.EventCompleted {
				k.alloc.Free(stacks[ev.JobID])
			}
		}
		if last := events[len(events)-1]; last.Kind == pollserver.EventIdle && k.aperiodicQueue.Count() == 0 {
			// Nothing left to serve: give up the rest of this release's fuel.
			next.CapacityRem = 0
		}
		if next.CapacityRem <= 0 {
			next.State = tcb.StateReady
		}
		k.mu.Unlock()
		<-window.Done()
		return
	}

	if ctxv == nil {
		<-window.Done()
		return
	}

	err := ctxv.Restore(window)

	k.mu.Lock()
	k.finishRunLocked(nextID, err)
	k.mu.Unlock()
}

// delaySweepLocked decrements every DELAYED task's remaining delay,
// waking (moving to its class queue, READY) any that reach zero.
func (k *Kernel) delaySweepLocked() {
	for _, id := range k.delayQueue.Items() {
		t := k.table.Get(id)
		if t == nil || t.State != tcb.StateDelayed {
			k.delayQueue.Remove1(id)
			continue
		}
		t.Delay--
		if t.Delay > 0 {
			continue
		}
		k.delayQueue.Remove1(id)
		t.State = tcb.StateReady
		if t.IsRealTime() {
			k.rtQueue.AddTail(id)
		} else {
			k.runQueue.AddTail(id)
		}
		k.emit(EventWake, id, "")
	}
}

// rtSweepLocked advances every real-time task's deadline and period
// countdowns by one tick.
//
// deadline_rem is wall-clock-relative: it erodes for every task with an
// active, unfinished job, not only whoever happens to be running --
// EDF's ordering depends on that key changing every tick regardless of
// dispatch state, or every ready-but-not-running task's deadline key
// would freeze. capacity_rem is CPU-time-relative and erodes only for
// whoever is actually dispatched, handled separately by
// accountCurrentLocked. See DESIGN.md for the full rationale.
func (k *Kernel) rtSweepLocked() {
	for _, id := range k.table.RealTimeTasks() {
		t := k.table.Get(id)
		if t == nil {
			continue
		}
		active := t.State != tcb.StateDelayed && t.State != tcb.StateBlocked

		if active && t.CapacityRem > 0 {
			t.DeadlineRem--
			if t.DeadlineRem <= 0 {
				t.DeadlineMisses++
				t.CapacityRem = 0
				if t.State == tcb.StateReady {
					k.rtQueue.Remove1(id)
				}
				if k.metrics != nil {
					k.metrics.DeadlineMisses.WithLabelValues(t.Name).Inc()
				}
				k.emit(EventDeadlineMiss, id, "")
			}
		}

		t.PeriodRem--
		if t.PeriodRem > 0 {
			continue
		}
		t.PeriodRem = t.Period
		t.CapacityRem = t.Capacity
		t.DeadlineRem = t.Deadline
		t.RTJobs++
		if k.metrics != nil {
			k.metrics.RTJobs.WithLabelValues(t.Name).Inc()
		}
		if active {
			t.State = tcb.StateReady
			if !k.rtQueue.Contains(id) {
				k.rtQueue.AddTail(id)
			}
		}
		k.emit(EventRelease, id, "")
	}
}

// accountCurrentLocked charges one tick of capacity against whichever
// task was dispatched last tick. The polling server's own capacity is
// excluded: its fuel is spent in bulk by
// pollserver.RunOnce, not one tick at a time, per the resolution
// documented on pollserver.RunOnce.
func (k *Kernel) accountCurrentLocked() {
	cur := k.table.Get(k.currentID)
	if cur == nil || cur.State != tcb.StateRunning || !cur.IsRealTime() {
		return
	}
	if k.hasServer && cur.ID == k.serverID {
		return
	}
	if cur.CapacityRem <= 0 {
		return
	}
	cur.CapacityRem--
	if cur.CapacityRem == 0 {
		cur.State = tcb.StateReady
	}
}

// selectAndSwitchLocked picks the next task to run -- real-time
// selection first, then best-effort, then idle -- with the outgoing
// task's bookkeeping (state flip, conditional requeue) folded into the
// same step.
//
// The currently-running real-time task is removed from rtQueue the
// instant it is dispatched (below), so it has to be restored as a
// standing candidate *before* the ready set is snapshotted, not after
// the pick is made: otherwise an unfinished job loses its queue slot
// for one full tick every time it's dispatched, and only gets it back
// as a side effect of the next tick's switch-away bookkeeping -- a job
// with capacity remaining would then run only every other tick instead
// of continuously.
func (k *Kernel) selectAndSwitchLocked() int32 {
	if cur := k.table.Get(k.currentID); cur != nil && cur.State == tcb.StateRunning &&
		cur.IsRealTime() && cur.CapacityRem > 0 && !k.rtQueue.Contains(k.currentID) {
		k.rtQueue.AddTail(k.currentID)
	}

	nextID := idSentinel
	fromRT := false

	if ready := k.rtQueue.Items(); len(ready) > 0 {
		if id, ok := k.rtPolicy.Pick(k.table, ready); ok {
			nextID = id
			fromRT = true
		}
	}
	if !fromRT {
		if id, ok := k.bePolicy.Pick(k.runQueue, k.table); ok {
			nextID = id
		}
	}
	if nextID == idSentinel {
		if !k.hasIdle {
			k.panic(kerrors.PanicNoRunnableTask)
		}
		nextID = k.idleID
	}
	if fromRT {
		k.rtQueue.Remove1(nextID)
	}

	prevID := k.currentID
	if nextID != prevID {
		k.preemptSwitches++
		if k.metrics != nil {
			k.metrics.PreemptSwitches.Inc()
		}
		if prev := k.table.Get(prevID); prev != nil && prev.State == tcb.StateRunning {
			prev.State = tcb.StateReady
		}
		k.emit(EventDispatch, nextID, "")
	}

	if next := k.table.Get(nextID); next != nil {
		next.State = tcb.StateRunning
	}
	k.currentID = nextID
	return nextID
}

// finishRunLocked interprets the outcome of one ctxswitch.Restore call.
// A nil error means the entry finished voluntarily: a real-time job
// ends its period early (ready again, no requeue until next release);
// a best-effort or aperiodic task ends for good (killed). A
// context.Canceled/DeadlineExceeded error means the window simply ran
// out -- ordinary preemption, nothing further to do here. Any other
// error is treated as a task failure and the task is killed.
func (k *Kernel) finishRunLocked(id int32, err error) {
	t := k.table.Get(id)
	if t == nil {
		return
	}
	switch {
	case err == nil:
		if t.IsRealTime() {
			t.CapacityRem = 0
			t.State = tcb.StateReady
			k.emit(EventFinish, id, "job complete")
		} else {
			t.BGJobs++
			if k.metrics != nil {
				k.metrics.BGJobs.WithLabelValues(t.Name).Inc()
			}
			k.emit(EventFinish, id, "task complete")
			k.killLocked(id)
		}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		// Preempted mid-window; state/queue handled by the next tick's
		// selectAndSwitchLocked.
	default:
		k.emit(EventFinish, id, fmt.Sprintf("error: %v", err))
		k.killLocked(id)
	}
}

// emitServerEventLocked translates one pollserver.Event into the
// kernel's own event stream. It updates no PCB counters or metrics.
func (k *Kernel) emitServerEventLocked(ev pollserver.Event) {
	switch ev.Kind {
	case pollserver.EventIdle:
		k.emit(EventServerIdle, k.serverID, "")
	case pollserver.EventCompleted:
		k.emit(EventServerCompleted, ev.JobID, fmt.Sprintf("spent %d", ev.Spent))
	case pollserver.EventPartial:
		k.emit(EventServerPartial, ev.JobID, fmt.Sprintf("spent %d", ev.Spent))
	}
}

// refreshMetricsLocked republishes the per-state task gauge. Cheap
// enough to call every tick: MaxTasks is a small, fixed bound, not a
// live collection.
func (k *Kernel) refreshMetricsLocked() {
	if k.metrics == nil {
		return
	}
	var counts [5]int
	for id := int32(0); id < int32(k.table.Len()); id++ {
		t := k.table.Get(id)
		if t != nil {
			counts[t.State]++
		}
	}
	k.metrics.TasksByState.WithLabelValues("idle").Set(float64(counts[tcb.StateIdle]))
	k.metrics.TasksByState.WithLabelValues("ready").Set(float64(counts[tcb.StateReady]))
	k.metrics.TasksByState.WithLabelValues("running").Set(float64(counts[tcb.StateRunning]))
	k.metrics.TasksByState.WithLabelValues("blocked").Set(float64(counts[tcb.StateBlocked]))
	k.metrics.TasksByState.WithLabelValues("delayed").Set(float64(counts[tcb.StateDelayed]))

	k.metrics.Utilization1e4.Set(float64(policy.Utilization(k.table, nil)))
}
