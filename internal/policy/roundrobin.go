package policy

import (
	"hellfirekernel/internal/kqueue"
	"hellfirekernel/internal/tcb"
)

// RoundRobin implements the best-effort priority round-robin policy:
// the head of the run queue keeps running while its aging counter
// (PriorityRem) is positive; once exhausted it's reset and
// rotated to the tail, and the next head is examined. Higher-priority
// tasks get proportionally longer quanta within one pass of the queue.
type RoundRobin struct{}

// Pick examines at most two full passes of runQueue (the first may only
// reset exhausted counters) and returns the next task to dispatch, or
// false if nothing is runnable (an empty queue, or a queue of
// priority-0 tasks that never claim a quantum of their own -- the idle
// task is dispatched by the caller in that case).
func (RoundRobin) Pick(runQueue *kqueue.FIFO, table *tcb.Table) (int32, bool) {
	passes := 2 * runQueue.Count()
	for i := 0; i < passes; i++ {
		id, err := runQueue.Peek()
		if err != nil {
			return 0, false
		}
		t := table.Get(id)
		if t == nil || t.State == tcb.StateIdle {
			runQueue.Remove()
			continue
		}
		if t.PriorityRem > 0 {
			t.PriorityRem--
			return id, true
		}
		t.PriorityRem = t.Priority
		runQueue.Remove()
		runQueue.AddTail(id)
	}
	return 0, false
}
