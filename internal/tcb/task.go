// Package tcb holds the Task Control Block table: the fixed array of
// slots that describes every task known to the kernel.
package tcb

import "context"

// State is one of a task's four live states, plus IDLE for a free slot.
type State int

const (
	StateIdle State = iota
	StateReady
	StateRunning
	StateBlocked
	StateDelayed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateReady:
		return "READY"
	case StateRunning:
		return "RUNNING"
	case StateBlocked:
		return "BLOCKED"
	case StateDelayed:
		return "DELAYED"
	default:
		return "UNKNOWN"
	}
}

// Entry is a task's body. It receives a context scoped to one dispatch
// window of one tick: when that context's Done channel fires, the
// window has ended, and the entry should return promptly. An entry that returns nil has finished
// its job (or, for a non-periodic task, terminated for good); an entry
// that returns the window's ctx.Err() has merely been preempted and
// will be invoked again, with its own captured variables carrying
// forward whatever progress it made.
type Entry func(ctx context.Context) error

// Task is one TCB slot.
type Task struct {
	ID   int32
	Name string

	State       State
	Priority    uint8 // static base priority, 0..255, higher = more important
	PriorityRem uint8 // aging counter for best-effort round robin

	Delay int64 // remaining ticks before a DELAYED task becomes READY

	// Real-time parameters, all in ticks. Period == 0 means this task
	// is not real-time (best-effort or aperiodic).
	Period   int64
	Capacity int64
	Deadline int64

	// Per-job remainders, refilled at each release.
	PeriodRem   int64
	CapacityRem int64
	DeadlineRem int64

	RTJobs         int64
	BGJobs         int64
	DeadlineMisses int64

	Entry     Entry
	Stack     []byte // owned; freed when the task goes IDLE
	StackSize int

	// Context is the opaque saved execution context. It holds a
	// *ctxswitch.Context; kept as any here, rather than a
	// concrete type, so this package doesn't have to import the one
	// that builds Context values around an Entry -- ctxswitch already
	// depends on tcb for the Entry type.
	Context any

	OtherData any
}

// IsRealTime reports whether the task is a periodic real-time task.
func (t *Task) IsRealTime() bool { return t.Period > 0 }

// Utilization returns capacity/period scaled by Scale (see
// internal/policy), or 0 for a non-real-time task.
func (t *Task) Utilization(scale int64) int64 {
	if t.Period <= 0 {
		return 0
	}
	return t.Capacity * scale / t.Period
}

// Table is the fixed-size TCB arena. Slot ids are stable array indices;
// a slot's State is StateIdle iff it is free. Queues store ids, not
// pointers, per the design note on avoiding ownership cycles.
type Table struct {
	slots []Task
}

// NewTable allocates a table with the given number of slots, all IDLE.
func NewTable(maxTasks int) *Table {
	t := &Table{slots: make([]Task, maxTasks)}
	t.Clear()
	return t
}

// Clear resets every slot to its zero, IDLE state.
func (t *Table) Clear() {
	for i := range t.slots {
		t.slots[i] = Task{ID: int32(i), State: StateIdle}
	}
}

// Len returns the number of slots in the table.
func (t *Table) Len() int { return len(t.slots) }

// Get returns a pointer to the slot for id, or nil if id is out of
// range. The caller is expected to check State before trusting the
// contents of a slot it didn't just allocate.
func (t *Table) Get(id int32) *Task {
	if id < 0 || int(id) >= len(t.slots) {
		return nil
	}
	return &t.slots[id]
}

// Alloc finds the first IDLE slot, marks it READY with the given
// fields, and returns it. Returns nil if the table is full.
func (t *Table) Alloc(name string, priority uint8, period, capacity, deadline int64, entry Entry, stack []byte) *Task {
	for i := range t.slots {
		if t.slots[i].State == StateIdle {
			s := &t.slots[i]
			*s = Task{
				ID:          int32(i),
				Name:        name,
				State:       StateReady,
				Priority:    priority,
				PriorityRem: priority,
				Period:      period,
				Capacity:    capacity,
				Deadline:    deadline,
				PeriodRem:   period,
				CapacityRem: capacity,
				DeadlineRem: deadline,
				Entry:       entry,
				Stack:       stack,
				StackSize:   len(stack),
			}
			return s
		}
	}
	return nil
}

// Free returns a slot to IDLE and releases its stack reference.
func (t *Table) Free(id int32) {
	s := t.Get(id)
	if s == nil {
		return
	}
	*s = Task{ID: id, State: StateIdle}
}

// RealTimeTasks returns the ids of every slot currently holding a
// real-time task, live or not -- used by admission control, which must
// sum utilization over all admitted real-time tasks regardless of
// their current run state.
func (t *Table) RealTimeTasks() []int32 {
	var ids []int32
	for i := range t.slots {
		if t.slots[i].State != StateIdle && t.slots[i].IsRealTime() {
			ids = append(ids, t.slots[i].ID)
		}
	}
	return ids
}
