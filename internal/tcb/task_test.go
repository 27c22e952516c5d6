package tcb

import "testing"

func TestAllocFindsFirstIdleSlot(t *testing.T) {
	table := NewTable(3)
	first := table.Alloc("a", 5, 0, 0, 0, nil, nil)
	if first == nil || first.ID != 0 {
		t.Fatalf("expected first alloc in slot 0, got %+v", first)
	}
	second := table.Alloc("b", 7, 10, 2, 10, nil, make([]byte, 64))
	if second == nil || second.ID != 1 {
		t.Fatalf("expected second alloc in slot 1, got %+v", second)
	}
	if second.State != StateReady {
		t.Fatalf("newly allocated task state = %v, want READY", second.State)
	}
	if second.PriorityRem != second.Priority {
		t.Fatalf("PriorityRem = %d, want %d", second.PriorityRem, second.Priority)
	}
	if second.PeriodRem != 10 || second.CapacityRem != 2 || second.DeadlineRem != 10 {
		t.Fatalf("unexpected remainders: %+v", second)
	}
}

func TestAllocTableFullReturnsNil(t *testing.T) {
	table := NewTable(1)
	if table.Alloc("a", 0, 0, 0, 0, nil, nil) == nil {
		t.Fatalf("expected first alloc to succeed")
	}
	if table.Alloc("b", 0, 0, 0, 0, nil, nil) != nil {
		t.Fatalf("expected second alloc on a full table to fail")
	}
}

func TestFreeReturnsSlotToIdle(t *testing.T) {
	table := NewTable(2)
	s := table.Alloc("a", 1, 0, 0, 0, nil, nil)
	table.Free(s.ID)
	got := table.Get(s.ID)
	if got.State != StateIdle {
		t.Fatalf("state after Free = %v, want IDLE", got.State)
	}
	if got.Name != "" {
		t.Fatalf("expected freed slot to be zeroed, got name %q", got.Name)
	}
	// The freed slot should be reusable by the next Alloc.
	reused := table.Alloc("c", 1, 0, 0, 0, nil, nil)
	if reused == nil || reused.ID != s.ID {
		t.Fatalf("expected freed slot to be reused, got %+v", reused)
	}
}

func TestIsRealTimeAndUtilization(t *testing.T) {
	bg := Task{Period: 0}
	if bg.IsRealTime() {
		t.Fatalf("period-0 task reported as real-time")
	}
	if u := bg.Utilization(10000); u != 0 {
		t.Fatalf("Utilization() on non-RT task = %d, want 0", u)
	}

	rt := Task{Period: 10, Capacity: 2}
	if !rt.IsRealTime() {
		t.Fatalf("period>0 task not reported as real-time")
	}
	if u := rt.Utilization(10000); u != 2000 {
		t.Fatalf("Utilization() = %d, want 2000", u)
	}
}

func TestRealTimeTasksExcludesIdleAndBestEffort(t *testing.T) {
	table := NewTable(4)
	rt := table.Alloc("rt", 0, 10, 2, 10, nil, nil)
	table.Alloc("be", 3, 0, 0, 0, nil, nil)
	ids := table.RealTimeTasks()
	if len(ids) != 1 || ids[0] != rt.ID {
		t.Fatalf("RealTimeTasks() = %v, want [%d]", ids, rt.ID)
	}
}
