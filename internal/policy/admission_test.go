package policy

import (
	"testing"

	"hellfirekernel/internal/tcb"
)

func TestAdmitRMATwoTasksLowUtilization(t *testing.T) {
	table := tcb.NewTable(8)
	table.Alloc("t1", 0, 10, 2, 10, nil, nil) // C=2,T=10
	candidate := &tcb.Task{Period: 15, Capacity: 3, Deadline: 15}
	if !AdmitRMA(table, candidate) {
		t.Fatalf("expected admission: utilization 0.4 under RMA bound for n=2")
	}
}

func TestAdmitEDFThreeTasksUnderBound(t *testing.T) {
	table := tcb.NewTable(8)
	table.Alloc("t1", 0, 4, 1, 4, nil, nil)
	table.Alloc("t2", 0, 6, 2, 6, nil, nil)
	candidate := &tcb.Task{Period: 8, Capacity: 3, Deadline: 8}
	// Utilization = 1/4 + 2/6 + 3/8 = 0.9583... <= 1.0
	if !AdmitEDF(table, candidate) {
		t.Fatalf("expected admission: utilization ~0.958 under EDF bound of 1.0")
	}
}

func TestAdmitRMARejectsFifthTaskOverBound(t *testing.T) {
	table := tcb.NewTable(8)
	for i := 0; i < 4; i++ {
		// Each contributes utilization 2050/10000; four sum to 8200/10000 = 0.82.
		table.Alloc("rt", 0, 1000, 205, 1000, nil, nil)
	}
	candidate := &tcb.Task{Period: 5, Capacity: 2, Deadline: 5} // utilization 0.4
	if AdmitRMA(table, candidate) {
		t.Fatalf("expected rejection: utilization 1.22 exceeds the RMA bound for n=5")
	}
}

func TestUtilizationSumsOnlyRealTimeTasks(t *testing.T) {
	table := tcb.NewTable(8)
	table.Alloc("be", 3, 0, 0, 0, nil, nil) // best-effort, period 0
	table.Alloc("rt", 0, 10, 2, 10, nil, nil)
	if u := Utilization(table, nil); u != 2000 {
		t.Fatalf("Utilization() = %d, want 2000", u)
	}
}
