package policy

import (
	"testing"

	"hellfirekernel/internal/tcb"
)

func TestRMAPicksLowestPeriodTieBrokenByID(t *testing.T) {
	table := tcb.NewTable(8)
	a := table.Alloc("a", 0, 15, 3, 15, nil, nil)
	b := table.Alloc("b", 0, 10, 2, 10, nil, nil)
	c := table.Alloc("c", 0, 10, 2, 10, nil, nil) // same period as b, higher id

	got, ok := RMA{}.Pick(table, []int32{a.ID, b.ID, c.ID})
	if !ok || got != b.ID {
		t.Fatalf("RMA.Pick() = (%d, %v), want (%d, true) -- lowest period, id tie-break", got, ok, b.ID)
	}
}

func TestEDFPicksLowestDeadlineRem(t *testing.T) {
	table := tcb.NewTable(8)
	a := table.Alloc("a", 0, 20, 4, 20, nil, nil)
	table.Get(a.ID).DeadlineRem = 9
	b := table.Alloc("b", 0, 12, 3, 12, nil, nil)
	table.Get(b.ID).DeadlineRem = 4

	got, ok := EDF{}.Pick(table, []int32{a.ID, b.ID})
	if !ok || got != b.ID {
		t.Fatalf("EDF.Pick() = (%d, %v), want (%d, true) -- earliest deadline", got, ok, b.ID)
	}
}

func TestPickEmptyReadySetReturnsFalse(t *testing.T) {
	table := tcb.NewTable(4)
	if _, ok := (RMA{}).Pick(table, nil); ok {
		t.Fatalf("Pick() on an empty ready set should return false")
	}
}

func TestForNameDefaultsToRMA(t *testing.T) {
	if ForName("edf").Name() != "edf" {
		t.Fatalf("ForName(\"edf\") did not resolve to EDF")
	}
	if ForName("bogus").Name() != "rma" {
		t.Fatalf("ForName(\"bogus\") should fall back to RMA")
	}
}
