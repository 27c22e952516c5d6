package policy

import (
	"github.com/emirpasic/gods/trees/redblacktree"

	"hellfirekernel/internal/tcb"
)

// RTPolicy picks the next task to run from a set of ready real-time
// task ids, or reports none ready.
type RTPolicy interface {
	Name() string
	Pick(table *tcb.Table, ready []int32) (int32, bool)
}

// rtKey orders ready real-time tasks by an ordering field (period for
// RMA, remaining time to deadline for EDF), ties broken by lower slot
// id -- the same {field, id} composite key and comparator shape the
// teacher uses to order its CFS run queue by vruntime.
type rtKey struct {
	field int64
	id    int32
}

func cmpRTKey(a, b any) int {
	ka, kb := a.(rtKey), b.(rtKey)
	switch {
	case ka.field < kb.field:
		return -1
	case ka.field > kb.field:
		return 1
	case ka.id < kb.id:
		return -1
	case ka.id > kb.id:
		return 1
	default:
		return 0
	}
}

// pickMinBy builds a red-black tree over ready keyed by field, and
// returns the id at its minimum. The ready set is small -- admission
// control keeps the real-time queue short -- so rebuilding the tree on
// every pick costs nothing a fixed-size embedded scheduler would
// notice, and it keeps both policies' selection logic identical apart
// from the key they order by.
func pickMinBy(table *tcb.Table, ready []int32, field func(*tcb.Task) int64) (int32, bool) {
	if len(ready) == 0 {
		return 0, false
	}
	tree := redblacktree.NewWith(cmpRTKey)
	for _, id := range ready {
		t := table.Get(id)
		if t == nil {
			continue
		}
		tree.Put(rtKey{field(t), id}, id)
	}
	node := tree.Left()
	if node == nil {
		return 0, false
	}
	return node.Value.(int32), true
}

// RMA orders ready real-time tasks by ascending period.
type RMA struct{}

func (RMA) Name() string { return "rma" }

func (RMA) Pick(table *tcb.Table, ready []int32) (int32, bool) {
	return pickMinBy(table, ready, func(t *tcb.Task) int64 { return t.Period })
}

// EDF orders ready real-time tasks by ascending time remaining to the
// current job's absolute deadline.
type EDF struct{}

func (EDF) Name() string { return "edf" }

func (EDF) Pick(table *tcb.Table, ready []int32) (int32, bool) {
	return pickMinBy(table, ready, func(t *tcb.Task) int64 { return t.DeadlineRem })
}

// ForName resolves a configured policy name to an RTPolicy. Unknown
// names fall back to RMA.
func ForName(name string) RTPolicy {
	if name == "edf" {
		return EDF{}
	}
	return RMA{}
}
