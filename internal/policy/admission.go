// Package policy implements the kernel's scheduling policies: the two
// real-time selection policies (RMA, EDF), the best-effort priority
// round robin, and the utilization-based admission test shared by both
// real-time policies.
package policy

import (
	"math"

	"hellfirekernel/internal/tcb"
)

// Scale is the fixed-point scale factor admission arithmetic uses so the
// day-to-day utilization sum stays integer arithmetic, avoiding floats
// for the numbers that accumulate every admission check. Only the RMA
// bound constant itself -- n(2^(1/n)-1), inherently irrational -- is
// computed once via math.Pow rather than reinvented as fixed-point;
// Go's math package is what every other numeric computation in this
// codebase uses in its place.
const Scale int64 = 10000

// Utilization sums Capacity*Scale/Period over every real-time task
// currently held in table, plus candidate if non-nil. Both table's
// tasks and candidate must be real-time (Period > 0) for their
// contribution to be nonzero.
func Utilization(table *tcb.Table, candidate *tcb.Task) int64 {
	var total int64
	for _, id := range table.RealTimeTasks() {
		if t := table.Get(id); t != nil {
			total += t.Utilization(Scale)
		}
	}
	if candidate != nil {
		total += candidate.Utilization(Scale)
	}
	return total
}

// rmaBound returns n*(2^(1/n) - 1), scaled by Scale -- the Liu & Layland
// bound for n harmonic-agnostic periodic tasks under rate monotonic
// scheduling.
func rmaBound(n int) int64 {
	if n <= 0 {
		return 0
	}
	bound := float64(n) * (math.Pow(2, 1.0/float64(n)) - 1)
	return int64(bound * float64(Scale))
}

// AdmitRMA reports whether candidate can be admitted alongside the
// real-time tasks already in table, under the RMA bound for n tasks
// (including candidate).
func AdmitRMA(table *tcb.Table, candidate *tcb.Task) bool {
	n := len(table.RealTimeTasks()) + 1
	return Utilization(table, candidate) <= rmaBound(n)
}

// AdmitEDF reports whether candidate can be admitted under EDF's
// simple utilization-<=1 bound.
func AdmitEDF(table *tcb.Table, candidate *tcb.Task) bool {
	return Utilization(table, candidate) <= Scale
}
