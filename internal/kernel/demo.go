package kernel

import (
	"hellfirekernel/internal/job"
	"hellfirekernel/internal/tcb"
)

// idleEntry wraps job.Idle with this kernel's own SchedLock release: the
// first thing it does once dispatched is unlock scheduling, exactly the
// way boot held schedLock true until the idle task's own first run
// released it.
func idleEntry(k *Kernel) tcb.Entry {
	return job.Idle(func() { k.SchedLock(false) }, k.hal.Idle)
}

// generatorEntry wraps job.AperiodicGenerator against this kernel's own
// SpawnAperiodic, so the optional generator task deposits its
// randomly-sized jobs directly into the aperiodic queue the polling
// server drains.
func generatorEntry(k *Kernel) tcb.Entry {
	return job.AperiodicGenerator(k, k.rng)
}
