package kernel

import (
	"errors"
	"testing"

	"hellfirekernel/internal/job"
	"hellfirekernel/internal/kconfig"
	"hellfirekernel/internal/kerrors"
)

func testConfig() kconfig.Config {
	return kconfig.Config{
		MaxTasks:            8,
		TickMS:              1,
		HeapBytes:           1 << 16,
		RTPolicy:            kconfig.RTPolicyRMA,
		ServerPeriodTicks:   20,
		ServerCapacityTicks: 6,
	}
}

func TestSpawnRealTimeAdmissionRefused(t *testing.T) {
	k, err := New(testConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := k.Spawn(job.Busy(), 5, 4, 5, 0, "rt1", 64); err != nil {
		t.Fatalf("first RT spawn should be admitted: %v", err)
	}
	_, err = k.Spawn(job.Busy(), 5, 4, 5, 0, "rt2", 64)
	if !errors.Is(err, kerrors.ErrAdmissionRefused) {
		t.Fatalf("second identical RT spawn: err = %v, want ErrAdmissionRefused", err)
	}
}

func TestSpawnRejectsInconsistentRealTimeParameters(t *testing.T) {
	k, _ := New(testConfig())
	if _, err := k.Spawn(job.Busy(), 10, 0, 10, 0, "bad-capacity", 64); !errors.Is(err, kerrors.ErrAdmissionRefused) {
		t.Fatalf("capacity<=0 should be refused, got %v", err)
	}
	if _, err := k.Spawn(job.Busy(), 10, 5, 20, 0, "deadline>period", 64); !errors.Is(err, kerrors.ErrAdmissionRefused) {
		t.Fatalf("deadline>period should be refused, got %v", err)
	}
}

func TestKillTwiceReturnsInvalidID(t *testing.T) {
	k, _ := New(testConfig())
	id, err := k.Spawn(job.Busy(), 0, 0, 0, 1, "a", 64)
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if err := k.Kill(id); err != nil {
		t.Fatalf("first Kill: %v", err)
	}
	if err := k.Kill(id); !errors.Is(err, kerrors.ErrInvalidID) {
		t.Fatalf("second Kill: err = %v, want ErrInvalidID", err)
	}
}

func TestSpawnAperiodicRoutesToAperiodicQueueNotRunQueue(t *testing.T) {
	k, _ := New(testConfig())
	id, err := k.SpawnAperiodic("dummy", 2)
	if err != nil {
		t.Fatalf("SpawnAperiodic: %v", err)
	}
	k.mu.Lock()
	inAperiodic := k.aperiodicQueue.Contains(id)
	inRun := k.runQueue.Contains(id)
	k.mu.Unlock()
	if !inAperiodic || inRun {
		t.Fatalf("aperiodic job should be queued on the aperiodic queue only (aperiodic=%v run=%v)", inAperiodic, inRun)
	}
}

func TestYieldRotatesCallerToTail(t *testing.T) {
	k, _ := New(testConfig())
	a, _ := k.Spawn(job.Busy(), 0, 0, 0, 1, "a", 64)
	b, _ := k.Spawn(job.Busy(), 0, 0, 0, 1, "b", 64)
	k.Yield(a)
	k.mu.Lock()
	items := k.runQueue.Items()
	k.mu.Unlock()
	if len(items) != 2 || items[0] != b || items[1] != a {
		t.Fatalf("after Yield(a), run queue = %v, want [%d %d]", items, b, a)
	}
}

func TestDelayMSMovesToDelayQueueAndWakesOnSweep(t *testing.T) {
	k, _ := New(testConfig())
	id, _ := k.Spawn(job.Busy(), 0, 0, 0, 1, "a", 64)
	if err := k.DelayMS(id, 2); err != nil {
		t.Fatalf("DelayMS: %v", err)
	}
	k.mu.Lock()
	delayed := k.delayQueue.Contains(id)
	k.mu.Unlock()
	if !delayed {
		t.Fatalf("task should be in the delay queue immediately after DelayMS")
	}

	k.mu.Lock()
	k.delaySweepLocked() // tick 1: delay goes 2 -> 1
	stillDelayed := k.delayQueue.Contains(id)
	k.delaySweepLocked() // tick 2: delay goes 1 -> 0, wakes
	woken := k.runQueue.Contains(id)
	nowDelayed := k.delayQueue.Contains(id)
	k.mu.Unlock()

	if !stillDelayed {
		t.Fatalf("task should remain delayed after a single sweep tick with delay=2")
	}
	if nowDelayed || !woken {
		t.Fatalf("task should be woken onto the run queue after its delay elapses")
	}
}

func TestTickDispatchesRealTimeOverBestEffort(t *testing.T) {
	k, _ := New(testConfig())
	k.SchedLock(false)

	beID, _ := k.Spawn(job.Busy(), 0, 0, 0, 1, "be", 64)
	rtID, _ := k.Spawn(job.Busy(), 5, 2, 5, 0, "rt", 64)

	k.Tick()
	if k.SelfID() != rtID {
		t.Fatalf("SelfID() = %d, want the real-time task %d dispatched ahead of best-effort %d", k.SelfID(), rtID, beID)
	}
}

func TestTickKeepsDispatchingUnfinishedRealTimeTaskAcrossTicks(t *testing.T) {
	k, _ := New(testConfig())
	k.SchedLock(false)

	beID, _ := k.Spawn(job.Busy(), 0, 0, 0, 1, "be", 64)
	rtID, _ := k.Spawn(job.Busy(), 50, 2, 50, 0, "rt", 64)

	k.Tick()
	if k.SelfID() != rtID {
		t.Fatalf("tick 1: SelfID() = %d, want the real-time task %d", k.SelfID(), rtID)
	}
	k.Tick()
	if k.SelfID() != rtID {
		t.Fatalf("tick 2: SelfID() = %d, want the real-time task %d still dispatched (capacity not yet exhausted), not best-effort %d", k.SelfID(), rtID, beID)
	}

	k.mu.Lock()
	rem := k.table.Get(rtID).CapacityRem
	k.mu.Unlock()
	if rem != 0 {
		t.Fatalf("after 2 ticks of capacity 2, CapacityRem = %d, want 0", rem)
	}

	// Capacity is exhausted; the next tick must hand off to best-effort.
	k.Tick()
	if k.SelfID() != beID {
		t.Fatalf("tick 3: SelfID() = %d, want best-effort task %d once the real-time task's capacity is spent", k.SelfID(), beID)
	}
}

func TestTickWithSchedLockPerformsNoSwitch(t *testing.T) {
	k, _ := New(testConfig())
	// schedLock defaults to true at construction (released by the idle
	// task's first run); with no Boot call it stays locked.
	id, _ := k.Spawn(job.Busy(), 0, 0, 0, 1, "a", 64)
	k.Tick()
	if k.SelfID() != idSentinel {
		t.Fatalf("SelfID() = %d, want %d (no switch while locked)", k.SelfID(), idSentinel)
	}
	_ = id
}
