// Package kernel is the kernel core: the PCB-equivalent singleton that
// owns the TCB table, the four scheduler queues, the tick-driven
// dispatcher, and the task lifecycle API. It is a single, explicit
// state value passed between methods rather than a set of file-scope
// globals.
package kernel

import (
	"context"
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	"hellfirekernel/internal/clock"
	"hellfirekernel/internal/ctxswitch"
	"hellfirekernel/internal/kalloc"
	"hellfirekernel/internal/kconfig"
	"hellfirekernel/internal/kerrors"
	"hellfirekernel/internal/khal"
	"hellfirekernel/internal/kmetrics"
	"hellfirekernel/internal/kqueue"
	"hellfirekernel/internal/policy"
	"hellfirekernel/internal/tcb"
)

// idSentinel marks "no task" -- the value of currentID, idleID and
// serverID before anything has been dispatched or spawned. Selection
// never returns it: with nothing runnable and no idle task it panics.
const idSentinel int32 = -1

// Kernel is the singleton kernel core for one CPU instance. Parallel
// execution across cores is modeled as independent per-core Kernel
// instances that never share state; this type is that one instance.
type Kernel struct {
	mu sync.Mutex

	cfg   kconfig.Config
	table *tcb.Table
	alloc kalloc.Allocator
	hal   khal.HAL

	runQueue       *kqueue.FIFO
	delayQueue     *kqueue.FIFO
	rtQueue        *kqueue.FIFO
	aperiodicQueue *kqueue.FIFO

	rtPolicy policy.RTPolicy
	bePolicy policy.RoundRobin

	clk *clock.TickClock

	currentID int32
	idleID    int32
	serverID  int32
	hasIdle   bool
	hasServer bool

	schedLock bool

	coopSwitches    int64
	preemptSwitches int64
	interrupts      int64
	tickTimeUS      int64

	events    chan Event
	csvFile   *os.File
	csvWriter *csv.Writer

	metrics *kmetrics.Metrics

	rng *rand.Rand
}

// New constructs a Kernel from cfg. It clears the TCB table, the PCB
// counters, and initializes the four queues, folded into construction
// since Go gives us a real constructor instead of a sequence of
// global-clearing calls.
func New(cfg kconfig.Config) (*Kernel, error) {
	runQ, err := kqueue.Create(cfg.MaxTasks)
	if err != nil {
		return nil, err
	}
	delayQ, err := kqueue.Create(cfg.MaxTasks)
	if err != nil {
		return nil, err
	}
	rtQ, err := kqueue.Create(cfg.MaxTasks)
	if err != nil {
		return nil, err
	}
	aperQ, err := kqueue.Create(cfg.MaxTasks)
	if err != nil {
		return nil, err
	}

	k := &Kernel{
		cfg:            cfg,
		table:          tcb.NewTable(cfg.MaxTasks),
		alloc:          &kalloc.Heap{Limit: cfg.HeapBytes},
		hal:            khal.NewCore(),
		runQueue:       runQ,
		delayQueue:     delayQ,
		rtQueue:        rtQ,
		aperiodicQueue: aperQ,
		rtPolicy:       policy.ForName(string(cfg.RTPolicy)),
		clk:            clock.New(256),
		currentID:      idSentinel,
		idleID:         idSentinel,
		serverID:       idSentinel,
		schedLock:      true, // released by the idle task's first run
		events:         make(chan Event, 256),
		rng:            rand.New(rand.NewSource(1)),
	}
	return k, nil
}

// SetMetrics wires a kmetrics.Metrics instance so the dispatcher and
// lifecycle API publish PCB counters as they change. Optional; a nil
// metrics (the zero value) keeps the kernel fully usable without a
// Prometheus registry, for tests.
func (k *Kernel) SetMetrics(m *kmetrics.Metrics) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.metrics = m
}

// EnableCSVTrace opens path for CSV logging of kernel events -- dispatch,
// preempt, finish, deadline-miss. Must be called before Boot.
func (k *Kernel) EnableCSVTrace(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	w.Write([]string{"timestamp", "tick", "event", "task_id", "detail"})
	w.Flush()
	k.csvFile = f
	k.csvWriter = w
	return nil
}

// Events exposes the kernel's event stream for external consumers (logs,
// the cmd binary's console output). Events are never required reading;
// an unread, full channel simply drops further events rather than
// blocking the dispatcher -- see emit.
func (k *Kernel) Events() <-chan Event { return k.events }

// Boot performs the kernel's initialization order: lock scheduling,
// spawn the idle task, spawn the polling server, optionally spawn the
// aperiodic generator, run appMain so the application can spawn its own
// tasks, perform the first dispatch (one window of the idle task, whose
// first run releases the scheduling lock), then start the tick clock
// and return. It blocks only for that one window; callers drain
// Events() and/or call Run to pump ticks.
func (k *Kernel) Boot(appMain func(*Kernel)) error {
	k.mu.Lock()
	k.schedLock = true
	k.mu.Unlock()

	idleID, err := k.Spawn(idleEntry(k), 0, 0, 0, 0, "idle task", 1024)
	if err != nil {
		return fmt.Errorf("boot: spawn idle task: %w", err)
	}
	k.mu.Lock()
	k.idleID = idleID
	k.hasIdle = true
	k.mu.Unlock()

	serverID, err := k.Spawn(nil, k.cfg.ServerPeriodTicks, k.cfg.ServerCapacityTicks, k.cfg.ServerPeriodTicks, 0, "polling server", 1024)
	if err != nil {
		return fmt.Errorf("boot: spawn polling server: %w", err)
	}
	k.mu.Lock()
	k.serverID = serverID
	k.hasServer = true
	k.mu.Unlock()

	if k.cfg.SpawnAperiodicGenerator {
		genEntry := generatorEntry(k)
		if _, err := k.Spawn(genEntry, 10, 2, 10, 0, "aperiodic task generator", 1024); err != nil {
			return fmt.Errorf("boot: spawn aperiodic generator: %w", err)
		}
	}

	if appMain != nil {
		appMain(k)
	}

	k.mu.Lock()
	idle := k.table.Get(k.idleID)
	idle.State = tcb.StateRunning
	k.currentID = k.idleID
	idleCtx, _ := idle.Context.(*ctxswitch.Context)
	k.mu.Unlock()
	if idleCtx != nil {
		window, cancel := context.WithTimeout(context.Background(), time.Duration(k.cfg.TickMS)*time.Millisecond)
		idleCtx.Restore(window)
		cancel()
	}

	k.clk.Start(time.Duration(k.cfg.TickMS) * time.Millisecond)
	return nil
}

// Run pumps ticks from the kernel's clock into the dispatcher until
// stop is closed. It is the Go analogue of the hardware tick ISR being
// wired to fire forever; callers typically run it in its own goroutine.
func (k *Kernel) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			k.clk.Stop()
			if k.csvFile != nil {
				k.csvWriter.Flush()
				k.csvFile.Close()
			}
			return
		case _, ok := <-k.clk.Ch:
			if !ok {
				return
			}
			k.onTick()
		}
	}
}

// Tick drives the dispatcher exactly once, bypassing the tick clock --
// used by tests that want deterministic, synchronous control.
func (k *Kernel) Tick() {
	k.onTick()
}

func (k *Kernel) panic(code kerrors.PanicCode) {
	kerrors.Panic(code)
}

// CPUID returns the identity of the core this kernel instance runs on.
// Always 0: this kernel models exactly one core and does not coordinate
// scheduling across multiple CPUs.
func (k *Kernel) CPUID() int { return k.hal.CPUID() }
