// Package pollserver implements the polling-server mechanism for
// aperiodic dispatch: a standing real-time task that spends a
// per-period fuel budget draining the aperiodic queue.
//
// Budget settlement is atomic kernel-side bookkeeping rather than a
// literal tick-by-tick execution of each job's body: the server, not
// the job, remains the scheduling entity the outer dispatcher ever
// sees running. A job's own Entry is never invoked by this package;
// its capacity is pure accounting, same currency as any real-time
// task's.
package pollserver

import (
	"hellfirekernel/internal/kqueue"
	"hellfirekernel/internal/tcb"
)

// EventKind classifies one iteration of the server's drain loop.
type EventKind int

const (
	EventIdle      EventKind = iota // aperiodic queue was empty; voluntary give-up
	EventCompleted                  // a job ran to completion within budget
	EventPartial                    // a job partially ran; budget exhausted, job re-queued
)

// Event records the outcome of one iteration, for logging/metrics.
type Event struct {
	Kind  EventKind
	JobID int32
	Spent int64 // fuel spent this iteration
}

// step performs exactly one drain iteration: take the job at the head
// of the aperiodic queue, spend fuel against it, and report whether it
// completed, made partial progress, or found nothing to do.
func step(server *tcb.Task, aperiodic *kqueue.FIFO, table *tcb.Table) Event {
	if aperiodic.Count() == 0 {
		return Event{Kind: EventIdle}
	}

	jobID, err := aperiodic.Remove()
	if err != nil {
		return Event{Kind: EventIdle}
	}
	job := table.Get(jobID)
	if job == nil || job.State == tcb.StateIdle {
		return Event{Kind: EventIdle}
	}

	if server.CapacityRem >= job.CapacityRem {
		spent := job.CapacityRem
		server.CapacityRem -= spent
		job.BGJobs++
		table.Free(jobID)
		return Event{Kind: EventCompleted, JobID: jobID, Spent: spent}
	}

	spent := server.CapacityRem
	job.CapacityRem -= spent
	server.CapacityRem = 0
	aperiodic.AddTail(jobID)
	return Event{Kind: EventPartial, JobID: jobID, Spent: spent}
}

// RunOnce drains the aperiodic queue against server's remaining fuel
// (its TCB's CapacityRem) for as long as each pull fully completes a
// job and fuel remains -- i.e. it performs as many hand-offs as its
// current period's budget allows in one dispatch, so a second job can
// complete in the same release the first one finishes in. It stops the
// moment a pull is only partially covered (fuel spent, job re-queued)
// or the aperiodic queue is empty.
func RunOnce(server *tcb.Task, aperiodic *kqueue.FIFO, table *tcb.Table) []Event {
	var events []Event
	for {
		ev := step(server, aperiodic, table)
		events = append(events, ev)
		if ev.Kind != EventCompleted || server.CapacityRem <= 0 {
			break
		}
	}
	return events
}
