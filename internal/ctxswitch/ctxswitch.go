// Package ctxswitch is the kernel's context-switch primitive: an
// explicit contract in place of a "returns twice" setjmp/longjmp-style
// jump, which defeats type-level reasoning in a safety-oriented
// language. Restore transfers control to a task for exactly one
// dispatch window and does not return to its caller until that window
// ends, one way or another.
//
// There is no assembly here and no saved register file -- the "context"
// a task resumes into is whatever its own entry closure captured last
// time it ran, carrying state like a partially-elapsed sleep across
// dispatches. The compiler never sees control flow re-enter
// mid-function; every dispatch is an ordinary, type-checked call.
package ctxswitch

import (
	"context"
	"errors"

	"hellfirekernel/internal/tcb"
)

// ErrNotPrepared is returned by Restore if called on a zero Context.
var ErrNotPrepared = errors.New("ctxswitch: context not prepared")

// Context stands in for the HAL's jump buffer. Prepare constructs one
// bound to a task's entry point; Restore is the sole path into the task
// after that.
type Context struct {
	entry   tcb.Entry
	started bool
}

// Prepare builds a context-switch handle for entry. It does not start
// the task; the first Restore does that, exactly as stack_prepare
// constructs a jump buffer whose first restore starts the task at its
// entry point on the prepared stack.
func Prepare(entry tcb.Entry) *Context {
	return &Context{entry: entry}
}

// Started reports whether this task has been dispatched at least once.
func (c *Context) Started() bool { return c != nil && c.started }

// Restore transfers control to the task for one dispatch window bounded
// by window. It returns when the window's Done fires and the entry
// notices (preemption -- the task remains READY/RUNNABLE and will be
// Restored again later), when the entry returns nil (the job or task
// has finished), or when the entry returns any other error (a genuine
// task failure, treated as task exit by the dispatcher).
func (c *Context) Restore(window context.Context) error {
	if c == nil || c.entry == nil {
		return ErrNotPrepared
	}
	c.started = true
	return c.entry(window)
}
