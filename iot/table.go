// SPDX-License-Identifier: GPL-3.0-or-later

package iot

import (
	"net"
	"time"
)

// Timer is a single, re-armable deferred callback, the shared primitive
// [ioctx.Ctx] uses for its async-error timer.
type Timer interface {
	// Arm schedules the timer's callback to fire after d. A timer
	// already armed is first disarmed. d == 0 fires on the next tick of
	// the underlying table's dispatch loop.
	Arm(d time.Duration)

	// Disarm cancels a pending fire. Idempotent: disarming an unarmed
	// or already-fired timer is a no-op.
	Disarm()
}

// Watcher is the handle returned by [EventOps.Watch]. The caller
// re-arms it after every delivered edge with the readiness it still
// wants, per the event-mode contract: deliver once, then re-arm or
// cancel.
type Watcher interface {
	// Rearm changes the watched readiness. want == 0 disarms the
	// watcher without destroying it (a subsequent Rearm reactivates it).
	Rearm(want Want) error

	// Cancel destroys the watcher. Idempotent.
	Cancel()
}

// EventOps is the capability set a [Table] in [ModeEvent] exposes.
type EventOps interface {
	// Watch registers conn for readiness delivery. onReady is invoked
	// from the table's single dispatch goroutine with the edge(s) that
	// fired; the caller (normally [ioctx.Ctx]) re-arms or cancels the
	// returned [Watcher] from within onReady or shortly after.
	Watch(conn net.Conn, want Want, onReady func(Want)) (Watcher, error)
}

// CompletionOps is the capability set a [Table] in [ModeCompletion]
// exposes.
type CompletionOps interface {
	// PostRead posts an asynchronous read of up to len(buf) bytes into
	// buf. done is invoked from the table's single dispatch goroutine
	// once the read completes (n > 0), fails, or observes EOF.
	PostRead(conn net.Conn, buf []byte, done func(n int, err error))

	// PostWrite posts an asynchronous vectored write of iov. done is
	// invoked from the table's single dispatch goroutine once every
	// byte has been written or a write fails.
	PostWrite(conn net.Conn, iov [][]byte, done func(n int, err error))
}

// Table is the capability-bearing transport abstraction an [ioctx.Ctx]
// binds to. A Table commits to exactly one [Mode] for its lifetime and
// exposes the matching one of [EventOps]/[CompletionOps].
//
// Both concrete tables in this package (event_unix.go, completion_chan.go)
// funnel every callback invocation through a single dispatch goroutine,
// so a Ctx bound to one Table never sees concurrent callbacks — matching
// the single-threaded-cooperative contract the rest of this module
// assumes.
type Table interface {
	Mode() Mode

	// NewTimer constructs a [Timer] whose callback f runs on this
	// table's dispatch goroutine.
	NewTimer(f func()) Timer

	// EventOps returns this table's event-mode operations and true, or
	// (nil, false) if Mode() != ModeEvent.
	EventOps() (EventOps, bool)

	// CompletionOps returns this table's completion-mode operations and
	// true, or (nil, false) if Mode() != ModeCompletion.
	CompletionOps() (CompletionOps, bool)
}
