// SPDX-License-Identifier: GPL-3.0-or-later

// Package ioctx binds a connected socket to a pipeline, presenting one
// read/write contract over either of [iot]'s two transport
// personalities.
package ioctx

import (
	"log/slog"
	"net"

	"github.com/shardkv/vbc"
	"github.com/shardkv/vbc/iot"
)

// State is a [Ctx]'s lifecycle state.
type State int

const (
	// StateActive means the context is bound to a live socket and may
	// still schedule reads and writes.
	StateActive State = iota

	// StateDetached means [Ctx.CloseEx] has run; no further I/O is
	// scheduled, and the context is freed once its last pending
	// operation and callback drain.
	StateDetached
)

// Ctx is the socket context (CTX): it owns a connection's read-want
// target, its pending output, and the glue between [iot]'s readiness
// or completion deliveries and the four user callbacks.
//
// A Ctx is driven from a single goroutine — the owning [iot.Table]'s
// dispatch goroutine — and performs no internal locking beyond that
// implicit serialization.
type Ctx struct {
	conn          net.Conn
	table         iot.Table
	logger        vbc.SLogger
	errClassifier vbc.ErrClassifier

	state    State
	npending int
	entered  int
	err      error

	rdwant int
	wwant  bool

	output *RB
	input  *RDB

	// OnRead is invoked once the input chain holds at least the
	// current read-want target, with the number of bytes the triggering
	// read or fill appended.
	OnRead func(ctx *Ctx, nb int)

	// OnError is invoked exactly once, shortly after the first error is
	// latched via an async timer so it never nests inside OnRead.
	OnError func(ctx *Ctx, err error)

	// OnFlushReady is invoked when a prior WWant's write-on-callback
	// request is ready to be serviced; the callback must call PutEx.
	OnFlushReady func(ctx *Ctx)

	// OnFlushDone is invoked after every write — both PutEx's and the
	// plain output-ring drain — with the bytes submitted and the bytes
	// actually transferred.
	OnFlushDone func(ctx *Ctx, submitted, transferred int)

	// OnFree is invoked once the context is fully detached, has no
	// pending operations, and is not inside any callback. Install this
	// to return the underlying socket's record to a pool.
	OnFree func(ctx *Ctx)

	asyncErrTimer iot.Timer
	watcher       iot.Watcher
	readInFlight  bool
	writeInFlight bool
}

// NewCtx binds conn to table and returns a [Ctx] in [StateActive].
func NewCtx(table iot.Table, conn net.Conn, cfg *vbc.Config, logger vbc.SLogger) *Ctx {
	ctx := &Ctx{
		conn:          conn,
		table:         table,
		logger:        logger,
		errClassifier: cfg.ErrClassifier,
		output:        newRB(0),
		input:         newRDB(0),
	}
	ctx.asyncErrTimer = table.NewTimer(ctx.fireOnError)
	return ctx
}

// State returns the context's current lifecycle state.
func (ctx *Ctx) State() State { return ctx.state }

// Err returns the latched error, if any.
func (ctx *Ctx) Err() error { return ctx.err }

// Pending returns the number of in-flight completion-mode operations.
// Always zero in event mode.
func (ctx *Ctx) Pending() int { return ctx.npending }

// Input returns the context's chained receive buffer.
func (ctx *Ctx) Input() *RDB { return ctx.input }

// Output returns the context's pending-write ring buffer. Callers
// append to it directly (e.g. a pipeline's flush path) and then call
// [Ctx.WWant] or rely on the next scheduling pass to drain it.
func (ctx *Ctx) Output() *RB { return ctx.output }

// RWant sets the number of bytes OnRead should wait for before firing
// and (re)schedules I/O accordingly.
func (ctx *Ctx) RWant(n int) {
	ctx.rdwant = n
	ctx.schedule()
}

// WWant arranges for OnFlushReady to run on the next writable edge
// (event mode) or immediately (completion mode), during which the
// caller must call PutEx to submit a gathered write.
func (ctx *Ctx) WWant() {
	ctx.wwant = true
	ctx.schedule()
}

// PutEx submits a gathered write of iov from within an OnFlushReady
// callback. It returns the number of bytes submitted; OnFlushDone
// reports how many were actually transferred once the write completes
// (synchronously, in event mode; asynchronously, in completion mode).
func (ctx *Ctx) PutEx(iov [][]byte) int {
	total := 0
	for _, b := range iov {
		total += len(b)
	}
	if total == 0 {
		return 0
	}

	if ctx.table.Mode() == iot.ModeEvent {
		nw, err := writeVectored(ctx.conn, iov)
		if err != nil {
			ctx.senderr(err)
		}
		if ctx.OnFlushDone != nil {
			ctx.OnFlushDone(ctx, total, nw)
		}
		return total
	}

	ops, _ := ctx.table.CompletionOps()
	ctx.npending++
	ops.PostWrite(ctx.conn, iov, func(n int, err error) {
		ctx.npending--
		ctx.withEntered(func() {
			if err != nil {
				ctx.senderr(err)
			}
			if ctx.OnFlushDone != nil {
				ctx.OnFlushDone(ctx, total, n)
			}
		})
		ctx.maybeFree()
	})
	return total
}

// writeVectored writes iov to conn via [net.Buffers], the standard
// library's vectored-write support — the idiomatic Go stand-in for an
// explicit sendv/writev call. It consumes a copy of iov, since
// net.Buffers.WriteTo mutates the slice it's given.
func writeVectored(conn net.Conn, iov [][]byte) (int, error) {
	buffers := net.Buffers(append([][]byte(nil), iov...))
	n64, err := buffers.WriteTo(conn)
	return int(n64), err
}

// withEntered brackets f with the re-entrancy counter: schedule()
// becomes a no-op for its duration, so nested RWant/WWant/PutEx calls
// from within a callback are recorded but their actual syscalls are
// deferred until the outermost callback returns.
func (ctx *Ctx) withEntered(f func()) {
	ctx.entered++
	defer func() {
		ctx.entered--
		if ctx.entered == 0 {
			ctx.schedule()
		}
	}()
	f()
}

// senderr latches the first error, deactivates the watcher, and arms a
// zero-delay async timer so OnError runs from a clean stack rather
// than nested inside whatever callback observed the failure.
func (ctx *Ctx) senderr(err error) {
	if ctx.err != nil {
		return
	}
	ctx.err = err
	if ctx.watcher != nil {
		ctx.watcher.Cancel()
		ctx.watcher = nil
	}
	ctx.logger.Debug("ioctxError",
		slog.Any("err", err),
		slog.String("errClass", ctx.errClassifier.Classify(err)),
		slog.String("remoteAddr", connRemoteAddr(ctx.conn)),
	)
	ctx.asyncErrTimer.Arm(0)
}

// connRemoteAddr returns conn's remote address, or "" if conn is nil.
func connRemoteAddr(conn net.Conn) string {
	if conn == nil {
		return ""
	}
	return conn.RemoteAddr().String()
}

func (ctx *Ctx) fireOnError() {
	ctx.withEntered(func() {
		if ctx.OnError != nil {
			ctx.OnError(ctx, ctx.err)
		}
	})
}

// schedule re-evaluates what I/O should be outstanding. It is a no-op
// while a callback is running, while detached, or once an error has
// latched.
func (ctx *Ctx) schedule() {
	if ctx.entered > 0 || ctx.state == StateDetached || ctx.err != nil {
		return
	}
	if ctx.table.Mode() == iot.ModeEvent {
		ctx.scheduleEvent()
	} else {
		ctx.scheduleCompletion()
	}
}

func (ctx *Ctx) scheduleEvent() {
	ops, _ := ctx.table.EventOps()

	var want iot.Want
	if ctx.rdwant > 0 {
		want |= iot.WantRead
	}
	if ctx.wwant || ctx.output.Len() > 0 {
		want |= iot.WantWrite
	}

	if want == 0 {
		if ctx.watcher != nil {
			ctx.watcher.Rearm(0)
		}
		return
	}
	if ctx.watcher == nil {
		w, err := ops.Watch(ctx.conn, want, ctx.onEventReady)
		if err != nil {
			ctx.senderr(err)
			return
		}
		ctx.watcher = w
		return
	}
	if err := ctx.watcher.Rearm(want); err != nil {
		ctx.senderr(err)
	}
}

func (ctx *Ctx) onEventReady(w iot.Want) {
	if w.Has(iot.WantRead) {
		ctx.handleReadable()
	}
	if w.Has(iot.WantWrite) {
		ctx.handleWritable()
	}
}

func (ctx *Ctx) handleReadable() {
	ctx.withEntered(func() {
		n, err := ctx.input.Fill(ctx.conn)
		if n > 0 && ctx.rdwant > 0 && ctx.input.Len() >= ctx.rdwant {
			if ctx.OnRead != nil {
				ctx.OnRead(ctx, n)
			}
		}
		if err != nil {
			ctx.senderr(err)
		}
	})
}

func (ctx *Ctx) handleWritable() {
	ctx.withEntered(func() {
		if ctx.wwant {
			ctx.wwant = false
			if ctx.OnFlushReady != nil {
				ctx.OnFlushReady(ctx)
			}
			return
		}
		if ctx.output.Len() == 0 {
			return
		}
		total := ctx.output.Len()
		nw, err := writeVectored(ctx.conn, ctx.output.PeekIOV(-1))
		ctx.output.Consume(nw)
		if err != nil {
			ctx.senderr(err)
		}
		if ctx.OnFlushDone != nil {
			ctx.OnFlushDone(ctx, total, nw)
		}
	})
}

func (ctx *Ctx) scheduleCompletion() {
	ops, _ := ctx.table.CompletionOps()

	if ctx.output.Len() > 0 && !ctx.writeInFlight {
		iov := ctx.output.PeekIOV(-1)
		total := ctx.output.Len()
		ctx.writeInFlight = true
		ctx.npending++
		ops.PostWrite(ctx.conn, iov, func(n int, err error) {
			ctx.writeInFlight = false
			ctx.npending--
			ctx.output.Consume(n)
			ctx.withEntered(func() {
				if err != nil {
					ctx.senderr(err)
				}
				if ctx.OnFlushDone != nil {
					ctx.OnFlushDone(ctx, total, n)
				}
			})
			ctx.maybeFree()
		})
	}

	if ctx.rdwant > 0 && !ctx.readInFlight {
		size := ctx.rdwant
		if size < defaultChunkSize {
			size = defaultChunkSize
		}
		buf := make([]byte, size)
		ctx.readInFlight = true
		ctx.npending++
		ops.PostRead(ctx.conn, buf, func(n int, err error) {
			ctx.readInFlight = false
			ctx.npending--
			if n > 0 {
				ctx.input.Append(buf[:n])
			}
			ctx.withEntered(func() {
				if n > 0 && ctx.rdwant > 0 && ctx.input.Len() >= ctx.rdwant {
					if ctx.OnRead != nil {
						ctx.OnRead(ctx, n)
					}
				}
				if err != nil {
					ctx.senderr(err)
				}
			})
			ctx.maybeFree()
		})
	}

	if ctx.wwant {
		ctx.wwant = false
		ctx.withEntered(func() {
			if ctx.OnFlushReady != nil {
				ctx.OnFlushReady(ctx)
			}
		})
	}
}

// CloseCallback reports whether the underlying socket may be reused
// for a fresh [Ctx] (no pending ops, no latched error, no outstanding
// read or write interest).
type CloseCallback func(conn net.Conn, reusable bool)

// CloseEx transitions the context to [StateDetached], tears down its
// watcher and timer, and reports reuse eligibility via cb. The context
// frees immediately (invoking OnFree) if nothing is pending and no
// callback is currently running; otherwise freeing is deferred until
// the last completion or callback drains.
func (ctx *Ctx) CloseEx(cb CloseCallback) {
	ctx.state = StateDetached
	if ctx.watcher != nil {
		ctx.watcher.Cancel()
		ctx.watcher = nil
	}
	ctx.asyncErrTimer.Disarm()

	reusable := ctx.npending == 0 &&
		ctx.err == nil &&
		ctx.rdwant == 0 &&
		!ctx.wwant &&
		ctx.output.Len() == 0

	ctx.logger.Info("ioctxClose",
		slog.Bool("reusable", reusable),
		slog.Int("pending", ctx.npending),
		slog.String("remoteAddr", connRemoteAddr(ctx.conn)),
	)

	if cb != nil {
		cb(ctx.conn, reusable)
	}
	ctx.maybeFree()
}

func (ctx *Ctx) maybeFree() {
	if ctx.state == StateDetached && ctx.npending == 0 && ctx.entered == 0 {
		if ctx.OnFree != nil {
			ctx.OnFree(ctx)
		}
	}
}
