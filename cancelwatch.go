// SPDX-License-Identifier: GPL-3.0-or-later

package vbc

import (
	"context"
	"net"
)

// CancelWatch arranges for conn to be closed when ctx is done (cancelled or
// deadline exceeded). This provides responsive cleanup on external
// cancellation (e.g., SIGINT via signal.NotifyContext) rather than waiting
// for a pipeline timeout sweep.
//
// The returned connection wraps conn. Closing the returned connection
// unregisters the context watcher and closes the underlying connection.
// This ensures no goroutine leaks even if the context is never cancelled.
//
// The watcher is safe to use with any [net.Conn] implementation because
// Go's standard library uses the [net.ErrClosed] pattern: closing an
// already-closed connection returns [net.ErrClosed], and I/O operations on
// a closed connection fail gracefully.
//
// Use this when the context lifetime matches the intended connection
// lifetime and immediate cleanup on cancellation is desired. Do not use it
// for a pooled or long-lived connection whose lifetime outlives any single
// context.
func CancelWatch(ctx context.Context, conn net.Conn) net.Conn {
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	return &cancelWatchedConn{Conn: conn, stop: stop}
}

// cancelWatchedConn wraps a [net.Conn] with a context cancellation watcher.
type cancelWatchedConn struct {
	net.Conn
	stop func() bool
}

// Close unregisters the context watcher and closes the underlying connection.
func (c *cancelWatchedConn) Close() error {
	c.stop()
	return c.Conn.Close()
}
