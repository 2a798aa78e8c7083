// SPDX-License-Identifier: GPL-3.0-or-later

// Package vbc provides the core of a cluster-aware memcached-protocol
// client: a pull-based configuration monitor that tracks the current
// vbucket topology, and a per-server request pipeline that frames,
// schedules, and dispatches binary-protocol commands against that
// topology.
//
// # Core Abstractions
//
// The monitor side lives in [github.com/shardkv/vbc/confmon]: a
// Monitor walks a prioritized chain of Provider implementations,
// installs the newest ConfigInfo, and notifies listeners of topology
// changes.
//
// The pipeline side lives in [github.com/shardkv/vbc/mcreq]: a
// CommandQueue holds one Pipeline per server slot. Commands are staged
// inside a scheduling transaction (CommandQueue.SchedEnter) and
// committed or rolled back as a unit, then flushed to the network in
// opaque order.
//
// Socket I/O is abstracted behind [github.com/shardkv/vbc/iot] (event
// vs. completion transports) and driven per connection by
// [github.com/shardkv/vbc/ioctx.Ctx].
//
// # Ambient Stack
//
// This root package wires the concerns shared by every other package:
// a [Config] carrying defaults (dialer, error classifier, clock, grace
// tunables), an [SLogger] abstraction compatible with [log/slog.Logger],
// an [ErrClassifier] built on [github.com/shardkv/vbc/errclass], a
// [Connector] whose [Connector.Dial] opens and logs pipeline sockets, and
// an [Observer] that wraps a [net.Conn] to log its I/O, for use by
// [github.com/shardkv/vbc/ioctx.Ctx].
//
// By default, logging is disabled: pass a real [*slog.Logger] to enable
// it. Structured events share a common field set: localAddr,
// remoteAddr, protocol, t (timestamp); completion events additionally
// carry t0, err, and errClass. Use [NewSpanID] to mint a UUIDv7 and
// attach it to a logger with [*slog.Logger.With] so every event from one
// operation (a refresh, a dial, a flush) shares a correlatable ID.
//
// # Connection Lifecycle
//
// [Connector.Dial] creates a connection and transfers ownership to the
// caller on success; on error it returns the [Dialer]'s result unchanged
// and closes nothing itself. [CancelWatch] binds a
// connection's lifetime to a context: when the context is done, the
// connection is closed immediately, which is what makes blocking reads
// inside [github.com/shardkv/vbc/ioctx.Ctx]'s completion-mode workers
// responsive to cancellation.
//
// # Out of Scope
//
// TLS, SASL authentication, HTTP-based configuration bootstrap, and the
// user-facing command-building API are not part of this module. They
// are expected to be supplied by a surrounding client that composes
// this core with its own transport and command layer.
package vbc
