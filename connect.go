//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/ooni/probe-cli/blob/v3.20.1/internal/netxlite/dialer.go
// Adapted from: https://github.com/rbmk-project/rbmk/blob/v0.17.0/pkg/x/netcore/dialer.go
//

package vbc

import (
	"context"
	"log/slog"
	"net"
	"time"
)

// NewConnector returns a new [*Connector] wired from cfg.
//
// The network argument must be "tcp" (the wire protocol frames this
// module builds are stream-oriented). The logger argument is the
// [SLogger] to use for structured logging.
func NewConnector(cfg *Config, network string, logger SLogger) *Connector {
	return &Connector{
		Dialer:        cfg.Dialer,
		ErrClassifier: cfg.ErrClassifier,
		Logger:        logger,
		Network:       network,
		TimeNow:       cfg.TimeNow,
	}
}

// Connector dials a pipeline socket to a server address.
//
// All fields are safe to modify after construction but before first use.
// Fields must not be mutated concurrently with calls to [Connector.Dial].
type Connector struct {
	// Dialer is the [Dialer] to use.
	//
	// Set by [NewConnector] from [Config.Dialer].
	Dialer Dialer

	// ErrClassifier classifies errors for structured logging.
	//
	// Set by [NewConnector] from [Config.ErrClassifier].
	ErrClassifier ErrClassifier

	// Logger is the [SLogger] to use (configurable for testing or custom logging).
	//
	// Set by [NewConnector] to the user-provided logger.
	Logger SLogger

	// Network is the network to use, normally "tcp".
	//
	// Set by [NewConnector] to the user-provided value.
	Network string

	// TimeNow is the function to get the current time (configurable for testing).
	//
	// Set by [NewConnector] from [Config.TimeNow].
	TimeNow func() time.Time
}

// Dial connects to address (host:port) and returns the resulting [net.Conn].
//
// Returns either a valid conn or an error, never both. On error the
// underlying dialer is responsible for not leaking a half-open socket.
func (op *Connector) Dial(ctx context.Context, address string) (net.Conn, error) {
	t0 := op.TimeNow()
	deadline, _ := ctx.Deadline()
	op.logConnectStart(address, t0, deadline)
	conn, err := op.Dialer.DialContext(ctx, op.Network, address)
	op.logConnectDone(address, t0, deadline, conn, err)
	return conn, err
}

func (op *Connector) logConnectStart(address string, t0 time.Time, deadline time.Time) {
	op.Logger.Info(
		"connectStart",
		slog.Time("deadline", deadline),
		slog.String("protocol", op.Network),
		slog.String("remoteAddr", address),
		slog.Time("t", t0),
	)
}

func (op *Connector) logConnectDone(
	address string, t0 time.Time, deadline time.Time, conn net.Conn, err error) {
	op.Logger.Info(
		"connectDone",
		slog.Time("deadline", deadline),
		slog.Any("err", err),
		slog.String("errClass", op.ErrClassifier.Classify(err)),
		slog.String("localAddr", connLocalAddr(conn)),
		slog.String("protocol", op.Network),
		slog.String("remoteAddr", address),
		slog.Time("t0", t0),
		slog.Time("t", op.TimeNow()),
	)
}

// connLocalAddr returns conn's local address, or "" if conn is nil (the
// dial failed before a socket came into being).
func connLocalAddr(conn net.Conn) string {
	if conn == nil {
		return ""
	}
	return conn.LocalAddr().String()
}
