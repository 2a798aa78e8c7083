// SPDX-License-Identifier: GPL-3.0-or-later

package vbc

import "github.com/google/uuid"

// NewSpanID returns a UUIDv7 representing a span.
//
// A span is a sequence of operations that can fail in a single, specific
// way: one configuration-provider refresh cycle, one pipeline flush, one
// socket dial. Attach the span ID to a logger with [*slog.Logger.With] so
// every event from that operation can be correlated.
//
// The span terminology is borrowed from OTel.
//
// This function panics if the system random number generator fails,
// which should only happen under extraordinary circumstances.
func NewSpanID() string {
	return uuid.Must(uuid.NewV7()).String()
}
