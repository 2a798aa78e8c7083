//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: https://github.com/rbmk-project/rbmk/blob/v0.17.0/pkg/common/errclass/unix.go
//

// Package errclass classifies socket- and protocol-level errors.
//
// It provides two layers. [New] classifies a raw error into a short,
// low-level errno-style label (e.g. "ETIMEDOUT", "ECONNRESET"), useful
// for structured logging and cross-platform analysis. [KindOf] maps a
// raw or already-kinded error onto one of the seven high-level [Kind]
// values this module's components return to their callers.
package errclass

// Kind categorizes an error into one of the seven kinds this module's
// core surfaces to its callers.
type Kind int

const (
	// KindUnknown means the error could not be categorized; callers
	// should treat it the same as [KindNetwork].
	KindUnknown Kind = iota

	// KindNetwork is a generic socket failure.
	KindNetwork

	// KindShutdown means the peer closed the connection.
	KindShutdown

	// KindOutOfMemory means a packet allocator or buffer manager
	// reservation failed.
	KindOutOfMemory

	// KindTimeout means a pipeline timeout sweep expired a request.
	KindTimeout

	// KindProtocol means a response carried an unknown opcode or was
	// otherwise malformed.
	KindProtocol

	// KindConfigFetchFailure means a single configuration provider's
	// refresh attempt failed.
	KindConfigFetchFailure

	// KindAllProvidersExhausted means a full provider cycle completed
	// without producing a usable configuration.
	KindAllProvidersExhausted
)

// String returns the canonical name of k.
func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "NetworkError"
	case KindShutdown:
		return "ShutdownError"
	case KindOutOfMemory:
		return "OutOfMemory"
	case KindTimeout:
		return "Timeout"
	case KindProtocol:
		return "ProtocolError"
	case KindConfigFetchFailure:
		return "ConfigFetchFailure"
	case KindAllProvidersExhausted:
		return "AllProvidersExhausted"
	default:
		return "Unknown"
	}
}
