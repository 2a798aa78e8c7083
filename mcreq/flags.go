// SPDX-License-Identifier: GPL-3.0-or-later

package mcreq

// Flags is the 16-bit flag set carried by every [Packet].
type Flags uint16

const (
	// FlagKeyNoCopy marks a packet whose header+key bytes live in
	// caller-owned storage rather than the pipeline's coalescing
	// buffer manager.
	FlagKeyNoCopy Flags = 1 << iota

	// FlagValueNoCopy marks a packet whose value bytes are borrowed
	// from the caller rather than copied into the pipeline's manager.
	FlagValueNoCopy

	// FlagValueIOV marks a packet whose value is a scatter/gather
	// array rather than a single contiguous span.
	FlagValueIOV

	// FlagHasValue marks a packet that carries a value at all.
	FlagHasValue

	// FlagReqExt marks a packet with an extended (out-of-line) cookie
	// record rather than an inline one.
	FlagReqExt

	// FlagForwarded marks a packet relocated from another pipeline,
	// e.g. after a topology change.
	FlagForwarded

	// FlagFlushed marks a packet whose output the writer has already
	// consumed. Combined with FlagInvoked, the packet is finalized.
	FlagFlushed

	// FlagInvoked marks a packet whose response handler has run, or
	// which was explicitly failed.
	FlagInvoked

	// FlagPassthrough marks a packet whose response should bypass
	// opcode-keyed dispatch and go straight to its own callback.
	FlagPassthrough

	// FlagDetached marks a packet produced by [Packet.DupPacket]:
	// its storage is independent of any pipeline's buffer manager.
	FlagDetached
)

// Has reports whether all bits in want are set.
func (f Flags) Has(want Flags) bool {
	return f&want == want
}
