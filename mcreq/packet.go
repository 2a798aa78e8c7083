// SPDX-License-Identifier: GPL-3.0-or-later

package mcreq

import (
	"container/list"
	"time"
)

// Cookie carries whatever correlation data the caller attached to a
// packet, plus the callback invoked when the packet is finalized or
// explicitly failed.
type Cookie struct {
	Value    any
	Callback func(pkt *Packet, err error)
}

// Value holds a packet's optional value payload in one of three shapes:
// a manager-owned copy, a caller-owned contiguous buffer, or a
// pipeline-owned copy of a scatter/gather descriptor array.
type Value struct {
	span        Span     // valid when HasValue && !ValueNoCopy
	raw         []byte   // valid when HasValue && ValueNoCopy && !ValueIOV
	iov         [][]byte // valid when HasValue && ValueIOV
	totalLength int
}

// TotalLength returns the value's total byte length, zero if the packet
// carries no value.
func (v Value) TotalLength() int {
	return v.totalLength
}

// IOV returns the scatter/gather descriptor array and true, if the
// value was reserved from one.
func (v Value) IOV() ([][]byte, bool) {
	if v.iov == nil {
		return nil, false
	}
	return v.iov, true
}

// Packet is one in-flight (or staged, or detached) protocol frame.
//
// A Packet is always obtained from [Pipeline.AllocatePacket] (or
// produced by [Packet.DupPacket]) and returned via the pipeline's
// allocator once both FlagFlushed and FlagInvoked are set; callers never
// construct one directly.
type Packet struct {
	Opaque    uint32
	ExtLen    uint8
	Flags     Flags
	Retries   uint32
	Cookie    Cookie
	StartTime time.Time

	headerSpan Span   // valid unless FlagKeyNoCopy or FlagDetached
	headerRaw  []byte // valid when FlagKeyNoCopy or FlagDetached
	keyLen     int

	value Value

	pipeline *Pipeline    // owning pipeline; nil if Detached and unbound
	owner    *list.List   // which FIFO currently holds elem, nil if neither
	elem     *list.Element // this packet's node within owner
}

// Opcode recovers the request opcode from the packet's header bytes.
func (pkt *Packet) Opcode() Opcode {
	hdr := pkt.HeaderBytes()
	if len(hdr) < 2 {
		return 0
	}
	return Opcode(hdr[1])
}

// KeyLen returns the key length reserved via [Pipeline.ReserveKey].
func (pkt *Packet) KeyLen() int {
	return pkt.keyLen
}

// Key returns the key bytes, which immediately follow the header+extras
// region reserved by [Pipeline.ReserveKey].
func (pkt *Packet) Key() []byte {
	hdr := pkt.HeaderBytes()
	start := len(hdr) - pkt.keyLen
	if start < 0 {
		return nil
	}
	return hdr[start:]
}

// HeaderBytes returns the packet's header+extras+key region.
func (pkt *Packet) HeaderBytes() []byte {
	if pkt.Flags.Has(FlagKeyNoCopy) || pkt.Flags.Has(FlagDetached) {
		return pkt.headerRaw
	}
	return pkt.pipeline.bufMgr.bytes(pkt.headerSpan)
}

// Value returns the packet's value descriptor.
func (pkt *Packet) Value() Value {
	return pkt.value
}

// ValueBytes returns the contiguous value bytes and true, or false if
// the packet has no value or the value is a scatter/gather array.
func (pkt *Packet) ValueBytes() ([]byte, bool) {
	if !pkt.Flags.Has(FlagHasValue) || pkt.Flags.Has(FlagValueIOV) {
		return nil, false
	}
	if pkt.Flags.Has(FlagValueNoCopy) {
		return pkt.value.raw, true
	}
	return pkt.pipeline.bufMgr.bytes(pkt.value.span), true
}

// markFlushed sets FlagFlushed and finalizes the packet if FlagInvoked
// is already set.
func (pkt *Packet) markFlushed() {
	pkt.Flags |= FlagFlushed
	pkt.maybeFinalize()
}

// markInvoked sets FlagInvoked and finalizes the packet if FlagFlushed
// is already set.
func (pkt *Packet) markInvoked() {
	pkt.Flags |= FlagInvoked
	pkt.maybeFinalize()
}

func (pkt *Packet) maybeFinalize() {
	if pkt.Flags.Has(FlagFlushed | FlagInvoked) {
		pkt.pipeline.finalize(pkt)
	}
}

// unlink removes the packet from whichever FIFO currently holds it.
func (pkt *Packet) unlink() {
	if pkt.owner != nil && pkt.elem != nil {
		pkt.owner.Remove(pkt.elem)
	}
	pkt.owner = nil
	pkt.elem = nil
}
