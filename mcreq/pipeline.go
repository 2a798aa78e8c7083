// SPDX-License-Identifier: GPL-3.0-or-later

package mcreq

import (
	"container/list"
	"time"

	"github.com/shardkv/vbc/errclass"
)

// IterAction is the outcome a [Pipeline.Iterwipe] callback returns for
// each visited packet.
type IterAction int

const (
	// Keep leaves the packet in place.
	Keep IterAction = iota

	// Remove detaches the packet and unlinks it from the pipeline's
	// request FIFO, without freeing it — the callback takes ownership,
	// typically to [Packet.DupPacket] and re-queue it elsewhere.
	Remove
)

// FailFunc is invoked once per packet by [Pipeline.Fail] and
// [Pipeline.Timeout].
type FailFunc func(pl *Pipeline, pkt *Packet, err error)

// Pipeline is the per-server request queue: a FIFO of in-flight
// requests, a staging FIFO for the currently open scheduling
// transaction, a packet allocator, and a coalescing buffer manager for
// header+key bytes.
//
// A Pipeline is driven from a single goroutine; it performs no internal
// locking.
type Pipeline struct {
	ServerIndex int

	requests  *list.List // FIFO of *Packet, committed in-flight
	ctxqueued *list.List // staging FIFO for the open transaction

	alloc  *packetAllocator
	bufMgr *bufManager

	// FlushStart is invoked by [SchedGuard.Leave] after splicing this
	// pipeline's staged packets onto requests, if the caller asked for
	// a flush.
	FlushStart func(pl *Pipeline)

	// BufDone is invoked when a packet finalizes (both FlagFlushed and
	// FlagInvoked set), after its header span has been released,
	// letting the caller know any borrowed key/value pointers are free.
	BufDone func(pl *Pipeline, pkt *Packet)
}

// NewPipeline constructs an empty pipeline for the given server slot.
func NewPipeline(serverIndex int) *Pipeline {
	return &Pipeline{
		ServerIndex: serverIndex,
		requests:    list.New(),
		ctxqueued:   list.New(),
		alloc:       newPacketAllocator(),
		bufMgr:      newBufManager(),
	}
}

// PendingRequests returns the number of packets currently in the
// committed requests FIFO.
func (pl *Pipeline) PendingRequests() int {
	return pl.requests.Len()
}

// AllocatePacket draws a zeroed packet from the pipeline's allocator.
func (pl *Pipeline) AllocatePacket() *Packet {
	pkt := pl.alloc.allocate()
	pkt.pipeline = pl
	return pkt
}

// ReserveHeader carves hdrLen bytes for pkt's header+extras region out
// of the pipeline's coalescing buffer manager.
func (pl *Pipeline) ReserveHeader(pkt *Packet, hdrLen int) {
	pkt.headerSpan = pl.bufMgr.reserve(hdrLen)
}

// ReserveKey carves hdrLen+len(key) bytes and appends key immediately
// after the header region.
func (pl *Pipeline) ReserveKey(pkt *Packet, hdrLen int, key []byte) {
	pkt.headerSpan = pl.bufMgr.reserve(hdrLen + len(key))
	buf := pl.bufMgr.bytes(pkt.headerSpan)
	copy(buf[hdrLen:], key)
	pkt.keyLen = len(key)
}

// ValueInput describes how [Pipeline.ReserveValue] should store a value.
type ValueInput struct {
	// Bytes is the value payload for a contiguous reservation. Used
	// when IOV is nil.
	Bytes []byte

	// NoCopy requests that Bytes be borrowed (the caller promises it
	// stays valid until the packet's completion callback runs) instead
	// of copied into the pipeline's buffer manager.
	NoCopy bool

	// IOV, if non-nil, requests a scatter/gather reservation: the
	// descriptor array is copied into pipeline-owned storage, but the
	// referenced byte slices themselves are always borrowed.
	IOV [][]byte
}

// ReserveValue attaches a value to pkt per the shape described by in.
func (pl *Pipeline) ReserveValue(pkt *Packet, in ValueInput) {
	switch {
	case in.IOV != nil:
		total := 0
		iovCopy := make([][]byte, len(in.IOV))
		for i, v := range in.IOV {
			iovCopy[i] = v
			total += len(v)
		}
		pkt.value = Value{iov: iovCopy, totalLength: total}
		pkt.Flags |= FlagHasValue | FlagValueIOV | FlagValueNoCopy

	case in.NoCopy:
		pkt.value = Value{raw: in.Bytes, totalLength: len(in.Bytes)}
		pkt.Flags |= FlagHasValue | FlagValueNoCopy

	default:
		sp := pl.bufMgr.reserve(len(in.Bytes))
		copy(pl.bufMgr.bytes(sp), in.Bytes)
		pkt.value = Value{span: sp, totalLength: len(in.Bytes)}
		pkt.Flags |= FlagHasValue
	}
}

// ReserveValue2 reserves n fresh, uninitialized bytes for pkt's value
// without copying, returning the writable slice so the caller can fill
// it in place (e.g. while streaming a body off the wire). The caller
// must finish writing into the returned slice before making any other
// reserve call on the same pipeline: a later reservation that grows
// the buffer manager's backing array leaves this slice pointing at an
// abandoned copy.
func (pl *Pipeline) ReserveValue2(pkt *Packet, n int) []byte {
	sp := pl.bufMgr.reserve(n)
	pkt.value = Value{span: sp, totalLength: n}
	pkt.Flags |= FlagHasValue
	return pl.bufMgr.bytes(sp)
}

// releaseBuffers returns pkt's header and (if manager-owned) value
// spans to the buffer manager. Safe to call on a detached or
// no-copy packet, which simply has nothing to release.
func (pl *Pipeline) releaseBuffers(pkt *Packet) {
	if !pkt.Flags.Has(FlagKeyNoCopy) && !pkt.Flags.Has(FlagDetached) {
		pl.bufMgr.release(pkt.headerSpan)
	}
	if pkt.Flags.Has(FlagHasValue) && !pkt.Flags.Has(FlagValueNoCopy) {
		pl.bufMgr.release(pkt.value.span)
	}
}

// finalize returns pkt's buffers and record to the pipeline once both
// FlagFlushed and FlagInvoked are set.
func (pl *Pipeline) finalize(pkt *Packet) {
	pkt.unlink()
	pl.releaseBuffers(pkt)
	if pl.BufDone != nil {
		pl.BufDone(pl, pkt)
	}
	pl.alloc.release(pkt)
}

// Find locates the packet with the given opaque in the requests FIFO
// without removing it, for multi-response commands like stat. Returns
// false if not found.
func (pl *Pipeline) Find(opaque uint32) (*Packet, bool) {
	for e := pl.requests.Front(); e != nil; e = e.Next() {
		if pkt := e.Value.(*Packet); pkt.Opaque == opaque {
			return pkt, true
		}
	}
	return nil, false
}

// Remove locates and unlinks the packet with the given opaque from the
// requests FIFO. Returns false if not found.
func (pl *Pipeline) Remove(opaque uint32) (*Packet, bool) {
	for e := pl.requests.Front(); e != nil; e = e.Next() {
		if pkt := e.Value.(*Packet); pkt.Opaque == opaque {
			pkt.unlink()
			return pkt, true
		}
	}
	return nil, false
}

// DupPacket produces a detached copy of src whose header+value live in
// independent Go-owned storage rather than any pipeline's buffer
// manager. The copy carries FlagDetached and is not linked into any
// FIFO; it may be released, or bound to a pipeline's allocator later,
// without that pipeline existing.
func (src *Packet) DupPacket() *Packet {
	dup := &Packet{
		Opaque:    src.Opaque,
		ExtLen:    src.ExtLen,
		Flags:     (src.Flags | FlagDetached) &^ (FlagFlushed | FlagInvoked),
		Retries:   src.Retries,
		Cookie:    src.Cookie,
		StartTime: src.StartTime,
		keyLen:    src.keyLen,
	}

	srcHdr := src.HeaderBytes()
	dup.headerRaw = append([]byte(nil), srcHdr...)

	if dup.Flags.Has(FlagHasValue) {
		if dup.Flags.Has(FlagValueIOV) {
			iovCopy := make([][]byte, len(src.value.iov))
			for i, v := range src.value.iov {
				iovCopy[i] = v
			}
			dup.value = Value{iov: iovCopy, totalLength: src.value.totalLength}
		} else if bytes, ok := src.ValueBytes(); ok {
			dup.value = Value{raw: append([]byte(nil), bytes...), totalLength: len(bytes)}
			dup.Flags |= FlagValueNoCopy
		}
	}

	return dup
}

// Release returns a detached packet's record to the given pipeline's
// allocator without requiring that pipeline to have produced it. Pass
// nil to simply drop it (its storage is Go-owned and needs no explicit
// free).
func (pkt *Packet) Release(pl *Pipeline) {
	if pl != nil {
		pl.alloc.release(pkt)
	}
}

// Iterwipe visits every packet in the requests FIFO, in order, calling
// cb for each. A Remove result detaches and unlinks the packet from the
// FIFO without freeing it — the callback has taken ownership.
func (pl *Pipeline) Iterwipe(cb func(pkt *Packet) IterAction) {
	e := pl.requests.Front()
	for e != nil {
		next := e.Next()
		pkt := e.Value.(*Packet)
		if cb(pkt) == Remove {
			pkt.Flags |= FlagDetached
			pkt.unlink()
		}
		e = next
	}
}

// Fail invokes cb for every packet in the requests FIFO, marks each
// FlagInvoked (finalizing those already FlagFlushed), and returns the
// count. Packets staged in the current transaction are unaffected.
func (pl *Pipeline) Fail(err error, cb FailFunc) int {
	count := 0
	e := pl.requests.Front()
	for e != nil {
		next := e.Next()
		pkt := e.Value.(*Packet)
		cb(pl, pkt, err)
		pkt.markInvoked()
		count++
		e = next
	}
	return count
}

// Timeout behaves like Fail but only for packets whose StartTime is
// strictly older than oldestValid. It returns the count failed and the
// earliest StartTime among packets left in place (zero Time if none
// remain).
func (pl *Pipeline) Timeout(err error, cb FailFunc, oldestValid time.Time) (count int, oldestStart time.Time) {
	e := pl.requests.Front()
	for e != nil {
		next := e.Next()
		pkt := e.Value.(*Packet)
		if pkt.StartTime.Before(oldestValid) {
			cb(pl, pkt, err)
			pkt.markInvoked()
			count++
		} else if oldestStart.IsZero() || pkt.StartTime.Before(oldestStart) {
			oldestStart = pkt.StartTime
		}
		e = next
	}
	return count, oldestStart
}

// ReenqueuePacket inserts pkt into the requests FIFO ordered by
// StartTime (older first), for a retried packet whose original start
// predates packets already queued.
func (pl *Pipeline) ReenqueuePacket(pkt *Packet) {
	pkt.Flags &^= FlagDetached
	pkt.pipeline = pl

	for e := pl.requests.Front(); e != nil; e = e.Next() {
		if pkt.StartTime.Before(e.Value.(*Packet).StartTime) {
			pkt.elem = pl.requests.InsertBefore(pkt, e)
			pkt.owner = pl.requests
			return
		}
	}
	pkt.elem = pl.requests.PushBack(pkt)
	pkt.owner = pl.requests
}

// DispatchResponse selects pkt's opcode handler from table and invokes
// it, returning [errclass.KindProtocol] if no handler is registered.
func DispatchResponse(table *OpcodeTable, pkt *Packet, resp ResponseHeader, body []byte, immerr error) error {
	handler, ok := table.lookup(pkt.Opcode())
	if !ok {
		return errclass.Errorf(errclass.KindProtocol, "mcreq: no handler for opcode 0x%02x", pkt.Opcode())
	}
	return handler(pkt, resp, body, immerr)
}

// PacketHandled marks pkt FlagInvoked (finalizing it if already
// FlagFlushed), to be called once a response has been routed to its
// handler or the packet was explicitly failed.
func PacketHandled(pkt *Packet) {
	pkt.markInvoked()
}

// PacketFlushed marks pkt FlagFlushed (finalizing it if already
// FlagInvoked), to be called once the socket layer has written the
// packet's bytes.
func PacketFlushed(pkt *Packet) {
	pkt.markFlushed()
}
