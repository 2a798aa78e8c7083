// SPDX-License-Identifier: GPL-3.0-or-later

package mcreq

import (
	"fmt"

	"github.com/shardkv/vbc/vbconf"
)

// CommandQueue is the array of pipelines indexed by server slot, bound
// to the cluster's current topology.
//
// A CommandQueue is driven from a single goroutine; it performs no
// internal locking.
type CommandQueue struct {
	pipelines []*Pipeline
	config    vbconf.Config
	opaqueSeq uint32
	pending   int

	active *SchedGuard
}

// NewCommandQueue constructs an empty queue bound to cfg. Pipelines must
// be installed with SetPipeline before commands can be scheduled.
func NewCommandQueue(cfg vbconf.Config) *CommandQueue {
	q := &CommandQueue{config: cfg}
	if cfg != nil {
		q.pipelines = make([]*Pipeline, cfg.NumServers())
	}
	return q
}

// Config returns the queue's current topology handle.
func (q *CommandQueue) Config() vbconf.Config {
	return q.config
}

// SetConfig rebinds the queue to a new topology, atomically from the
// perspective of callers: cfg takes effect for every BasicPacket call
// from this point on. The slot array grows to cfg.NumServers() if it is
// shorter and never shrinks; existing pipelines are left in place, and
// pipelines for new slots are bound with SetPipeline.
func (q *CommandQueue) SetConfig(cfg vbconf.Config) {
	q.config = cfg
	if n := cfg.NumServers(); n > len(q.pipelines) {
		grown := make([]*Pipeline, n)
		copy(grown, q.pipelines)
		q.pipelines = grown
	}
}

// Pipeline returns the pipeline bound to slot, or nil if none is bound.
func (q *CommandQueue) Pipeline(slot int) *Pipeline {
	if slot < 0 || slot >= len(q.pipelines) {
		return nil
	}
	return q.pipelines[slot]
}

// SetPipeline binds pl to slot, growing the pipeline array if needed.
func (q *CommandQueue) SetPipeline(slot int, pl *Pipeline) {
	if slot >= len(q.pipelines) {
		grown := make([]*Pipeline, slot+1)
		copy(grown, q.pipelines)
		q.pipelines = grown
	}
	q.pipelines[slot] = pl
}

// Pending returns the number of packets not yet finalized across every
// pipeline bound to this queue.
func (q *CommandQueue) Pending() int {
	return q.pending
}

// BasicPacket derives the vbucket for key, maps it to a pipeline via the
// current topology, allocates a packet from that pipeline, and reserves
// HeaderSize+extLen+len(key) bytes for it, filling in the vbucket and
// key length fields of the reserved header.
func (q *CommandQueue) BasicPacket(opcode Opcode, key []byte, extLen int) (*Packet, *Pipeline, error) {
	if q.config == nil {
		return nil, nil, fmt.Errorf("mcreq: command queue has no configuration bound")
	}

	vb := q.config.KeyToVBucket(key)
	slot, ok := q.config.VBucketToServer(vb)
	if !ok {
		return nil, nil, fmt.Errorf("mcreq: vbucket %d has no server mapping", vb)
	}

	pl := q.Pipeline(slot)
	if pl == nil {
		return nil, nil, fmt.Errorf("mcreq: no pipeline bound for server slot %d", slot)
	}

	pkt := pl.AllocatePacket()
	pl.ReserveKey(pkt, HeaderSize+extLen, key)
	pkt.ExtLen = uint8(extLen)

	hdr := RequestHeader{
		Opcode:  opcode,
		KeyLen:  uint16(len(key)),
		ExtLen:  uint8(extLen),
		VBucket: uint16(vb),
	}
	if err := hdr.Encode(pl.bufMgr.bytes(pkt.headerSpan)); err != nil {
		pl.releaseBuffers(pkt)
		pl.alloc.release(pkt)
		return nil, nil, err
	}

	return pkt, pl, nil
}

// SchedGuard is the lifetime-scoped handle for one scheduling
// transaction, returned by [CommandQueue.SchedEnter]. Exactly one of
// Leave or Fail must be called to close it; dropping a guard without
// either is a programming error (the queue stays locked against a new
// SchedEnter).
type SchedGuard struct {
	q     *CommandQueue
	dirty []*Pipeline
	seen  map[*Pipeline]bool
}

// SchedEnter opens a new scheduling transaction. Not re-entrant: a
// SchedEnter while one is already open returns an error.
func (q *CommandQueue) SchedEnter() (*SchedGuard, error) {
	if q.active != nil {
		return nil, fmt.Errorf("mcreq: scheduling transaction already open")
	}
	g := &SchedGuard{q: q, seen: make(map[*Pipeline]bool)}
	q.active = g
	return g, nil
}

// Add appends pkt to pl's staging FIFO, assigns it the next opaque in
// sequence, and marks pl dirty for this transaction.
func (g *SchedGuard) Add(pl *Pipeline, pkt *Packet) {
	g.q.opaqueSeq++
	pkt.Opaque = g.q.opaqueSeq
	pkt.elem = pl.ctxqueued.PushBack(pkt)
	pkt.owner = pl.ctxqueued

	if !g.seen[pl] {
		g.seen[pl] = true
		g.dirty = append(g.dirty, pl)
	}
}

// Leave splices every dirty pipeline's staged packets onto the tail of
// its requests FIFO, in opaque order, increments the queue's pending
// count by the number moved, and — if doFlush — invokes each pipeline's
// FlushStart. Closes the transaction.
func (g *SchedGuard) Leave(doFlush bool) {
	for _, pl := range g.dirty {
		moved := pl.ctxqueued.Len()
		for e := pl.ctxqueued.Front(); e != nil; {
			next := e.Next()
			pkt := e.Value.(*Packet)
			pl.ctxqueued.Remove(e)
			pkt.elem = pl.requests.PushBack(pkt)
			pkt.owner = pl.requests
			e = next
		}
		g.q.pending += moved
		if doFlush && pl.FlushStart != nil {
			pl.FlushStart(pl)
		}
	}
	g.q.active = nil
}

// Fail wipes every staged packet's reserved buffers and returns each
// record to its pipeline's allocator. No flush occurs and the staged
// packets never become visible in requests. Closes the transaction.
func (g *SchedGuard) Fail() {
	for _, pl := range g.dirty {
		for e := pl.ctxqueued.Front(); e != nil; {
			next := e.Next()
			pkt := e.Value.(*Packet)
			pl.ctxqueued.Remove(e)
			pkt.owner = nil
			pkt.elem = nil
			pl.releaseBuffers(pkt)
			pl.alloc.release(pkt)
			e = next
		}
	}
	g.q.active = nil
}
