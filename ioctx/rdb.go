// SPDX-License-Identifier: GPL-3.0-or-later

package ioctx

import (
	"container/list"
	"io"
)

const defaultChunkSize = 4096

// rdbChunk is one fixed-size link in an [RDB]'s chain. off marks how
// much of buf[:len] has already been consumed.
type rdbChunk struct {
	buf []byte
	off int
	len int
}

// RDB is a chained receive buffer: a FIFO of fixed-size chunks that
// grows as bytes are filled in from a connection and shrinks as a
// caller consumes them. It answers both "give me a contiguous view of
// the first n bytes" (coalescing across chunks when needed) and
// "append these bytes I already read elsewhere" (for a completion-mode
// read landing directly in caller-supplied storage).
type RDB struct {
	chunkSize int
	chunks    *list.List
	total     int
}

// newRDB constructs an empty chained receive buffer. chunkSize <= 0
// uses [defaultChunkSize].
func newRDB(chunkSize int) *RDB {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	return &RDB{chunkSize: chunkSize, chunks: list.New()}
}

// Len returns the number of unconsumed bytes currently buffered.
func (r *RDB) Len() int {
	return r.total
}

// reserveTail returns the writable tail of the chain's last chunk,
// appending a fresh chunk first if the last one is full or absent.
func (r *RDB) reserveTail() []byte {
	if e := r.chunks.Back(); e != nil {
		c := e.Value.(*rdbChunk)
		if c.off+c.len < len(c.buf) {
			return c.buf[c.off+c.len:]
		}
	}
	c := &rdbChunk{buf: make([]byte, r.chunkSize)}
	r.chunks.PushBack(c)
	return c.buf
}

// Fill reads once from rd into the chain's free tail space, growing
// the chain if needed, and returns the number of bytes appended. The
// returned error is rd's, including [io.EOF].
func (r *RDB) Fill(rd io.Reader) (int, error) {
	tail := r.reserveTail()
	n, err := rd.Read(tail)
	if n > 0 {
		c := r.chunks.Back().Value.(*rdbChunk)
		c.len += n
		r.total += n
	}
	return n, err
}

// Append adds bytes already read by the caller (e.g. a completion-mode
// read landing in its own buffer) to the end of the chain, copying p.
func (r *RDB) Append(p []byte) {
	if len(p) == 0 {
		return
	}
	buf := append([]byte(nil), p...)
	r.chunks.PushBack(&rdbChunk{buf: buf, len: len(buf)})
	r.total += len(buf)
}

// Peek returns a view of the first n unconsumed bytes. If n fits
// within the first chunk it is returned without copying; otherwise the
// bytes are coalesced into a fresh contiguous slice. ok is false if
// fewer than n bytes are currently buffered.
func (r *RDB) Peek(n int) (data []byte, ok bool) {
	if n > r.total {
		return nil, false
	}
	if n == 0 {
		return nil, true
	}
	e := r.chunks.Front()
	first := e.Value.(*rdbChunk)
	if first.len >= n {
		return first.buf[first.off : first.off+n], true
	}

	out := make([]byte, 0, n)
	for e != nil && len(out) < n {
		c := e.Value.(*rdbChunk)
		need := n - len(out)
		take := c.len
		if take > need {
			take = need
		}
		out = append(out, c.buf[c.off:c.off+take]...)
		e = e.Next()
	}
	return out, true
}

// Consume discards the first n unconsumed bytes, freeing any chunk
// that becomes fully consumed. n beyond Len() is clamped.
func (r *RDB) Consume(n int) {
	if n > r.total {
		n = r.total
	}
	r.total -= n
	for n > 0 {
		e := r.chunks.Front()
		if e == nil {
			return
		}
		c := e.Value.(*rdbChunk)
		if c.len <= n {
			n -= c.len
			r.chunks.Remove(e)
			continue
		}
		c.off += n
		c.len -= n
		n = 0
	}
}
