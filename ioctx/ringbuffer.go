// SPDX-License-Identifier: GPL-3.0-or-later

package ioctx

// RB is a single-owner ring buffer for pending output bytes. Unlike
// [RDB], which is consumed by the connection's reader, an RB is
// produced by the pipeline's flush path and consumed by the
// connection's writer; at any moment exactly one of those two sides is
// touching it.
type RB struct {
	buf  []byte
	r, w int
	size int
}

// newRB constructs an empty ring buffer with the given initial
// capacity. capacity <= 0 uses [defaultChunkSize].
func newRB(capacity int) *RB {
	if capacity <= 0 {
		capacity = defaultChunkSize
	}
	return &RB{buf: make([]byte, capacity)}
}

// Len returns the number of unconsumed bytes currently held.
func (rb *RB) Len() int {
	return rb.size
}

func (rb *RB) copyOut(dst []byte) int {
	if rb.size == 0 {
		return 0
	}
	if rb.r < rb.w {
		return copy(dst, rb.buf[rb.r:rb.w])
	}
	n := copy(dst, rb.buf[rb.r:])
	n += copy(dst[n:], rb.buf[:rb.w])
	return n
}

func (rb *RB) ensureCap(extra int) {
	if rb.size+extra <= len(rb.buf) {
		return
	}
	newCap := len(rb.buf) * 2
	if need := rb.size + extra; newCap < need {
		newCap = need
	}
	grown := make([]byte, newCap)
	n := rb.copyOut(grown)
	rb.buf = grown
	rb.r = 0
	rb.w = n
}

// Write appends p, growing the backing array if the ring has no room.
func (rb *RB) Write(p []byte) {
	if len(p) == 0 {
		return
	}
	rb.ensureCap(len(p))
	written := 0
	for written < len(p) {
		n := copy(rb.buf[rb.w:], p[written:])
		written += n
		rb.w += n
		if rb.w == len(rb.buf) {
			rb.w = 0
		}
	}
	rb.size += written
}

// PeekIOV returns the ring's first n unconsumed bytes (all of them if
// max < 0, or if max >= Len()) as one slice, or two if the requested
// span wraps around the end of the backing array — ready to hand to
// [net.Buffers] for a vectored write.
func (rb *RB) PeekIOV(max int) [][]byte {
	n := rb.size
	if max >= 0 && max < n {
		n = max
	}
	if n == 0 {
		return nil
	}
	if rb.r+n <= len(rb.buf) {
		return [][]byte{rb.buf[rb.r : rb.r+n]}
	}
	first := rb.buf[rb.r:]
	remaining := n - len(first)
	return [][]byte{first, rb.buf[:remaining]}
}

// Consume discards the first n unconsumed bytes. n beyond Len() is
// clamped.
func (rb *RB) Consume(n int) {
	if n > rb.size {
		n = rb.size
	}
	rb.size -= n
	rb.r = (rb.r + n) % len(rb.buf)
}
