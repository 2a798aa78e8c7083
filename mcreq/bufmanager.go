// SPDX-License-Identifier: GPL-3.0-or-later

package mcreq

// Span is an offset+length view into a [bufManager]'s backing array.
// It is the "key+header span" the spec describes: a handle, not a
// slice, so that freeing and coalescing adjacent regions doesn't
// require reasoning about aliased Go slice headers.
type Span struct {
	Off int
	Len int
}

// freeSpan is a reclaimed region available for reuse.
type freeSpan struct {
	off int
	len int
}

// bufManager is a pipeline's coalescing byte allocator: small header+key
// reservations are bump-allocated out of one growing backing array
// instead of each becoming its own heap allocation, with a sorted
// free list of reclaimed regions that merges adjacent neighbors back
// into larger ones.
//
// Not safe for concurrent use; a pipeline's manager is only ever
// touched from the single goroutine driving that pipeline.
type bufManager struct {
	data []byte
	free []freeSpan // sorted by off, non-overlapping, merged where adjacent
}

func newBufManager() *bufManager {
	return &bufManager{data: make([]byte, 0, 4096)}
}

// reserve returns a Span of n fresh bytes, first-fit from the free list,
// falling back to bump allocation (growing data if needed).
func (m *bufManager) reserve(n int) Span {
	for i, f := range m.free {
		if f.len >= n {
			sp := Span{Off: f.off, Len: n}
			if f.len == n {
				m.free = append(m.free[:i], m.free[i+1:]...)
			} else {
				m.free[i] = freeSpan{off: f.off + n, len: f.len - n}
			}
			return sp
		}
	}

	off := len(m.data)
	if cap(m.data)-off < n {
		grown := make([]byte, off, 2*(off+n)+64)
		copy(grown, m.data)
		m.data = grown
	}
	m.data = m.data[:off+n]
	return Span{Off: off, Len: n}
}

// bytes returns the live view backing sp.
func (m *bufManager) bytes(sp Span) []byte {
	return m.data[sp.Off : sp.Off+sp.Len]
}

// release returns sp to the free list, merging it with any adjacent
// free neighbor so the list doesn't fragment under repeated churn.
func (m *bufManager) release(sp Span) {
	if sp.Len == 0 {
		return
	}

	i := 0
	for i < len(m.free) && m.free[i].off < sp.Off {
		i++
	}

	entry := freeSpan{off: sp.Off, len: sp.Len}
	m.free = append(m.free, freeSpan{})
	copy(m.free[i+1:], m.free[i:])
	m.free[i] = entry

	// merge with the following neighbor first so indices stay valid.
	if i+1 < len(m.free) && m.free[i].off+m.free[i].len == m.free[i+1].off {
		m.free[i].len += m.free[i+1].len
		m.free = append(m.free[:i+1], m.free[i+2:]...)
	}
	if i > 0 && m.free[i-1].off+m.free[i-1].len == m.free[i].off {
		m.free[i-1].len += m.free[i].len
		m.free = append(m.free[:i], m.free[i+1:]...)
	}
}

// liveBytes returns the number of bytes currently reserved (not on the
// free list), for tests asserting no leaks after a rollback.
func (m *bufManager) liveBytes() int {
	total := len(m.data)
	for _, f := range m.free {
		total -= f.len
	}
	return total
}
