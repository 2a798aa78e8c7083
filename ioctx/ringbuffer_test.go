// SPDX-License-Identifier: GPL-3.0-or-later

package ioctx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRBWriteAndPeekIOVContiguous(t *testing.T) {
	rb := newRB(16)
	rb.Write([]byte("Hello"))

	assert.Equal(t, 5, rb.Len())
	iov := rb.PeekIOV(-1)
	require.Len(t, iov, 1)
	assert.Equal(t, "Hello", string(iov[0]))
}

func TestRBConsumeAdvancesReadCursor(t *testing.T) {
	rb := newRB(16)
	rb.Write([]byte("Hello"))
	rb.Consume(2)

	assert.Equal(t, 3, rb.Len())
	iov := rb.PeekIOV(-1)
	require.Len(t, iov, 1)
	assert.Equal(t, "llo", string(iov[0]))
}

func TestRBWrapsAroundBackingArray(t *testing.T) {
	rb := newRB(8)
	rb.Write([]byte("ABCDEF")) // 6/8 used
	rb.Consume(4)              // r=4, w=6, size=2
	rb.Write([]byte("GHIJ"))   // size=6, wraps: w goes 6->8->0->2

	assert.Equal(t, 6, rb.Len())
	iov := rb.PeekIOV(-1)
	got := string(iov[0])
	if len(iov) == 2 {
		got += string(iov[1])
	}
	assert.Equal(t, "EFGHIJ", got)
}

func TestRBGrowsWhenOutOfRoom(t *testing.T) {
	rb := newRB(4)
	rb.Write([]byte("Hello")) // exceeds initial 4-byte capacity

	assert.Equal(t, 5, rb.Len())
	iov := rb.PeekIOV(-1)
	got := string(iov[0])
	if len(iov) == 2 {
		got += string(iov[1])
	}
	assert.Equal(t, "Hello", got)
}

func TestRBPeekIOVRespectsMax(t *testing.T) {
	rb := newRB(16)
	rb.Write([]byte("Hello"))

	iov := rb.PeekIOV(2)
	require.Len(t, iov, 1)
	assert.Equal(t, "He", string(iov[0]))
}

func TestRBPeekIOVEmpty(t *testing.T) {
	rb := newRB(16)
	assert.Nil(t, rb.PeekIOV(-1))
}

func TestRBConsumeClampsBeyondLen(t *testing.T) {
	rb := newRB(16)
	rb.Write([]byte("Hi"))
	rb.Consume(100)
	assert.Equal(t, 0, rb.Len())
}
