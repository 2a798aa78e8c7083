// SPDX-License-Identifier: GPL-3.0-or-later

package mcreq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCommandQueueSizesPipelinesFromConfig(t *testing.T) {
	cfg := &fakeConfig{numServers: 3, vbOf: map[string]uint32{}, slotOf: map[uint32]int{}}
	q := NewCommandQueue(cfg)
	assert.Nil(t, q.Pipeline(0))
	assert.Nil(t, q.Pipeline(2))
	assert.Nil(t, q.Pipeline(3)) // out of range
}

func TestSetPipelineGrowsArray(t *testing.T) {
	q := NewCommandQueue(nil)
	pl := NewPipeline(4)
	q.SetPipeline(4, pl)
	assert.Same(t, pl, q.Pipeline(4))
	assert.Nil(t, q.Pipeline(2))
}

func TestSetConfigGrowsPipelineArrayOnUpgrade(t *testing.T) {
	small := &fakeConfig{numServers: 1, vbOf: map[string]uint32{}, slotOf: map[uint32]int{}}
	q := NewCommandQueue(small)
	original := NewPipeline(0)
	q.SetPipeline(0, original)

	bigger := &fakeConfig{numServers: 3, vbOf: map[string]uint32{}, slotOf: map[uint32]int{}}
	q.SetConfig(bigger)

	assert.Same(t, original, q.Pipeline(0), "existing pipeline survives a topology grow")
	assert.Nil(t, q.Pipeline(2))
	assert.Same(t, bigger, q.Config())
}

func TestBasicPacketNoConfigBound(t *testing.T) {
	q := NewCommandQueue(nil)
	_, _, err := q.BasicPacket(OpGet, []byte("a"), 0)
	assert.Error(t, err)
}

func TestBasicPacketUnmappedVBucket(t *testing.T) {
	cfg := &fakeConfig{numServers: 1, vbOf: map[string]uint32{"a": 7}, slotOf: map[uint32]int{}}
	q := NewCommandQueue(cfg)
	_, _, err := q.BasicPacket(OpGet, []byte("a"), 0)
	assert.Error(t, err)
}

func TestBasicPacketNoPipelineBoundForSlot(t *testing.T) {
	cfg := newSingleServerConfig(0, "a")
	q := NewCommandQueue(cfg)
	// deliberately do not SetPipeline(0, ...)
	_, _, err := q.BasicPacket(OpGet, []byte("a"), 0)
	assert.Error(t, err)
}

// Pending tracks committed-but-not-finalized packets across every
// pipeline sharing the queue.
func TestCommandQueuePendingAcrossPipelines(t *testing.T) {
	cfg := &fakeConfig{
		numServers: 2,
		vbOf:       map[string]uint32{"a": 0, "b": 1},
		slotOf:     map[uint32]int{0: 0, 1: 1},
	}
	q := NewCommandQueue(cfg)
	pl0 := NewPipeline(0)
	pl1 := NewPipeline(1)
	q.SetPipeline(0, pl0)
	q.SetPipeline(1, pl1)

	guard, err := q.SchedEnter()
	require.NoError(t, err)

	pktA, plA, err := q.BasicPacket(OpSet, []byte("a"), 0)
	require.NoError(t, err)
	guard.Add(plA, pktA)

	pktB, plB, err := q.BasicPacket(OpSet, []byte("b"), 0)
	require.NoError(t, err)
	guard.Add(plB, pktB)

	guard.Leave(false)

	assert.Equal(t, 2, q.Pending())
	assert.Equal(t, 1, pl0.PendingRequests())
	assert.Equal(t, 1, pl1.PendingRequests())
}

// Opaques are assigned in a single global sequence shared by every
// pipeline touched within one transaction.
func TestSchedAddAssignsDistinctOpaques(t *testing.T) {
	cfg := newSingleServerConfig(0, "a", "b", "c")
	q := NewCommandQueue(cfg)
	pl := NewPipeline(0)
	q.SetPipeline(0, pl)

	guard, err := q.SchedEnter()
	require.NoError(t, err)

	seen := map[uint32]bool{}
	for _, k := range []string{"a", "b", "c"} {
		pkt, _, err := q.BasicPacket(OpSet, []byte(k), 0)
		require.NoError(t, err)
		guard.Add(pl, pkt)
		assert.False(t, seen[pkt.Opaque], "opaque reused: %d", pkt.Opaque)
		seen[pkt.Opaque] = true
	}
	guard.Leave(false)
}
