// SPDX-License-Identifier: GPL-3.0-or-later

// Package vbconf defines the opaque cluster-topology handle the core
// routes keys against. The core never parses a config document itself;
// it only calls back into whatever [Config] a provider handed it.
package vbconf

// Config is a parsed cluster topology: a key-to-vbucket hash, a
// vbucket-to-server-slot map, and enough structural identity to let the
// monitor decide whether a newly fetched document is worth adopting.
//
// Implementations must be immutable once constructed: every method is
// called concurrently with no synchronization by the core's single
// event loop, and a Config may be shared read-only by a CommandQueue
// and all of its pipelines for as long as it is current.
type Config interface {
	// KeyToVBucket hashes key to a vbucket index in [0, NumVBuckets).
	KeyToVBucket(key []byte) uint32

	// VBucketToServer maps vbucket to the server slot that owns it.
	// ok is false if vbucket is out of range or unmapped.
	VBucketToServer(vbucket uint32) (slot int, ok bool)

	// NumServers returns the number of server slots in this topology.
	NumServers() int

	// ServerAddr returns the "host:port" address of the server at slot.
	ServerAddr(slot int) (addr string, ok bool)

	// Revision returns the document's intrinsic revision number, if the
	// encoding carries one. Not every provider's wire format does.
	Revision() (rev int64, ok bool)

	// Diff reports how much other differs from this config. Zero means
	// no change of interest (same server list, same vbucket map);
	// nonzero means other should be considered for adoption.
	Diff(other Config) int
}
