// SPDX-License-Identifier: GPL-3.0-or-later

package vbconf

import (
	"encoding/json"
	"fmt"
	"hash/crc32"
)

// Map is the reference [Config] implementation: a JSON-decodable cluster
// map shaped after a Couchbase bucket configuration document's
// "vBucketServerMap" section. Providers that fetch a JSON document (CCCP,
// HTTP, File) decode into a Map and hand it to the monitor as a [Config].
type Map struct {
	// Rev is the document's revision, or nil if the source carries none.
	Rev *int64 `json:"rev,omitempty"`

	// Servers is the ordered list of "host:port" server addresses; a
	// vbucket's server slot is an index into this list.
	Servers []string `json:"serverList"`

	// VBucketMap maps vbucket index to a list of server slots, active
	// slot first followed by replicas.
	VBucketMap [][]int `json:"vBucketMap"`
}

var _ Config = (*Map)(nil)

// ParseMap decodes a JSON cluster map document into a [*Map].
func ParseMap(data []byte) (*Map, error) {
	var m Map
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("vbconf: decoding cluster map: %w", err)
	}
	if len(m.VBucketMap) == 0 {
		return nil, fmt.Errorf("vbconf: cluster map has no vbuckets")
	}
	return &m, nil
}

// KeyToVBucket implements [Config].
//
// Hashing follows the scheme used by Couchbase clients: CRC32 of the key,
// shifted right by 16 and masked with 0x7fff to form the hash, then
// masked down to the number of vbuckets (a power of two).
func (m *Map) KeyToVBucket(key []byte) uint32 {
	sum := crc32.ChecksumIEEE(key)
	hash := (sum >> 16) & 0x7fff
	return hash & uint32(len(m.VBucketMap)-1)
}

// VBucketToServer implements [Config].
func (m *Map) VBucketToServer(vbucket uint32) (int, bool) {
	if int(vbucket) >= len(m.VBucketMap) {
		return 0, false
	}
	row := m.VBucketMap[vbucket]
	if len(row) == 0 || row[0] < 0 {
		return 0, false
	}
	return row[0], true
}

// NumServers implements [Config].
func (m *Map) NumServers() int {
	return len(m.Servers)
}

// ServerAddr implements [Config].
func (m *Map) ServerAddr(slot int) (string, bool) {
	if slot < 0 || slot >= len(m.Servers) {
		return "", false
	}
	return m.Servers[slot], true
}

// Revision implements [Config].
func (m *Map) Revision() (int64, bool) {
	if m.Rev == nil {
		return 0, false
	}
	return *m.Rev, true
}

// Diff implements [Config].
//
// Returns the count of vbuckets whose active server slot changed, plus
// the absolute differences in server-list length and in vbucket count.
// A result of zero means other routes every key identically to m.
func (m *Map) Diff(other Config) int {
	om, ok := other.(*Map)
	if !ok {
		return 1
	}
	diff := len(m.Servers) - len(om.Servers)
	if diff < 0 {
		diff = -diff
	}
	n := len(m.VBucketMap)
	if len(om.VBucketMap) < n {
		n = len(om.VBucketMap)
	}
	diff += len(m.VBucketMap) + len(om.VBucketMap) - 2*n
	for i := 0; i < n; i++ {
		a, aok := m.VBucketToServer(uint32(i))
		b, bok := om.VBucketToServer(uint32(i))
		if aok != bok || a != b {
			diff++
		}
	}
	return diff
}
