// SPDX-License-Identifier: GPL-3.0-or-later

package mcreq

import "github.com/shardkv/vbc/vbconf"

// fakeConfig is a minimal [vbconf.Config] test double with a
// hand-assigned key->vbucket table and a flat vbucket->slot mapping.
type fakeConfig struct {
	numServers int
	vbOf       map[string]uint32
	slotOf     map[uint32]int
}

var _ vbconf.Config = (*fakeConfig)(nil)

func (c *fakeConfig) KeyToVBucket(key []byte) uint32 {
	if vb, ok := c.vbOf[string(key)]; ok {
		return vb
	}
	return 0
}

func (c *fakeConfig) VBucketToServer(vb uint32) (int, bool) {
	slot, ok := c.slotOf[vb]
	return slot, ok
}

func (c *fakeConfig) NumServers() int                 { return c.numServers }
func (c *fakeConfig) ServerAddr(int) (string, bool)   { return "", false }
func (c *fakeConfig) Revision() (int64, bool)         { return 0, false }
func (c *fakeConfig) Diff(vbconf.Config) int          { return 0 }

// newSingleServerConfig returns a config mapping every key in vbOf to
// vbucket vb, and vb to server slot 0.
func newSingleServerConfig(vb uint32, keys ...string) *fakeConfig {
	c := &fakeConfig{
		numServers: 1,
		vbOf:       make(map[string]uint32),
		slotOf:     map[uint32]int{vb: 0},
	}
	for _, k := range keys {
		c.vbOf[k] = vb
	}
	return c
}
