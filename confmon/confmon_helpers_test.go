// SPDX-License-Identifier: GPL-3.0-or-later

package confmon

import (
	"context"
	"time"

	"github.com/shardkv/vbc/vbconf"
)

// fakeVBConfig is a minimal [vbconf.Config] test double identified only
// by a label, for tests that just need distinguishable configurations.
type fakeVBConfig struct {
	label    string
	rev      int64
	hasRev   bool
	diffWith map[string]int
}

var _ vbconf.Config = (*fakeVBConfig)(nil)

func (c *fakeVBConfig) KeyToVBucket([]byte) uint32         { return 0 }
func (c *fakeVBConfig) VBucketToServer(uint32) (int, bool) { return 0, true }
func (c *fakeVBConfig) NumServers() int                    { return 1 }
func (c *fakeVBConfig) ServerAddr(int) (string, bool)      { return "127.0.0.1:11210", true }

func (c *fakeVBConfig) Revision() (int64, bool) {
	return c.rev, c.hasRev
}

func (c *fakeVBConfig) Diff(other vbconf.Config) int {
	o, ok := other.(*fakeVBConfig)
	if !ok || o.label != c.label {
		return 1
	}
	if c.diffWith != nil {
		if d, ok := c.diffWith[o.label]; ok {
			return d
		}
	}
	return 0
}

// fakeProvider is a controllable [Provider] test double. RefreshFunc, if
// set, is invoked synchronously from Refresh (tests that need to call
// back asynchronously should launch their own goroutine or call the
// returned Callback directly after Refresh returns).
type fakeProvider struct {
	kind       Kind
	cb         Callback
	cached     *ConfigInfo
	hasCached  bool
	refreshes  int
	refreshFn  func(cb Callback)
	paused     int
	shutdowns  int
	configured []vbconf.Config
}

var _ Provider = (*fakeProvider)(nil)

func (p *fakeProvider) Kind() Kind          { return p.kind }
func (p *fakeProvider) Attach(cb Callback)  { p.cb = cb }
func (p *fakeProvider) Shutdown()           { p.shutdowns++ }
func (p *fakeProvider) Pause()              { p.paused++ }
func (p *fakeProvider) ConfigUpdated(cfg vbconf.Config) {
	p.configured = append(p.configured, cfg)
}

func (p *fakeProvider) GetCached() (*ConfigInfo, bool) {
	return p.cached, p.hasCached
}

func (p *fakeProvider) Refresh(ctx context.Context) {
	p.refreshes++
	if p.refreshFn != nil {
		p.refreshFn(p.cb)
	}
}

// syncConfig returns a [*Config] whose timers fire synchronously and
// inline, for deterministic tests.
func syncConfig() *Config {
	return &Config{
		GraceNextCycle:    0,
		GraceNextProvider: 0,
		TimeNow:           time.Now,
		AfterFunc: func(d time.Duration, f func()) func() bool {
			f()
			return func() bool { return false }
		},
	}
}
