// SPDX-License-Identifier: GPL-3.0-or-later

package confmon

import (
	"sync/atomic"

	"github.com/shardkv/vbc/vbconf"
)

// ConfigInfo owns a fetched [vbconf.Config], its origin provider kind,
// and a comparison clock assigned at creation time. It is reference
// counted: a provider and the monitor may each hold a reference, and the
// underlying Config is immutable for as long as any reference is live.
type ConfigInfo struct {
	cfg    vbconf.Config
	origin Kind
	clock  int64
	refs   int32
}

// newConfigInfo constructs a [*ConfigInfo] with one reference held by the
// caller. clock must be strictly increasing across calls for a given
// monitor; see [Monitor.NewConfigInfo].
func newConfigInfo(cfg vbconf.Config, origin Kind, clock int64) *ConfigInfo {
	return &ConfigInfo{cfg: cfg, origin: origin, clock: clock, refs: 1}
}

// Config returns the underlying cluster topology handle.
func (ci *ConfigInfo) Config() vbconf.Config {
	return ci.cfg
}

// Origin returns which provider kind produced this configuration.
func (ci *ConfigInfo) Origin() Kind {
	return ci.origin
}

// Clock returns the comparison clock assigned at creation.
func (ci *ConfigInfo) Clock() int64 {
	return ci.clock
}

// Retain increments the reference count and returns ci, for callers that
// want to hold onto a ConfigInfo beyond the scope that produced it.
func (ci *ConfigInfo) Retain() *ConfigInfo {
	atomic.AddInt32(&ci.refs, 1)
	return ci
}

// Release decrements the reference count. Release must be paired with
// every Retain and with the initial reference from construction;
// releasing past zero is a programming error.
func (ci *ConfigInfo) Release() {
	if atomic.AddInt32(&ci.refs, -1) < 0 {
		panic("confmon: ConfigInfo released more times than retained")
	}
}

// RefCount returns the current reference count, for tests.
func (ci *ConfigInfo) RefCount() int32 {
	return atomic.LoadInt32(&ci.refs)
}

// Compare orders a and b first by the revision each side's Config
// exposes (if both expose one), falling back to their comparison clocks.
// Returns a negative number, zero, or a positive number as a is less
// than, equal to, or greater than b.
func Compare(a, b *ConfigInfo) int {
	ar, aok := a.cfg.Revision()
	br, bok := b.cfg.Revision()
	if aok && bok {
		switch {
		case ar < br:
			return -1
		case ar > br:
			return 1
		default:
			return 0
		}
	}
	switch {
	case a.clock < b.clock:
		return -1
	case a.clock > b.clock:
		return 1
	default:
		return 0
	}
}
