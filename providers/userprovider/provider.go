// SPDX-License-Identifier: GPL-3.0-or-later

// Package userprovider implements a [confmon.Provider] fed entirely by
// the embedding application: it never fetches anything on its own, and
// only reports a configuration once the caller has injected one via
// [Provider.Inject]. It is the lowest-priority link in a typical chain,
// a last resort when File, CCCP, and HTTP have all come up empty.
package userprovider

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shardkv/vbc/confmon"
	"github.com/shardkv/vbc/vbconf"
)

// ErrNoInjectedConfig is returned (wrapped) via [confmon.Callback.Failed]
// when Refresh runs before any call to [Provider.Inject].
var ErrNoInjectedConfig = errors.New("userprovider: no configuration has been injected")

// configInfoFactory is the subset of [confmon.Callback] that can mint a
// [*confmon.ConfigInfo]. Only [*confmon.Monitor] implements it in
// practice.
type configInfoFactory interface {
	NewConfigInfo(cfg vbconf.Config, origin confmon.Kind) *confmon.ConfigInfo
}

// Provider implements [confmon.Provider] over a manually injected
// [vbconf.Config]. Construct via [New] and attach it to a monitor before
// calling [Provider.Inject].
type Provider struct {
	mu   sync.Mutex
	cb   confmon.Callback
	info *confmon.ConfigInfo
}

var _ confmon.Provider = (*Provider)(nil)

// New returns an empty [*Provider] with nothing injected yet.
func New() *Provider {
	return &Provider{}
}

// Kind implements [confmon.Provider].
func (p *Provider) Kind() confmon.Kind { return confmon.KindUser }

// Attach implements [confmon.Provider].
func (p *Provider) Attach(cb confmon.Callback) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cb = cb
}

// Inject adopts cfg as this provider's configuration and reports it to
// the attached monitor immediately, regardless of whether this provider
// is the monitor's current chain position — mirroring how a CCCP push or
// a file-change notification can install out of turn.
//
// Inject must not be called before the provider has been attached to a
// monitor (i.e. before the monitor is constructed with this provider in
// its chain).
func (p *Provider) Inject(cfg vbconf.Config) error {
	p.mu.Lock()
	cb := p.cb
	p.mu.Unlock()

	if cb == nil {
		return fmt.Errorf("userprovider: Inject called before Attach")
	}
	factory, ok := cb.(configInfoFactory)
	if !ok {
		return fmt.Errorf("userprovider: callback %T cannot mint a ConfigInfo", cb)
	}

	info := factory.NewConfigInfo(cfg, confmon.KindUser)

	p.mu.Lock()
	p.info = info
	p.mu.Unlock()

	cb.Success(p, info)
	return nil
}

// Refresh implements [confmon.Provider]. It reports whatever was last
// injected, or fails with [ErrNoInjectedConfig] if nothing has been.
// The callback fires from a separate goroutine, never synchronously
// from within this call, per [confmon.Callback]'s contract.
func (p *Provider) Refresh(ctx context.Context) {
	go p.refreshOnce()
}

func (p *Provider) refreshOnce() {
	p.mu.Lock()
	info := p.info
	cb := p.cb
	p.mu.Unlock()

	if info == nil {
		cb.Failed(p, ErrNoInjectedConfig)
		return
	}
	cb.Success(p, info)
}

// GetCached implements [confmon.Provider].
func (p *Provider) GetCached() (*confmon.ConfigInfo, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.info, p.info != nil
}

// Shutdown implements [confmon.Provider]. UserProvider owns no
// background resources, so this is a no-op.
func (p *Provider) Shutdown() {}
