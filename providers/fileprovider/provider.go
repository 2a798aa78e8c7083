// SPDX-License-Identifier: GPL-3.0-or-later

// Package fileprovider implements a [confmon.Provider] that reads a
// cluster map from a local JSON file, polling its modification time for
// out-of-band changes rather than requiring the caller to restart the
// monitor.
package fileprovider

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/shardkv/vbc"
	"github.com/shardkv/vbc/confmon"
	"github.com/shardkv/vbc/vbconf"
)

// defaultPollInterval is how often [Provider] checks the file's mtime
// for unsolicited changes, absent an explicit PollInterval.
const defaultPollInterval = 2 * time.Second

// configInfoFactory is the subset of [confmon.Callback] that can mint a
// [*confmon.ConfigInfo]. Only [*confmon.Monitor] implements it in
// practice; Provider type-asserts for it rather than depending on the
// concrete type, mirroring how [confmon.Provider] itself only depends on
// the [confmon.Callback] interface.
type configInfoFactory interface {
	NewConfigInfo(cfg vbconf.Config, origin confmon.Kind) *confmon.ConfigInfo
}

// Provider implements [confmon.Provider] over a JSON cluster map file.
//
// Construct via [New]. All fields are safe to modify after construction
// but before the provider is attached to a monitor.
type Provider struct {
	// Path is the cluster map file to read.
	Path string

	// PollInterval is how often to stat Path for unsolicited changes.
	// Zero uses defaultPollInterval.
	PollInterval time.Duration

	// Logger is the SLogger to use.
	Logger vbc.SLogger

	// ErrClassifier classifies errors for structured logging.
	ErrClassifier vbc.ErrClassifier

	mu      sync.Mutex
	cb      confmon.Callback
	info    *confmon.ConfigInfo
	modTime time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
}

var _ confmon.Provider = (*Provider)(nil)

// New returns a [*Provider] reading path, wired from cfg.
func New(path string, cfg *vbc.Config, logger vbc.SLogger) *Provider {
	return &Provider{
		Path:          path,
		PollInterval:  defaultPollInterval,
		Logger:        logger,
		ErrClassifier: cfg.ErrClassifier,
		stopCh:        make(chan struct{}),
	}
}

// Kind implements [confmon.Provider].
func (p *Provider) Kind() confmon.Kind { return confmon.KindFile }

// Attach implements [confmon.Provider]. It also starts the background
// poll loop that detects unsolicited file changes.
func (p *Provider) Attach(cb confmon.Callback) {
	p.cb = cb
	go p.pollLoop()
}

// Refresh implements [confmon.Provider].
func (p *Provider) Refresh(ctx context.Context) {
	go p.refreshOnce()
}

// GetCached implements [confmon.Provider].
func (p *Provider) GetCached() (*confmon.ConfigInfo, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.info, p.info != nil
}

// Shutdown implements [confmon.Provider].
func (p *Provider) Shutdown() {
	p.stopOnce.Do(func() { close(p.stopCh) })
}

// pollLoop periodically stats Path and triggers an unsolicited refresh
// whenever its mtime advances, independent of whether this provider is
// the monitor's current chain position.
func (p *Provider) pollLoop() {
	interval := p.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			fi, err := os.Stat(p.Path)
			if err != nil {
				continue
			}
			p.mu.Lock()
			changed := fi.ModTime().After(p.modTime)
			p.mu.Unlock()
			if changed {
				p.refreshOnce()
			}
		}
	}
}

func (p *Provider) refreshOnce() {
	fi, err := os.Stat(p.Path)
	if err != nil {
		p.cb.Failed(p, fmt.Errorf("fileprovider: stat %s: %w", p.Path, err))
		return
	}

	data, err := os.ReadFile(p.Path)
	if err != nil {
		p.Logger.Info("fileproviderReadFailed",
			slog.String("path", p.Path),
			slog.Any("err", err),
			slog.String("errClass", p.ErrClassifier.Classify(err)),
		)
		p.cb.Failed(p, fmt.Errorf("fileprovider: reading %s: %w", p.Path, err))
		return
	}

	m, err := vbconf.ParseMap(data)
	if err != nil {
		p.Logger.Info("fileproviderParseFailed",
			slog.String("path", p.Path),
			slog.Any("err", err),
		)
		p.cb.Failed(p, fmt.Errorf("fileprovider: %w", err))
		return
	}

	factory, ok := p.cb.(configInfoFactory)
	if !ok {
		p.cb.Failed(p, fmt.Errorf("fileprovider: callback %T cannot mint a ConfigInfo", p.cb))
		return
	}
	info := factory.NewConfigInfo(m, confmon.KindFile)

	p.mu.Lock()
	p.info = info
	p.modTime = fi.ModTime()
	p.mu.Unlock()

	p.Logger.Debug("fileproviderRefreshed",
		slog.String("path", p.Path),
		slog.Time("modTime", fi.ModTime()),
	)
	p.cb.Success(p, info)
}
