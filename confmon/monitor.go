// SPDX-License-Identifier: GPL-3.0-or-later

package confmon

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/shardkv/vbc"
	"github.com/shardkv/vbc/errclass"
	"github.com/shardkv/vbc/vbconf"
)

// Monitor drives a prioritized chain of [Provider]s to discover the
// newest cluster configuration. It is a cooperative, single-threaded
// state machine: all of its methods, and every callback it invokes or
// receives, are expected to run on one goroutine. Monitor performs no
// internal locking; a caller that drives it from multiple goroutines
// must serialize access itself.
type Monitor struct {
	cfg    *Config
	logger vbc.SLogger

	providers []Provider
	current   int

	active  bool
	inGrace bool

	info       *ConfigInfo
	lastStopMs int64
	lastError  error

	clockSeq   int64
	startTimer func() bool

	listeners []*listenerEntry
	dispatch  bool // true while iterating listeners, guards compaction

	group singleflight.Group
}

// New constructs a [*Monitor] over providers, in priority order (the
// order callers pass them in is the chain order; conventionally File,
// CCCP, HTTP, User). Each provider is attached to the monitor before
// New returns.
func New(cfg *Config, logger vbc.SLogger, providers []Provider) *Monitor {
	m := &Monitor{
		cfg:       cfg,
		logger:    logger,
		providers: append([]Provider(nil), providers...),
	}
	for _, p := range m.providers {
		p.Attach(m)
	}
	return m
}

// NewConfigInfo wraps cfg into a [*ConfigInfo] tagged with origin and a
// comparison clock unique to this monitor, monotonically increasing
// across calls. Providers call this from within Refresh to build the
// value they pass to [Monitor.Success].
func (m *Monitor) NewConfigInfo(cfg vbconf.Config, origin Kind) *ConfigInfo {
	clock := atomic.AddInt64(&m.clockSeq, 1)
	return newConfigInfo(cfg, origin, clock)
}

// CurrentConfig returns the monitor's currently installed configuration,
// or false if none has been installed yet.
func (m *Monitor) CurrentConfig() (vbconf.Config, bool) {
	if m.info == nil {
		return nil, false
	}
	return m.info.Config(), true
}

// LastError returns the error recorded by the most recent per-provider
// failure, retained across cycles for diagnostics.
func (m *Monitor) LastError() error {
	return m.lastError
}

// AddListener registers l to receive future events, in registration
// order relative to other still-registered listeners.
func (m *Monitor) AddListener(l Listener) ListenerHandle {
	entry := &listenerEntry{fn: l}
	m.listeners = append(m.listeners, entry)
	return ListenerHandle{entry: entry}
}

// RemoveListener deregisters h. Safe to call during dispatch, including
// for the currently executing listener or one not yet visited.
func (m *Monitor) RemoveListener(h ListenerHandle) {
	if h.entry != nil {
		h.entry.removed = true
	}
	if !m.dispatch {
		m.compactListeners()
	}
}

func (m *Monitor) compactListeners() {
	kept := m.listeners[:0]
	for _, e := range m.listeners {
		if !e.removed {
			kept = append(kept, e)
		}
	}
	m.listeners = kept
}

func (m *Monitor) emit(ev Event) {
	m.dispatch = true
	for _, e := range m.listeners {
		if e.removed {
			continue
		}
		e.fn(ev)
	}
	m.dispatch = false
	m.compactListeners()
}

// Start begins (or resumes) provider discovery. Idempotent while the
// monitor is already active: a second call while active is a no-op.
func (m *Monitor) Start() {
	if m.active {
		m.logger.Debug("confmonStartIgnored", slog.Bool("active", true))
		return
	}
	if m.startTimer != nil {
		m.startTimer()
		m.startTimer = nil
	}
	m.active = true
	m.inGrace = true

	elapsed := m.cfg.TimeNow().UnixMilli() - m.lastStopMs
	delay := m.cfg.GraceNextCycle - elapsed
	if delay < 0 {
		delay = 0
	}

	m.logger.Info("confmonStart", slog.Int64("delayMs", delay))
	m.startTimer = m.cfg.AfterFunc(time.Duration(delay)*time.Millisecond, m.doNextProvider)
}

// Stop schedules a transition to Idle. The stop is asynchronous (posted
// for the next tick) so that a caller currently inside a Monitor
// callback observes no state change until it returns.
func (m *Monitor) Stop() {
	if m.startTimer != nil {
		m.startTimer()
		m.startTimer = nil
	}
	m.startTimer = m.cfg.AfterFunc(0, m.deferredStop)
}

func (m *Monitor) deferredStop() {
	m.startTimer = nil
	m.active = false
	m.inGrace = false
	for _, p := range m.providers {
		if pausable, ok := p.(Pauser); ok {
			pausable.Pause()
		}
	}
	m.lastStopMs = m.cfg.TimeNow().UnixMilli()
	m.logger.Info("confmonStopped")
	m.emit(Event{Kind: EventMonitorStopped})
}

// doNextProvider walks the active provider chain looking for a cached
// configuration worth installing, falling back to refreshing the
// current provider if none is found.
func (m *Monitor) doNextProvider() {
	m.inGrace = false

	for i, p := range m.providers {
		info, ok := p.GetCached()
		if !ok {
			continue
		}
		if m.install(info, false) {
			m.current = i
			return
		}
	}

	if len(m.providers) == 0 {
		m.emit(Event{Kind: EventProvidersCycled})
		m.Stop()
		return
	}

	p := m.providers[m.current]
	m.logger.Debug("confmonRefresh", slog.String("provider", p.Kind().String()))
	p.Refresh(context.Background())
}

// Success implements [Callback]. The provider calls this when Refresh
// produced a usable configuration. A successful refresh stops the chain
// regardless of where the cursor stood; install itself stops the
// monitor when it adopts info, so Success only needs to do so when info
// was not worth adopting (stale or identical to the current config).
func (m *Monitor) Success(p Provider, info *ConfigInfo) {
	if !m.install(info, true) {
		m.Stop()
	}
}

// Failed implements [Callback]. The provider calls this when Refresh
// could not produce a configuration.
func (m *Monitor) Failed(p Provider, err error) {
	idx := m.indexOf(p)
	if idx < 0 || idx != m.current {
		return
	}

	m.lastError = err
	m.logger.Info(
		"confmonProviderFailed",
		slog.String("provider", p.Kind().String()),
		slog.Any("err", err),
	)

	next := m.current + 1
	if next >= len(m.providers) {
		m.current = 0
		m.emit(Event{Kind: EventProvidersCycled})
		m.Stop()
		return
	}

	m.current = next
	m.inGrace = true
	if m.startTimer != nil {
		m.startTimer()
	}
	m.startTimer = m.cfg.AfterFunc(
		time.Duration(m.cfg.GraceNextProvider)*time.Millisecond,
		m.doNextProvider,
	)
}

func (m *Monitor) indexOf(p Provider) int {
	for i, q := range m.providers {
		if q == p {
			return i
		}
	}
	return -1
}

// install attempts to adopt info as the current configuration. Returns
// true if it was adopted.
func (m *Monitor) install(info *ConfigInfo, notifyMiss bool) bool {
	if m.info != nil {
		diff := m.info.Config().Diff(info.Config())
		if diff == 0 || Compare(m.info, info) >= 0 {
			if notifyMiss {
				m.emit(Event{Kind: EventGotAnyConfig, Info: info})
			}
			return false
		}
	}

	old := m.info
	m.info = info
	if old != nil {
		old.Release()
	}

	for _, p := range m.providers {
		if cu, ok := p.(ConfigUpdater); ok {
			cu.ConfigUpdated(info.Config())
		}
	}

	m.logger.Info(
		"confmonInstall",
		slog.String("origin", info.Origin().String()),
		slog.Int64("clock", info.Clock()),
	)
	m.emit(Event{Kind: EventGotNewConfig, Info: info})
	m.Stop()
	return true
}

// EnsureConfig returns the current configuration if one is already
// installed, or starts the monitor and waits for one to arrive (or for
// ctx to expire, or for the chain to exhaust). Concurrent callers
// collapse onto a single underlying wait via singleflight.
func (m *Monitor) EnsureConfig(ctx context.Context) (vbconf.Config, error) {
	if cfg, ok := m.CurrentConfig(); ok {
		return cfg, nil
	}

	result, err, _ := m.group.Do("ensure", func() (any, error) {
		waiter := make(chan struct{}, 1)
		var got vbconf.Config
		var exhausted bool

		handle := m.AddListener(func(ev Event) {
			switch ev.Kind {
			case EventGotNewConfig:
				got = ev.Info.Config()
				select {
				case waiter <- struct{}{}:
				default:
				}
			case EventProvidersCycled:
				exhausted = true
				select {
				case waiter <- struct{}{}:
				default:
				}
			}
		})
		defer m.RemoveListener(handle)

		m.Start()

		select {
		case <-waiter:
			if got != nil {
				return got, nil
			}
			if exhausted {
				return nil, errclass.Errorf(errclass.KindAllProvidersExhausted,
					"confmon: all providers exhausted: %v", m.lastError)
			}
			return nil, fmt.Errorf("confmon: woke with no result")
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	if err != nil {
		return nil, err
	}
	return result.(vbconf.Config), nil
}

// Shutdown tears down every provider in the chain. The monitor must not
// be used afterward.
func (m *Monitor) Shutdown() {
	if m.startTimer != nil {
		m.startTimer()
		m.startTimer = nil
	}
	for _, p := range m.providers {
		p.Shutdown()
	}
	if m.info != nil {
		m.info.Release()
		m.info = nil
	}
}
