// SPDX-License-Identifier: GPL-3.0-or-later

package confmon

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shardkv/vbc"
)

func discardLogger() vbc.SLogger {
	return vbc.DefaultSLogger()
}

// Starting an already-active monitor is a no-op.
func TestMonitorStartIdempotent(t *testing.T) {
	pa := &fakeProvider{kind: KindFile}
	m := New(syncConfig(), discardLogger(), []Provider{pa})

	m.Start()
	refreshesAfterFirst := pa.refreshes
	m.Start()

	assert.Equal(t, refreshesAfterFirst, pa.refreshes)
}

// Scenario 5: two providers, both fail, cycle completes and stops.
func TestMonitorCycleExhausted(t *testing.T) {
	wantErr := errors.New("boom")

	pa := &fakeProvider{kind: KindFile}
	pb := &fakeProvider{kind: KindCCCP}
	pa.refreshFn = func(cb Callback) { cb.Failed(pa, wantErr) }
	pb.refreshFn = func(cb Callback) { cb.Failed(pb, wantErr) }

	m := New(syncConfig(), discardLogger(), []Provider{pa, pb})

	var events []EventKind
	m.AddListener(func(ev Event) { events = append(events, ev.Kind) })

	m.Start()

	assert.Equal(t, 1, pa.refreshes)
	assert.Equal(t, 1, pb.refreshes)
	assert.Equal(t, []EventKind{EventProvidersCycled, EventMonitorStopped}, events)
	assert.ErrorIs(t, m.LastError(), wantErr)
	assert.False(t, m.active)
}

// Failed from a provider that is not the current cursor is ignored.
func TestMonitorFailedIgnoresStaleProvider(t *testing.T) {
	pa := &fakeProvider{kind: KindFile}
	pb := &fakeProvider{kind: KindCCCP}
	m := New(syncConfig(), discardLogger(), []Provider{pa, pb})

	m.Failed(pb, errors.New("stale"))

	assert.Nil(t, m.LastError())
}

// Scenario 6: success while refreshing installs and stops, emitting GotNewConfig.
func TestMonitorSuccessInstalls(t *testing.T) {
	cfg1 := &fakeVBConfig{label: "v1"}

	pa := &fakeProvider{kind: KindFile}
	m := New(syncConfig(), discardLogger(), []Provider{pa})
	pa.refreshFn = func(cb Callback) {
		cb.Success(pa, m.NewConfigInfo(cfg1, KindFile))
	}

	var events []EventKind
	m.AddListener(func(ev Event) { events = append(events, ev.Kind) })

	m.Start()

	assert.Equal(t, []EventKind{EventGotNewConfig, EventMonitorStopped}, events)
	assert.False(t, m.active)

	got, ok := m.CurrentConfig()
	require.True(t, ok)
	assert.Same(t, cfg1, got)
}

// A cached config found while walking the chain is installed without
// calling Refresh on that provider.
func TestMonitorDoNextProviderUsesCached(t *testing.T) {
	cfg1 := &fakeVBConfig{label: "v1"}
	pa := &fakeProvider{kind: KindFile}
	pb := &fakeProvider{kind: KindCCCP}

	m := New(syncConfig(), discardLogger(), []Provider{pa, pb})
	pb.cached = m.NewConfigInfo(cfg1, KindCCCP)
	pb.hasCached = true

	m.Start()

	assert.Equal(t, 0, pa.refreshes)
	assert.Equal(t, 0, pb.refreshes)
	got, ok := m.CurrentConfig()
	require.True(t, ok)
	assert.Same(t, cfg1, got)
	assert.False(t, m.active, "accepting a cached config must stop the monitor, not leave it Active forever")
}

// install rejects an identical configuration and, when asked, notifies
// GotAnyConfig instead of GotNewConfig.
func TestMonitorInstallRejectsNoChange(t *testing.T) {
	cfg1 := &fakeVBConfig{label: "v1"}

	pa := &fakeProvider{kind: KindFile}
	m := New(syncConfig(), discardLogger(), []Provider{pa})

	first := m.NewConfigInfo(cfg1, KindFile)
	ok := m.install(first, false)
	require.True(t, ok)

	var events []EventKind
	m.AddListener(func(ev Event) { events = append(events, ev.Kind) })

	second := m.NewConfigInfo(&fakeVBConfig{label: "v1"}, KindFile)
	ok = m.install(second, true)

	assert.False(t, ok)
	assert.Equal(t, []EventKind{EventGotAnyConfig}, events)
}

// install adopts a structurally different configuration whose revision
// or clock is newer, notifying every ConfigUpdater provider.
func TestMonitorInstallAdoptsNewer(t *testing.T) {
	pa := &fakeProvider{kind: KindFile}
	pb := &fakeProvider{kind: KindCCCP}
	m := New(syncConfig(), discardLogger(), []Provider{pa, pb})

	cfg1 := &fakeVBConfig{label: "v1"}
	cfg2 := &fakeVBConfig{label: "v2", diffWith: map[string]int{"v1": 1}}

	ok := m.install(m.NewConfigInfo(cfg1, KindFile), false)
	require.True(t, ok)

	ok = m.install(m.NewConfigInfo(cfg2, KindCCCP), false)
	require.True(t, ok)

	got, _ := m.CurrentConfig()
	assert.Same(t, cfg2, got)
	require.Len(t, pa.configured, 2)
	assert.Same(t, cfg2, pa.configured[1])
}

// A listener may remove itself during dispatch without affecting the
// event it is currently handling, and without being invoked again.
func TestMonitorListenerSelfRemoval(t *testing.T) {
	pa := &fakeProvider{kind: KindFile}
	m := New(syncConfig(), discardLogger(), []Provider{pa})

	calls := 0
	var handle ListenerHandle
	handle = m.AddListener(func(ev Event) {
		calls++
		m.RemoveListener(handle)
	})

	m.emit(Event{Kind: EventMonitorStopped})
	m.emit(Event{Kind: EventMonitorStopped})

	assert.Equal(t, 1, calls)
}

// A listener may remove a not-yet-visited listener during dispatch; the
// removed one must not fire for that dispatch.
func TestMonitorListenerRemovesSuccessor(t *testing.T) {
	pa := &fakeProvider{kind: KindFile}
	m := New(syncConfig(), discardLogger(), []Provider{pa})

	var secondHandle ListenerHandle
	secondCalls := 0

	m.AddListener(func(ev Event) {
		m.RemoveListener(secondHandle)
	})
	secondHandle = m.AddListener(func(ev Event) {
		secondCalls++
	})

	m.emit(Event{Kind: EventMonitorStopped})

	assert.Equal(t, 0, secondCalls)
}

// EnsureConfig returns immediately if a configuration is already current.
func TestEnsureConfigReturnsCurrent(t *testing.T) {
	pa := &fakeProvider{kind: KindFile}
	m := New(syncConfig(), discardLogger(), []Provider{pa})

	cfg1 := &fakeVBConfig{label: "v1"}
	m.install(m.NewConfigInfo(cfg1, KindFile), false)

	got, err := m.EnsureConfig(context.Background())
	require.NoError(t, err)
	assert.Same(t, cfg1, got)
	assert.Equal(t, 0, pa.refreshes)
}

// EnsureConfig starts the monitor and waits for a successful install.
func TestEnsureConfigStartsAndWaits(t *testing.T) {
	cfg1 := &fakeVBConfig{label: "v1"}
	pa := &fakeProvider{kind: KindFile}
	m := New(syncConfig(), discardLogger(), []Provider{pa})
	pa.refreshFn = func(cb Callback) {
		cb.Success(pa, m.NewConfigInfo(cfg1, KindFile))
	}

	got, err := m.EnsureConfig(context.Background())
	require.NoError(t, err)
	assert.Same(t, cfg1, got)
}

// EnsureConfig surfaces AllProvidersExhausted when the chain cycles dry.
func TestEnsureConfigExhausted(t *testing.T) {
	pa := &fakeProvider{kind: KindFile}
	pa.refreshFn = func(cb Callback) { cb.Failed(pa, errors.New("no config")) }
	m := New(syncConfig(), discardLogger(), []Provider{pa})

	_, err := m.EnsureConfig(context.Background())
	require.Error(t, err)
}

// Shutdown shuts down every provider exactly once.
func TestMonitorShutdown(t *testing.T) {
	pa := &fakeProvider{kind: KindFile}
	pb := &fakeProvider{kind: KindCCCP}
	m := New(syncConfig(), discardLogger(), []Provider{pa, pb})

	m.Shutdown()

	assert.Equal(t, 1, pa.shutdowns)
	assert.Equal(t, 1, pb.shutdowns)
}
