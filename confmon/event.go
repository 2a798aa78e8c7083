// SPDX-License-Identifier: GPL-3.0-or-later

package confmon

// EventKind identifies which of the four monitor events fired.
type EventKind int

const (
	// EventGotNewConfig fires when install adopted a strictly newer
	// configuration. Event.Info is the adopted ConfigInfo.
	EventGotNewConfig EventKind = iota

	// EventGotAnyConfig fires when install rejected a configuration
	// that was no improvement over the current one, but only on the
	// miss path that asked to be told (notify_miss). Event.Info is the
	// rejected ConfigInfo.
	EventGotAnyConfig

	// EventProvidersCycled fires when a full pass over the active
	// provider chain completed without any provider producing an
	// installable configuration.
	EventProvidersCycled

	// EventMonitorStopped fires when the monitor transitions to Idle.
	EventMonitorStopped
)

func (k EventKind) String() string {
	switch k {
	case EventGotNewConfig:
		return "GotNewConfig"
	case EventGotAnyConfig:
		return "GotAnyConfig"
	case EventProvidersCycled:
		return "ProvidersCycled"
	case EventMonitorStopped:
		return "MonitorStopped"
	default:
		return "Unknown"
	}
}

// Event is delivered to every registered [Listener].
type Event struct {
	Kind EventKind
	Info *ConfigInfo // nil for ProvidersCycled and MonitorStopped
}

// Listener receives monitor events, invoked synchronously and in
// registration order. A listener may deregister itself or any other
// listener (including ones not yet visited) during dispatch; such
// removals take effect for the remainder of the current dispatch.
type Listener func(Event)

// listenerEntry wraps a Listener with a tombstone so that dispatch can
// tolerate removal of the current or a not-yet-visited entry without
// disturbing the slice it is ranging over.
type listenerEntry struct {
	fn      Listener
	removed bool
}

// ListenerHandle identifies a registered [Listener] for later removal.
type ListenerHandle struct {
	entry *listenerEntry
}
