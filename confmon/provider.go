// SPDX-License-Identifier: GPL-3.0-or-later

package confmon

import (
	"context"

	"github.com/shardkv/vbc/vbconf"
)

// Callback is the back-reference a [Provider] uses to report the outcome
// of a [Provider.Refresh]. The monitor implements this interface and
// attaches itself to every provider it manages.
//
// Success and Failed must never be called synchronously from within
// Refresh: the provider must return first and report from a later tick
// (a goroutine, a timer, an I/O callback).
type Callback interface {
	Success(p Provider, info *ConfigInfo)
	Failed(p Provider, err error)
}

// Provider is a source of cluster configuration. FILE, CCCP, and HTTP
// providers are external collaborators that implement this interface;
// the monitor only depends on the interface.
type Provider interface {
	// Kind identifies this provider for chain ordering and logging.
	Kind() Kind

	// Attach installs the callback the provider reports outcomes to.
	// Called once, before the provider is added to a monitor's chain.
	Attach(cb Callback)

	// Refresh initiates an asynchronous fetch. The provider must later
	// call Success or Failed on its attached [Callback].
	Refresh(ctx context.Context)

	// GetCached returns the most recent usable configuration, or false
	// if the provider has nothing cached yet.
	GetCached() (*ConfigInfo, bool)

	// Shutdown releases all resources owned by the provider, including
	// the provider itself. Called at most once.
	Shutdown()
}

// Pauser is implemented by providers that support being paused when the
// monitor stops (e.g. an HTTP long-poll provider closing its stream).
type Pauser interface {
	Pause()
}

// ConfigUpdater is implemented by providers that want to learn about a
// newly installed configuration, regardless of origin (e.g. a CCCP
// provider redirecting its streaming connection to the new node list).
type ConfigUpdater interface {
	ConfigUpdated(cfg vbconf.Config)
}
