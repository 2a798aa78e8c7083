// SPDX-License-Identifier: GPL-3.0-or-later

package confmon

import "time"

// Config holds the monitor's tunables and the hooks it uses for time and
// timers, both overridable for deterministic tests.
type Config struct {
	// GraceNextCycle is the minimum delay, in milliseconds, between a
	// stop and the next full provider cycle.
	GraceNextCycle int64

	// GraceNextProvider is the delay, in milliseconds, inserted between
	// consecutive providers within one cycle.
	GraceNextProvider int64

	// TimeNow returns the current time (configurable for testing).
	TimeNow func() time.Time

	// AfterFunc arms a one-shot timer that calls f after d elapses,
	// returning a function that disarms it (idempotent, like
	// [time.Timer.Stop]). Configurable for testing so that timer
	// firing can be driven synchronously.
	AfterFunc func(d time.Duration, f func()) (stop func() bool)
}

// NewConfig returns a [*Config] with sensible defaults: grace periods
// per the reference implementation and real wall-clock timers.
func NewConfig() *Config {
	return &Config{
		GraceNextCycle:    1000,
		GraceNextProvider: 0,
		TimeNow:           time.Now,
		AfterFunc: func(d time.Duration, f func()) func() bool {
			t := time.AfterFunc(d, f)
			return t.Stop
		},
	}
}
