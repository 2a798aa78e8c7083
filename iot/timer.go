// SPDX-License-Identifier: GPL-3.0-or-later

package iot

import (
	"sync"
	"time"
)

// softwareTimer implements [Timer] on top of [time.AfterFunc], shared by
// both concrete tables in this package.
type softwareTimer struct {
	mu   sync.Mutex
	f    func()
	t    *time.Timer
	fire func()
}

// newSoftwareTimer returns a [Timer] whose callback runs via dispatch,
// a function the owning table supplies to funnel the fire through its
// single dispatch point instead of time.AfterFunc's own goroutine.
func newSoftwareTimer(f func(), dispatch func(func())) *softwareTimer {
	return &softwareTimer{f: f, fire: dispatch}
}

func (st *softwareTimer) Arm(d time.Duration) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.t != nil {
		st.t.Stop()
	}
	st.t = time.AfterFunc(d, func() {
		st.fire(st.f)
	})
}

func (st *softwareTimer) Disarm() {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.t != nil {
		st.t.Stop()
		st.t = nil
	}
}
