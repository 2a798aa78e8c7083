// SPDX-License-Identifier: GPL-3.0-or-later

//go:build unix

package iot

import (
	"fmt"
	"net"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

// epollTable is an event-mode [Table] backed by a single epoll
// instance: one goroutine blocks in [unix.EpollWait] and hands every
// readiness edge to a single dispatch goroutine, so registered
// [Watcher] callbacks never run concurrently with each other. This is
// the idiomatic Go stand-in for the source's libevent-based IOT.
type epollTable struct {
	epfd int

	mu       sync.Mutex
	watchers map[int]*epollWatcher

	dispatchCh chan func()
	closeCh    chan struct{}
	closeOnce  sync.Once
}

// NewEventTable creates an epoll-backed event-mode [Table].
func NewEventTable() (Table, error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("iot: epoll_create1: %w", err)
	}
	t := &epollTable{
		epfd:       epfd,
		watchers:   make(map[int]*epollWatcher),
		dispatchCh: make(chan func(), 64),
		closeCh:    make(chan struct{}),
	}
	go t.pollLoop()
	go t.dispatchLoop()
	return t, nil
}

func (t *epollTable) Mode() Mode { return ModeEvent }

func (t *epollTable) NewTimer(f func()) Timer {
	return newSoftwareTimer(f, t.dispatch)
}

func (t *epollTable) EventOps() (EventOps, bool)           { return t, true }
func (t *epollTable) CompletionOps() (CompletionOps, bool) { return nil, false }

// Close shuts down the poll and dispatch goroutines and the underlying
// epoll file descriptor. Not required for process exit; useful in
// tests that construct many tables.
func (t *epollTable) Close() error {
	t.closeOnce.Do(func() { close(t.closeCh) })
	return unix.Close(t.epfd)
}

func (t *epollTable) dispatch(f func()) {
	select {
	case t.dispatchCh <- f:
	case <-t.closeCh:
	}
}

func (t *epollTable) dispatchLoop() {
	for {
		select {
		case f := <-t.dispatchCh:
			f()
		case <-t.closeCh:
			return
		}
	}
}

func (t *epollTable) pollLoop() {
	events := make([]unix.EpollEvent, 64)
	for {
		n, err := unix.EpollWait(t.epfd, events, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return
		}
		for i := 0; i < n; i++ {
			fd := int(events[i].Fd)
			t.mu.Lock()
			w, ok := t.watchers[fd]
			t.mu.Unlock()
			if !ok {
				continue
			}

			var want Want
			if events[i].Events&(unix.EPOLLIN|unix.EPOLLHUP|unix.EPOLLERR) != 0 {
				want |= WantRead
			}
			if events[i].Events&unix.EPOLLOUT != 0 {
				want |= WantWrite
			}
			if want == 0 {
				continue
			}
			onReady := w.onReady
			t.dispatch(func() { onReady(want) })
		}
	}
}

// Watch registers conn's underlying file descriptor for readiness
// delivery. conn must support [syscall.Conn] (true of every standard
// library net.Conn).
func (t *epollTable) Watch(conn net.Conn, want Want, onReady func(Want)) (Watcher, error) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return nil, fmt.Errorf("iot: conn %T does not implement syscall.Conn", conn)
	}
	rawConn, err := sc.SyscallConn()
	if err != nil {
		return nil, fmt.Errorf("iot: SyscallConn: %w", err)
	}

	var fd int
	if err := rawConn.Control(func(f uintptr) {
		fd = int(f)
	}); err != nil {
		return nil, fmt.Errorf("iot: Control: %w", err)
	}

	w := &epollWatcher{t: t, fd: fd, onReady: onReady}
	t.mu.Lock()
	t.watchers[fd] = w
	t.mu.Unlock()

	if err := w.Rearm(want); err != nil {
		t.mu.Lock()
		delete(t.watchers, fd)
		t.mu.Unlock()
		return nil, err
	}
	return w, nil
}

// epollWatcher is the per-fd registration an [epollTable] hands back
// from Watch.
type epollWatcher struct {
	t       *epollTable
	fd      int
	onReady func(Want)
	armed   bool
}

// Rearm changes the watched readiness, adding the epoll registration on
// first use and removing it entirely when want == 0 (disarm without
// destroying), per the event-mode "deliver once, then re-arm or
// disarm" contract.
func (w *epollWatcher) Rearm(want Want) error {
	var events uint32
	if want.Has(WantRead) {
		events |= unix.EPOLLIN
	}
	if want.Has(WantWrite) {
		events |= unix.EPOLLOUT
	}

	if events == 0 {
		if !w.armed {
			return nil
		}
		w.armed = false
		return unix.EpollCtl(w.t.epfd, unix.EPOLL_CTL_DEL, w.fd, nil)
	}

	ev := unix.EpollEvent{Events: events | unix.EPOLLONESHOT, Fd: int32(w.fd)}
	op := unix.EPOLL_CTL_MOD
	if !w.armed {
		op = unix.EPOLL_CTL_ADD
	}
	if err := unix.EpollCtl(w.t.epfd, op, w.fd, &ev); err != nil {
		return fmt.Errorf("iot: epoll_ctl: %w", err)
	}
	w.armed = true
	return nil
}

// Cancel destroys the watcher's epoll registration. Idempotent.
func (w *epollWatcher) Cancel() {
	w.t.mu.Lock()
	delete(w.t.watchers, w.fd)
	w.t.mu.Unlock()
	if w.armed {
		unix.EpollCtl(w.t.epfd, unix.EPOLL_CTL_DEL, w.fd, nil)
		w.armed = false
	}
}
