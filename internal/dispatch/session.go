// Copyright (c) 2026 ToeiRei
// Warden - permission-gated command dispatcher
// This source code is licensed under the MIT license found in the LICENSE file.

package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/toeirei/warden/internal/model"
)

// There is no reaper goroutine: a session ends only when its invoker's next
// command observes it expired, or when EndSession is called.

func (d *Dispatcher) startSession(invoker, target string, ttl time.Duration) model.Session {
	s := model.Session{Invoker: invoker, Target: target, ExpiresAt: d.clock.Now().Add(ttl)}
	d.sessMu.Lock()
	d.sessions[invoker] = s
	d.sessMu.Unlock()
	return s
}

// activeSession returns invoker's live session. An expired one is deleted on
// the spot and reported as absent.
func (d *Dispatcher) activeSession(ctx context.Context, invoker string) (model.Session, bool) {
	d.sessMu.Lock()
	s, ok := d.sessions[invoker]
	if !ok {
		d.sessMu.Unlock()
		return model.Session{}, false
	}
	if s.Active(d.clock.Now()) {
		d.sessMu.Unlock()
		return s, true
	}
	delete(d.sessions, invoker)
	d.sessMu.Unlock()

	d.record(ctx, model.AuditEvent{Action: ActionSessionEnd, Invoker: invoker, ActingUser: s.Target, Detail: "expired"})
	return model.Session{}, false
}

// Session returns invoker's stored session without expiring it.
func (d *Dispatcher) Session(invoker string) (model.Session, bool) {
	d.sessMu.Lock()
	defer d.sessMu.Unlock()
	s, ok := d.sessions[invoker]
	return s, ok
}

// EndSession drops invoker's session, reporting whether one existed.
func (d *Dispatcher) EndSession(ctx context.Context, invoker string) bool {
	unlock := d.lockInvoker(invoker)
	defer unlock()

	d.sessMu.Lock()
	s, ok := d.sessions[invoker]
	delete(d.sessions, invoker)
	d.sessMu.Unlock()
	if ok {
		d.record(ctx, model.AuditEvent{Action: ActionSessionEnd, Invoker: invoker, ActingUser: s.Target, Detail: "ended"})
	}
	return ok
}

// invokerLock serializes Run calls of one invoker. refs lets the map entry go
// away once nobody holds or waits for it.
type invokerLock struct {
	mu   sync.Mutex
	refs int
}

func (d *Dispatcher) lockInvoker(name string) (unlock func()) {
	d.locksMu.Lock()
	l, ok := d.locks[name]
	if !ok {
		l = &invokerLock{}
		d.locks[name] = l
	}
	l.refs++
	d.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		d.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(d.locks, name)
		}
		d.locksMu.Unlock()
	}
}
