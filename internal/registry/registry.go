// Copyright (c) 2026 ToeiRei
// Warden - permission-gated command dispatcher
// This source code is licensed under the MIT license found in the LICENSE file.

// Package registry maps command names to handlers and the permission needed
// to run them. A Registry is built once at startup and handed to the
// dispatcher and to the presentation layers.
package registry

import (
	"context"
	"sync"
)

// Invocation is what a handler receives: the acting user and the positional
// arguments that followed the command name.
type Invocation struct {
	User string
	Args []string
}

// Handler runs a command. A non-nil error is a handler fault and is shown to
// the caller as "error: <message>".
type Handler interface {
	Run(ctx context.Context, inv Invocation) (string, error)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, inv Invocation) (string, error)

// Run calls f.
func (f HandlerFunc) Run(ctx context.Context, inv Invocation) (string, error) {
	return f(ctx, inv)
}

// Entry is one registered command. An empty Permission means anyone may run it.
type Entry struct {
	Name       string
	Handler    Handler
	Permission string
}

// Registry is safe for concurrent use, so late registration can't race a
// dispatch in progress.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
	order   []string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{entries: map[string]Entry{}}
}

// Register inserts or replaces name. A replaced command keeps its position in
// Names.
func (r *Registry) Register(name string, h Handler, permission string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; !exists {
		r.order = append(r.order, name)
	}
	r.entries[name] = Entry{Name: name, Handler: h, Permission: permission}
}

// RegisterFunc is Register for a plain function.
func (r *Registry) RegisterFunc(name string, fn HandlerFunc, permission string) {
	r.Register(name, fn, permission)
}

// Lookup returns the entry for name.
func (r *Registry) Lookup(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e, ok
}

// Names returns every registered name in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
