// Copyright (c) 2026 ToeiRei
// Warden - permission-gated command dispatcher
// This source code is licensed under the MIT license found in the LICENSE file.

package registry

import (
	"context"
	"strings"
	"sync"
	"testing"
)

func constHandler(s string) HandlerFunc {
	return func(context.Context, Invocation) (string, error) { return s, nil }
}

func TestRegisterLookup(t *testing.T) {
	r := New()
	if _, ok := r.Lookup("whoami"); ok {
		t.Fatalf("empty registry should not find anything")
	}
	r.RegisterFunc("whoami", constHandler("me"), "")
	r.Register("grant", constHandler("granted"), "grant")

	e, ok := r.Lookup("grant")
	if !ok || e.Permission != "grant" || e.Name != "grant" {
		t.Fatalf("unexpected entry: %+v ok=%v", e, ok)
	}
	got, err := e.Handler.Run(context.Background(), Invocation{User: "alice"})
	if err != nil || got != "granted" {
		t.Fatalf("handler returned %q, %v", got, err)
	}
}

func TestRegister_ReplaceKeepsOrder(t *testing.T) {
	r := New()
	r.RegisterFunc("a", constHandler("1"), "")
	r.RegisterFunc("b", constHandler("2"), "")
	r.RegisterFunc("a", constHandler("3"), "admin")

	if got := strings.Join(r.Names(), ","); got != "a,b" {
		t.Fatalf("Names = %s, want a,b", got)
	}
	e, _ := r.Lookup("a")
	out, _ := e.Handler.Run(context.Background(), Invocation{})
	if out != "3" || e.Permission != "admin" {
		t.Fatalf("replacement not in effect: %q %q", out, e.Permission)
	}

	names := r.Names()
	names[0] = "mutated"
	if r.Names()[0] != "a" {
		t.Fatalf("Names must return a copy")
	}
}

func TestRegistry_ConcurrentRegisterAndLookup(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		name := string(rune('A' + i%26))
		go func() { defer wg.Done(); r.RegisterFunc(name, constHandler(name), "") }()
		go func() { defer wg.Done(); _, _ = r.Lookup(name) }()
	}
	wg.Wait()
	if n := len(r.Names()); n != 26 {
		t.Fatalf("expected 26 distinct names, got %d", n)
	}
}
