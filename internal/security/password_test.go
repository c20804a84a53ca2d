// Copyright (c) 2026 ToeiRei
// Warden - permission-gated command dispatcher
// This source code is licensed under the MIT license found in the LICENSE file.

package security

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestHashPassword_KnownSalt(t *testing.T) {
	sum := sha256.Sum256([]byte("hunter2" + "abcd"))
	want := "abcd$" + hex.EncodeToString(sum[:])
	got, err := HashPassword("hunter2", "abcd")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if got != want {
		t.Fatalf("unexpected record: got %q want %q", got, want)
	}
}

func TestHashPassword_FreshSalt(t *testing.T) {
	a, err := HashPassword("pw", "")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	b, _ := HashPassword("pw", "")
	if a == b {
		t.Fatalf("expected different salts to produce different records")
	}
	salt, _, err := SplitRecord(a)
	if err != nil {
		t.Fatalf("SplitRecord error: %v", err)
	}
	if len(salt) != SaltBytes*2 {
		t.Fatalf("expected %d hex chars of salt, got %d", SaltBytes*2, len(salt))
	}
}

func TestHashPassword_RandFailure(t *testing.T) {
	prev := randRead
	randRead = func([]byte) (int, error) { return 0, errors.New("no entropy") }
	defer func() { randRead = prev }()

	if _, err := HashPassword("pw", ""); err == nil || !strings.Contains(err.Error(), "no entropy") {
		t.Fatalf("expected wrapped entropy error, got %v", err)
	}
}

func TestVerifyPassword(t *testing.T) {
	rec, err := HashPassword("correct horse", "")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	if !VerifyPassword(rec, "correct horse") {
		t.Errorf("expected password to verify")
	}
	if VerifyPassword(rec, "correct horse ") {
		t.Errorf("different plaintext must not verify")
	}
	for _, bad := range []string{"", "nodollar", "$hash", "salt$", "a$b$c"} {
		if VerifyPassword(bad, "x") {
			t.Errorf("malformed record %q must not verify", bad)
		}
	}
}

func TestSecretRedaction(t *testing.T) {
	s := FromString("supersecret")
	if fmt.Sprintf("%v", s) != "[SECRET]" || fmt.Sprintf("%s", s) != "[SECRET]" {
		t.Fatalf("secret leaked through fmt")
	}
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("json.Marshal failed: %v", err)
	}
	if string(b) != "\"[SECRET]\"" {
		t.Fatalf("unexpected json marshal: %s", string(b))
	}
	if s.Reveal() != "supersecret" {
		t.Fatalf("Reveal returned %q", s.Reveal())
	}
	s.Zero()
	for i, c := range s {
		if c != 0 {
			t.Fatalf("expected zeroed byte at index %d", i)
		}
	}
}
