// Copyright (c) 2026 ToeiRei
// Warden - permission-gated command dispatcher
// This source code is licensed under the MIT license found in the LICENSE file.

package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// SaltBytes is the number of random bytes in a fresh salt.
const SaltBytes = 16

// ErrMalformedRecord is returned when a stored password record is not of
// the form "<hexSalt>$<hexHash>".
var ErrMalformedRecord = errors.New("malformed password record")

// randRead is swapped by tests.
var randRead = rand.Read

// HashPassword returns the encoded record "<salt>$<hash>" where
// hash = hex(sha256(plain ++ salt)). An empty salt draws a fresh one.
func HashPassword(plain, salt string) (string, error) {
	if salt == "" {
		buf := make([]byte, SaltBytes)
		if _, err := randRead(buf); err != nil {
			return "", fmt.Errorf("generate salt: %w", err)
		}
		salt = hex.EncodeToString(buf)
	}
	sum := sha256.Sum256([]byte(plain + salt))
	return salt + "$" + hex.EncodeToString(sum[:]), nil
}

// SplitRecord splits an encoded record into salt and hash.
func SplitRecord(record string) (salt, hash string, err error) {
	salt, hash, ok := strings.Cut(record, "$")
	if !ok || salt == "" || hash == "" || strings.Contains(hash, "$") {
		return "", "", ErrMalformedRecord
	}
	return salt, hash, nil
}

// VerifyPassword recomputes the hash with the record's salt and compares in
// constant time. A malformed record never verifies.
func VerifyPassword(record, plain string) bool {
	salt, _, err := SplitRecord(record)
	if err != nil {
		return false
	}
	candidate, err := HashPassword(plain, salt)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(record)) == 1
}
