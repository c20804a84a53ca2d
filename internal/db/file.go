// Copyright (c) 2026 ToeiRei
// Warden - permission-gated command dispatcher
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/toeirei/warden/internal/model"
)

// DefaultUsersFile is used when the file backend is given an empty path.
const DefaultUsersFile = "users.json"

// fileRecord is the on-disk shape of one user. Password is null when unset.
type fileRecord struct {
	Perms    []string `json:"perms" yaml:"perms"`
	Password *string  `json:"password" yaml:"password"`
}

// FileBackend stores users in a single JSON or YAML document.
type FileBackend struct {
	path string
}

// NewFileBackend returns a backend for path. Files ending in .yaml or .yml
// are written as YAML, anything else as JSON.
func NewFileBackend(path string) *FileBackend {
	if path == "" {
		path = DefaultUsersFile
	}
	return &FileBackend{path: path}
}

// Path returns the document location.
func (f *FileBackend) Path() string { return f.path }

func (f *FileBackend) isYAML() bool {
	ext := strings.ToLower(filepath.Ext(f.path))
	return ext == ".yaml" || ext == ".yml"
}

// Load reads the document. A missing file is reported as an error wrapping
// os.ErrNotExist so callers can decide to start empty.
func (f *FileBackend) Load(ctx context.Context) (map[string]model.User, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read users file %s: %w", f.path, err)
	}
	raw := map[string]fileRecord{}
	if f.isYAML() {
		err = yaml.Unmarshal(data, &raw)
	} else {
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("parse users file %s: %w", f.path, err)
	}

	users := make(map[string]model.User, len(raw))
	for name, rec := range raw {
		u := model.User{Username: name, Permissions: rec.Perms}
		if rec.Password != nil {
			u.Password = *rec.Password
		}
		users[name] = u.Clone()
	}
	return users, nil
}

// Save writes the document to a temp file next to the target and renames it
// into place, so readers never observe a half-written file.
func (f *FileBackend) Save(ctx context.Context, users map[string]model.User) error {
	raw := make(map[string]fileRecord, len(users))
	for name, u := range users {
		rec := fileRecord{Perms: u.Permissions}
		if rec.Perms == nil {
			rec.Perms = []string{}
		}
		if u.Password != "" {
			pw := u.Password
			rec.Password = &pw
		}
		raw[name] = rec
	}

	var data []byte
	var err error
	if f.isYAML() {
		data, err = yaml.Marshal(raw)
	} else {
		data, err = json.MarshalIndent(raw, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode users: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("could not create store directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".users-*")
	if err != nil {
		return fmt.Errorf("create temp users file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write users file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync users file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close users file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("chmod users file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replace users file %s: %w", f.path, err)
	}
	dbLogf("db: wrote %d users to %s", len(users), f.path)
	return nil
}

// Close is a no-op for the file backend.
func (f *FileBackend) Close() error { return nil }
