// Copyright (c) 2026 ToeiRei
// Warden - permission-gated command dispatcher
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/toeirei/warden/internal/model"
)

// BackupVersion is the archive format written by Backup.
const BackupVersion = 1

// BackupData is the JSON document inside a backup archive.
type BackupData struct {
	Version   int                   `json:"version"`
	CreatedAt time.Time             `json:"created_at"`
	Users     map[string]BackupUser `json:"users"`
}

// BackupUser mirrors one entry of the users file.
type BackupUser struct {
	Perms    []string `json:"perms"`
	Password *string  `json:"password"`
}

// Backup writes every user as zstd-compressed JSON to w.
func (s *Service) Backup(ctx context.Context, w io.Writer) error {
	data := BackupData{Version: BackupVersion, CreatedAt: time.Now().UTC(), Users: map[string]BackupUser{}}
	for name, u := range s.store.Snapshot() {
		bu := BackupUser{Perms: u.Permissions}
		if u.HasPassword() {
			p := u.Password
			bu.Password = &p
		}
		data.Users[name] = bu
	}

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}
	enc := json.NewEncoder(zw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&data); err != nil {
		_ = zw.Close()
		return fmt.Errorf("encode backup: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("flush backup: %w", err)
	}
	return nil
}

// Restore replaces the whole user set with the archive read from r and
// returns the number of users restored. Sessions are not touched.
func (s *Service) Restore(ctx context.Context, r io.Reader) (int, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return 0, fmt.Errorf("create zstd reader: %w", err)
	}
	defer zr.Close()

	var data BackupData
	if err := json.NewDecoder(zr).Decode(&data); err != nil {
		return 0, fmt.Errorf("decode backup: %w", err)
	}
	if data.Version != BackupVersion {
		return 0, fmt.Errorf("unsupported backup version %d", data.Version)
	}

	users := make(map[string]model.User, len(data.Users))
	for name, bu := range data.Users {
		u := model.User{Username: name, Permissions: bu.Perms}
		if bu.Password != nil {
			u.Password = *bu.Password
		}
		users[name] = u
	}
	if err := s.store.Replace(ctx, users); err != nil {
		return 0, err
	}
	s.record(ctx, model.AuditEvent{Action: ActionRestore, Outcome: model.OutcomeOK, Detail: fmt.Sprintf("%d users", len(users))})
	return len(users), nil
}
