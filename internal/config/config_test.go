// Copyright (c) 2026 ToeiRei
// Warden - permission-gated command dispatcher
// This source code is licensed under the MIT license found in the LICENSE file.

package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	cfg "github.com/toeirei/warden/internal/config"
)

// isolate points every config search path at an empty temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)
	t.Setenv("HOME", tmp)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(tmp); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return tmp
}

func TestLoadConfig_DefaultsWhenNoFile(t *testing.T) {
	isolate(t)
	c, used, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), nil)
	if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
		t.Fatalf("expected ConfigFileNotFoundError, got %T %v", err, err)
	}
	if used != "" {
		t.Fatalf("no file should be used, got %q", used)
	}
	if c.Store.Type != "file" || c.Store.Path != "users.json" {
		t.Errorf("unexpected store defaults: %+v", c.Store)
	}
	if c.Audit.Path != "sudo_audit.log" || c.Audit.Database {
		t.Errorf("unexpected audit defaults: %+v", c.Audit)
	}
	if c.Session.DefaultTTL != 300 || c.Language != "en" || c.Debug {
		t.Errorf("unexpected defaults: %+v", c)
	}
}

func TestLoadConfig_ReadsExplicitFile(t *testing.T) {
	tmp := isolate(t)
	file := filepath.Join(tmp, "custom.yaml")
	body := "store:\n  type: sqlite\n  dsn: file:warden.db\nsession:\n  default_ttl: 60\nlanguage: pt\n"
	if err := os.WriteFile(file, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	c, used, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), &file)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if used != file {
		t.Errorf("used %q, want %q", used, file)
	}
	if c.Store.Type != "sqlite" || c.Store.Dsn != "file:warden.db" {
		t.Errorf("store not read from file: %+v", c.Store)
	}
	if c.Session.DefaultTTL != 60 || c.Language != "pt" {
		t.Errorf("values not read from file: %+v", c)
	}
	if c.Store.Path != "users.json" {
		t.Errorf("unset keys should keep defaults, got %q", c.Store.Path)
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	tmp := isolate(t)
	if err := os.WriteFile(filepath.Join(tmp, "warden.yaml"), []byte("language: pt\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("WARDEN_LANGUAGE", "en")
	t.Setenv("WARDEN_AUDIT_PATH", "/var/log/warden.log")

	c, _, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if c.Language != "en" {
		t.Errorf("env should override file, got %q", c.Language)
	}
	if c.Audit.Path != "/var/log/warden.log" {
		t.Errorf("nested env override not applied: %q", c.Audit.Path)
	}
}

func TestLoadConfig_FlagsOverrideEverything(t *testing.T) {
	isolate(t)
	t.Setenv("WARDEN_STORE_TYPE", "postgres")

	cmd := &cobra.Command{}
	cmd.Flags().String("store.type", "file", "")
	if err := cmd.Flags().Set("store.type", "mysql"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	c, _, _ := cfg.LoadConfig[cfg.Config](cmd, cfg.Defaults(), nil)
	if c.Store.Type != "mysql" {
		t.Fatalf("flag should win, got %q", c.Store.Type)
	}
}

func TestWriteConfigFile_RoundTrip(t *testing.T) {
	isolate(t)
	var c cfg.Config
	c.Store.Type = "file"
	c.Store.Path = "people.yaml"
	c.Session.DefaultTTL = 42
	c.Language = "en"

	path, err := cfg.WriteConfigFile(&c, false)
	if err != nil {
		t.Fatalf("WriteConfigFile: %v", err)
	}
	st, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if st.Mode().Perm() != 0o600 {
		t.Errorf("config file mode = %v, want 0600", st.Mode().Perm())
	}

	got, _, err := cfg.LoadConfig[cfg.Config](&cobra.Command{}, cfg.Defaults(), &path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Store.Path != "people.yaml" || got.Session.DefaultTTL != 42 {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}
