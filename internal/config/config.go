// Copyright (c) 2026 ToeiRei
// Warden - permission-gated command dispatcher
// This source code is licensed under the MIT license found in the LICENSE file.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// ConfigName is the base name of the config file, without extension.
const ConfigName = "warden"

// EnvPrefix prefixes every environment override, e.g. WARDEN_STORE_TYPE.
const EnvPrefix = "warden"

// Config is the full application configuration.
type Config struct {
	Store struct {
		// Type is "file", "sqlite", "postgres" or "mysql".
		Type string `mapstructure:"type" yaml:"type"`
		// Path is the users file for the file store.
		Path string `mapstructure:"path" yaml:"path"`
		// Dsn is the connection string for SQL stores.
		Dsn string `mapstructure:"dsn" yaml:"dsn"`
	} `mapstructure:"store" yaml:"store"`

	Audit struct {
		Path string `mapstructure:"path" yaml:"path"`
		// Database mirrors audit events into the SQL store's audit_log table.
		Database bool `mapstructure:"database" yaml:"database"`
	} `mapstructure:"audit" yaml:"audit"`

	Session struct {
		// DefaultTTL is in seconds.
		DefaultTTL int `mapstructure:"default_ttl" yaml:"default_ttl"`
	} `mapstructure:"session" yaml:"session"`

	Language string `mapstructure:"language" yaml:"language"`
	Debug    bool   `mapstructure:"debug" yaml:"debug"`
}

// Defaults returns the built-in default for every key.
func Defaults() map[string]any {
	return map[string]any{
		"store.type":          "file",
		"store.path":          "users.json",
		"store.dsn":           "",
		"audit.path":          "sudo_audit.log",
		"audit.database":      false,
		"session.default_ttl": 300,
		"language":            "en",
		"debug":               false,
	}
}

// GetConfigPath returns the full path for the user or system config file.
func GetConfigPath(system bool) (string, error) {
	var configDir string
	if system {
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), "Warden")
		default:
			configDir = "/etc/warden"
		}
	} else {
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(dir, "warden")
	}
	return filepath.Join(configDir, ConfigName+".yaml"), nil
}

// LoadConfig builds a T from defaults, the first config file found, the
// environment and cmd's flags, in increasing precedence. A missing config
// file is reported as viper.ConfigFileNotFoundError alongside a usable value.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, explicitPath *string) (T, string, error) {
	var c T
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName(ConfigName)
	v.SetConfigType("yaml")
	if explicitPath != nil {
		v.SetConfigFile(*explicitPath)
	}
	if p, err := GetConfigPath(false); err == nil {
		v.AddConfigPath(filepath.Dir(p))
	}
	if p, err := GetConfigPath(true); err == nil {
		v.AddConfigPath(filepath.Dir(p))
	}
	v.AddConfigPath(".")

	var notFound error
	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return c, "", err
		}
		notFound = err
	}

	v.AutomaticEnv()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if cmd != nil {
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return c, "", err
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, "", err
	}
	return c, v.ConfigFileUsed(), notFound
}

// WriteConfigFile writes c as YAML to the user or system config path.
func WriteConfigFile[T any](c *T, system bool) (string, error) {
	path, err := GetConfigPath(system)
	if err != nil {
		return "", err
	}
	return path, WriteConfigFileTo(c, path)
}

// WriteConfigFileTo writes c as YAML to path, creating parent directories.
// The file is created 0600 since a DSN may carry credentials.
func WriteConfigFileTo[T any](c *T, path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("could not create config directory %s: %w", dir, err)
	}
	return os.WriteFile(path, data, 0o600)
}
