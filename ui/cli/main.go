// Copyright (c) 2026 ToeiRei
// Warden - permission-gated command dispatcher
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/toeirei/warden/internal/config"
	"github.com/toeirei/warden/internal/core"
	"github.com/toeirei/warden/internal/i18n"
	"github.com/toeirei/warden/internal/logging"
)

var (
	cfgFile   string
	appConfig config.Config
	// svc is opened by setupDefaultServices and closed by the root's
	// PersistentPostRunE.
	svc *core.Service
)

// setupDefaultServices loads the configuration and opens the service.
func setupDefaultServices(cmd *cobra.Command, _ []string) error {
	explicit, err := getConfigPathFromCli(cmd)
	if err != nil {
		return err
	}

	var used string
	appConfig, used, err = config.LoadConfig[config.Config](cmd, config.Defaults(), explicit)
	switch {
	case errors.As(err, &viper.ConfigFileNotFoundError{}):
		// First run: persist the defaults so there is a file to edit.
		if path, werr := config.WriteConfigFile(&appConfig, false); werr != nil {
			logging.Warnf("could not write default config file: %v", werr)
		} else {
			logging.Infof("%s", i18n.T("cli.config_written", path))
		}
	case err != nil:
		return fmt.Errorf("error loading config: %w", err)
	default:
		logging.Debugf("config: using %s", used)
	}

	logging.SetDebug(appConfig.Debug)
	i18n.Init(appConfig.Language)

	if svc != nil {
		// left over from a command that failed before its post-run hook
		_ = svc.Close()
	}
	svc, err = core.Open(cmd.Context(), appConfig)
	if err != nil {
		return err
	}
	return nil
}

func closeServices(*cobra.Command, []string) error {
	if svc == nil {
		return nil
	}
	err := svc.Close()
	svc = nil
	return err
}

func getConfigPathFromCli(cmd *cobra.Command) (*string, error) {
	if !cmd.Flags().Changed("config") {
		return nil, nil
	}
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("could not read --config flag: %w", err)
	}
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file specified via --config flag not found or is not accessible: %w", err)
	}
	return &path, nil
}

// Execute runs the CLI. The main package handles the exit code.
func Execute() error {
	err := NewRootCmd().Execute()
	if cerr := closeServices(nil, nil); err == nil {
		err = cerr
	}
	return err
}

// NewRootCmd builds a fresh command tree. Tests call it once per case.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               "warden",
		Short:             i18n.T("app.short"),
		Long:              i18n.T("app.long"),
		SilenceUsage:      true,
		PersistentPreRunE: setupDefaultServices,
		PersistentPostRunE: closeServices,
	}
	cmd.Version = compositeVersion()

	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file")
	pf.String("store.type", "file", `Store type ("file", "sqlite", "postgres", "mysql")`)
	pf.String("store.path", "users.json", "Users file for the file store (.json, .yaml or .yml)")
	pf.String("store.dsn", "", "Connection string for SQL stores")
	pf.String("audit.path", "sudo_audit.log", "Audit log file")
	pf.Bool("audit.database", false, "Also write audit events to the SQL store")
	pf.Int("session.default_ttl", 300, "Default sudo -i session length in seconds")
	pf.String("language", "en", `Interface language ("en", "pt")`)
	pf.BoolP("debug", "v", false, "Enable debug logging")

	cmd.AddCommand(
		newExecCmd(),
		newLoginCmd(),
		newConsoleCmd(),
		newBootstrapCmd(),
		newUsersCmd(),
		newPermsCmd(),
		newCommandsCmd(),
		newPasswdCmd(),
		newBackupCmd(),
		newRestoreCmd(),
		newDBCmd(),
		newVersionCmd(),
	)
	return cmd
}
