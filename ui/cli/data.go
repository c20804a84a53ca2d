// Copyright (c) 2026 ToeiRei
// Warden - permission-gated command dispatcher
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/toeirei/warden/internal/db"
	"github.com/toeirei/warden/internal/i18n"
)

func defaultBackupName(now time.Time) string {
	return fmt.Sprintf("warden-backup-%s.json.zst", now.Format("2006-01-02"))
}

func newBackupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup [output-file]",
		Short: "Write a compressed (zstd) JSON backup of all users",
		Long: `Dumps every user, permission set and password hash into a single
Zstandard-compressed JSON file.

'.zst' is appended to the output name if missing. Without an output file,
'warden-backup-YYYY-MM-DD.json.zst' is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := defaultBackupName(time.Now())
			if len(args) == 1 {
				out = args[0]
				if !strings.HasSuffix(out, ".zst") {
					out += ".zst"
				}
			}
			f, err := os.OpenFile(out, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
			if err != nil {
				return fmt.Errorf("create backup file: %w", err)
			}
			if err := svc.Backup(cmd.Context(), f); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.backup_done", out))
			return nil
		},
	}
}

func newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <backup-file.zst>",
		Short: "Replace all users with the contents of a backup",
		Long: `Restores users from a backup written by 'warden backup'.
WARNING: the current user set is replaced entirely.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()
			n, err := svc.Restore(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.restore_done", n, args[0]))
			return nil
		},
	}
}

func newDBCmd() *cobra.Command {
	dbCmd := &cobra.Command{
		Use:   "db",
		Short: "SQL store administration",
	}

	var timeoutSec int
	maintain := &cobra.Command{
		Use:   "maintain",
		Short: "Run engine maintenance (VACUUM, OPTIMIZE) on the SQL store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if svc.StoreKind() == db.KindFile {
				fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.maintain_file_store"))
				return nil
			}
			ctx := cmd.Context()
			if timeoutSec > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, time.Duration(timeoutSec)*time.Second)
				defer cancel()
			}
			if err := svc.Maintain(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.maintain_done"))
			return nil
		},
	}
	maintain.Flags().IntVar(&timeoutSec, "timeout", 0, "Timeout in seconds (0 means no timeout)")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show audit_log row count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			n, err := svc.AuditRows(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("cli.audit_rows", n))
			return nil
		},
	}

	dbCmd.AddCommand(maintain, stats)
	return dbCmd
}
