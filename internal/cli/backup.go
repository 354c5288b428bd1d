package cli

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/schemastore/internal/backup"
)

// BackupOptions holds flags for the backup command.
type BackupOptions struct {
	*RootOptions
	Keep int
	List bool
}

// BackupListResult holds the output of backup --list.
type BackupListResult struct {
	Dir     string         `json:"dir"`
	Backups []backup.Entry `json:"backups"`
}

// NewBackupCommand creates the backup command.
func NewBackupCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BackupOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Copy the store file into the backup directory",
		Long: `Copy the primary store file to backup_<timestamp><ext> in the backup
directory. Nothing is written when the store file does not exist yet.

With --keep, the oldest backups beyond that count are removed afterwards.
With --list, existing backups are listed and nothing is copied.

Examples:
  schemastore backup
  schemastore backup --keep 20
  schemastore backup --list`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("keep") {
				opts.Keep = opts.Config.BackupKeep
			}
			if opts.List {
				return runBackupList(opts, cmd)
			}
			return runBackup(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Keep, "keep", 0, "keep at most this many backups (0 keeps all; default from config)")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list backups instead of taking one")

	return cmd
}

func runBackup(opts *BackupOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	mgr := opts.backupManager()
	mgr.Keep = opts.Keep

	// A fresh policy is always due, so this takes a backup now.
	_, result, err := mgr.CheckAndBackup(backup.NewPolicy(opts.Config.BackupInterval.Std()), opts.Config.StorePath)
	if err != nil {
		return formatter.Fail("backup failed", err)
	}

	return formatter.Result(result, func(w io.Writer) {
		switch result.Outcome {
		case backup.OutcomeCreated:
			fmt.Fprintf(w, "Backup written to %s.\n", result.Path)
			if n := len(result.Pruned); n > 0 {
				fmt.Fprintf(w, "Removed %d old backup(s).\n", n)
			}
		default:
			fmt.Fprintf(w, "No store file at %s; nothing to back up.\n", opts.Config.StorePath)
		}
	})
}

func runBackupList(opts *BackupOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	entries, err := opts.backupManager().List()
	if err != nil {
		return formatter.Fail("failed to list backups", err)
	}

	result := BackupListResult{Dir: opts.Config.BackupDir, Backups: entries}
	return formatter.Result(result, func(w io.Writer) {
		if len(entries) == 0 {
			fmt.Fprintf(w, "No backups in %s.\n", opts.Config.BackupDir)
			return
		}
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%d bytes\n", filepath.Base(e.Path), e.Size)
		}
	})
}
