package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/schemastore/internal/backup"
	"github.com/roach88/schemastore/internal/watch"
)

// maxBackupCheck bounds how long a due backup can wait while watching.
const maxBackupCheck = time.Minute

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the store synchronized and backed up",
		Long: `Synchronize once, then watch the auxiliary directory and synchronize again
whenever a store file in it changes. Backups are taken whenever the backup
interval has elapsed. Runs until interrupted.

Example:
  schemastore watch --aux-dir ./shared -v`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(rootOpts, cmd)
		},
	}
	return cmd
}

func runWatch(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	cfg := opts.Config
	logger := opts.Logger

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", slog.String("signal", sig.String()))
			cancel()
		case <-ctx.Done():
		}
	}()

	mgr := opts.backupManager()
	policy := backup.NewPolicy(cfg.BackupInterval.Std())

	// Both callbacks run on the watcher goroutine, so policy needs no lock.
	checkBackup := func(context.Context) error {
		next, _, err := mgr.CheckAndBackup(policy, cfg.StorePath)
		policy = next
		if err != nil {
			return fmt.Errorf("backup: %w", err)
		}
		return nil
	}

	syncOnce := func(ctx context.Context) error {
		sess, err := opts.lockStore(ctx)
		if err != nil {
			return err
		}
		report, err := opts.synchronizer().Sync(ctx, sess.store, cfg.AuxDir)
		sess.Close(logger)
		if err != nil {
			return err
		}
		if report.Changed && formatter.Format != "json" {
			writeSyncReport(formatter.Writer, report)
		}
		return checkBackup(ctx)
	}

	w, err := watch.New(watch.Options{
		Dir:          cfg.AuxDir,
		Extension:    cfg.Extension,
		Ignore:       cfg.StorePath,
		Debounce:     cfg.Watch.Debounce.Std(),
		TickInterval: min(cfg.BackupInterval.Std(), maxBackupCheck),
		SyncOnStart:  true,
		OnChange:     syncOnce,
		OnTick:       checkBackup,
		Logger:       logger,
	})
	if err != nil {
		return formatter.Fail("failed to start watcher", err)
	}

	if formatter.Format != "json" {
		fmt.Fprintf(formatter.Writer, "Watching %s for changes. Press Ctrl-C to stop.\n", cfg.AuxDir)
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return formatter.Fail("failed to start watcher", err)
	}

	<-ctx.Done()
	w.Stop()

	stats := w.Stats()
	logger.Info("watch stopped",
		slog.Int("events", stats.Events),
		slog.Int("syncs", stats.Syncs),
		slog.Int("errors", stats.Errors),
	)
	if formatter.Format == "json" {
		return formatter.Success(stats)
	}
	return nil
}
