package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/schemastore/internal/backup"
	"github.com/roach88/schemastore/internal/store"
	"github.com/roach88/schemastore/internal/syncer"
)

// session is a loaded store, optionally held under the store lock.
type session struct {
	store *store.Store
	lock  *store.FileLock
}

// openStore loads the configured store without locking, for read-only
// commands. Writers replace the file atomically, so a reader always sees a
// complete store.
func (o *RootOptions) openStore() (*session, error) {
	st, err := store.Load(o.Config.StorePath, store.WithLogger(o.Logger))
	if err != nil {
		return nil, err
	}
	return &session{store: st}, nil
}

// lockStore takes the store lock and then loads the store, so the whole
// load-modify-persist cycle runs under the lock. Close releases it.
func (o *RootOptions) lockStore(ctx context.Context) (*session, error) {
	lock, err := store.Lock(ctx, o.Config.StorePath, o.Config.LockTimeout.Std())
	if err != nil {
		return nil, err
	}
	st, err := store.Load(o.Config.StorePath, store.WithLogger(o.Logger))
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}
	return &session{store: st, lock: lock}, nil
}

// Close releases the store lock, if held.
func (s *session) Close(logger *slog.Logger) {
	if err := s.lock.Unlock(); err != nil {
		logger.Warn("releasing store lock", slog.String("error", err.Error()))
	}
}

// synchronizer builds a Synchronizer from the configuration.
func (o *RootOptions) synchronizer() *syncer.Synchronizer {
	s := syncer.New(o.Logger)
	s.Extension = o.Config.Extension
	s.Suffix = o.Config.CopySuffix
	return s
}

// backupManager builds a backup Manager from the configuration.
func (o *RootOptions) backupManager() *backup.Manager {
	return &backup.Manager{
		Dir:    o.Config.BackupDir,
		Ext:    o.Config.Extension,
		Keep:   o.Config.BackupKeep,
		Clock:  o.Clock,
		Logger: o.Logger,
	}
}

// commandContext returns the command's context, or Background when the
// command was executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
