package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/schemastore/internal/backup"
	"github.com/roach88/schemastore/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	LogFormat  string // "text" | "json"
	ConfigPath string

	// Flag overrides for the config file; empty means "not given".
	StorePath string
	AuxDir    string
	BackupDir string

	// Resolved before any subcommand runs.
	Config *config.Config
	Logger *slog.Logger

	// Clock drives backup gating. Nil means the wall clock.
	Clock backup.Clock
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// ValidLogFormats defines the allowed log handler formats.
var ValidLogFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the schemastore CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schemastore",
		Short: "schemastore - named schema record store",
		Long: `Manage a store of named schema documents kept in a single file.

Records can be created, listed, exported to and imported from standalone
files, and duplicated. The sync command merges auxiliary store files into the
primary store without overwriting anything, and backups keep timestamped
copies of the store file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.resolve(cmd)
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "text", "log format on stderr (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (default ./"+config.DefaultFileName+")")
	cmd.PersistentFlags().StringVar(&opts.StorePath, "store", "", "primary store file")
	cmd.PersistentFlags().StringVar(&opts.AuxDir, "aux-dir", "", "directory of auxiliary store files")
	cmd.PersistentFlags().StringVar(&opts.BackupDir, "backup-dir", "", "directory receiving backups")

	// Add subcommands
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewDuplicateCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewBackupCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))

	return cmd
}

// resolve validates the global flags, builds the logger and loads the
// configuration with flag overrides applied.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	if !isValidFormat(o.Format) {
		return fmt.Errorf("invalid format %q: must be one of %v", o.Format, ValidFormats)
	}
	if !slices.Contains(ValidLogFormats, o.LogFormat) {
		return fmt.Errorf("invalid log format %q: must be one of %v", o.LogFormat, ValidLogFormats)
	}

	o.Logger = newLogger(cmd.ErrOrStderr(), o.LogFormat, o.Verbose)

	path := o.ConfigPath
	if path == "" {
		path = config.DefaultFileName
	}
	cfg, err := config.Load(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if o.StorePath != "" {
		cfg.StorePath = o.StorePath
	}
	if o.AuxDir != "" {
		cfg.AuxDir = o.AuxDir
	}
	if o.BackupDir != "" {
		cfg.BackupDir = o.BackupDir
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}
	o.Config = cfg

	o.Logger.Debug("config resolved",
		slog.String("config", path),
		slog.String("store", cfg.StorePath),
		slog.String("aux_dir", cfg.AuxDir),
		slog.String("backup_dir", cfg.BackupDir),
	)
	return nil
}

// formatter returns an OutputFormatter bound to the command's writers.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// newLogger builds the structured logger. Without --verbose only warnings
// and errors are shown, so command output stays readable.
func newLogger(w io.Writer, format string, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}
