package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/schemastore/internal/syncer"
)

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Merge auxiliary store files into the primary store",
		Long: `Merge every store file in the auxiliary directory into the primary store.

New names are added. Records equal to an existing one are skipped. A record
whose name is taken by a different payload is kept under the name with the
copy suffix appended, repeated until the name is free ("A_copy",
"A_copy_copy"). Nothing is overwritten, auxiliary files are never modified,
and running sync again with unchanged files changes nothing.

An unreadable auxiliary file is reported and skipped.

Examples:
  schemastore sync
  schemastore sync --aux-dir ./shared --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(rootOpts, cmd)
		},
	}
	return cmd
}

func runSync(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := commandContext(cmd)

	sess, err := opts.lockStore(ctx)
	if err != nil {
		return formatter.Fail("failed to open store", err)
	}
	defer sess.Close(opts.Logger)

	formatter.VerboseLog("Merging %s into %s", opts.Config.AuxDir, opts.Config.StorePath)
	report, err := opts.synchronizer().Sync(ctx, sess.store, opts.Config.AuxDir)
	if err != nil {
		return formatter.Fail("sync failed", err)
	}

	return formatter.Result(report, func(w io.Writer) {
		writeSyncReport(w, report)
	})
}

func writeSyncReport(w io.Writer, report *syncer.Report) {
	for _, f := range report.Failed {
		fmt.Fprintf(w, "Skipped unreadable file %s: %v\n", f.Path, f.Err)
	}
	if !report.Changed {
		fmt.Fprintf(w, "No changes to synchronize (%d file(s) checked).\n", report.Files)
		return
	}
	for _, name := range report.Added {
		fmt.Fprintf(w, "  + %s\n", name)
	}
	for _, r := range report.Renamed {
		fmt.Fprintf(w, "  + %s (conflicting %q)\n", r.To, r.From)
	}
	fmt.Fprintf(w, "Synchronization complete: %d added, %d renamed, %d unchanged.\n",
		len(report.Added), len(report.Renamed), report.Skipped)
}
