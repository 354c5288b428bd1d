package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/schemastore/internal/transfer"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	OutputDir string
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file> [name]",
		Short: "Import a schema from a transfer file",
		Long: `Import one schema from a transfer file into the store.

A transfer file normally holds a single schema, which is imported when no
name is given. For files holding several schemas, name selects one. A name
already present in the store is never overwritten.

Examples:
  schemastore import ./Pipeline.barfi
  schemastore import ./team.barfi Pipeline`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 2 {
				name = args[1]
			}
			return runImport(rootOpts, args[0], name, cmd)
		},
	}
	return cmd
}

func runImport(opts *RootOptions, path, name string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	sess, err := opts.lockStore(commandContext(cmd))
	if err != nil {
		return formatter.Fail("failed to open store", err)
	}
	defer sess.Close(opts.Logger)

	imported, err := transfer.ImportFile(sess.store, path, name)
	if err != nil {
		return formatter.Fail("import failed", err)
	}

	return formatter.Result(RecordResult{Name: imported, Action: "imported", Source: path}, func(w io.Writer) {
		fmt.Fprintf(w, "Schema %q imported from %s.\n", imported, path)
	})
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export <name>",
		Short: "Export a schema to a transfer file",
		Long: `Write one schema to <name><ext> in the output directory. The file uses
the store encoding and can be imported into any store.

Examples:
  schemastore export Pipeline
  schemastore export Pipeline -o ./shared`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.OutputDir, "output", "o", ".", "output directory")

	return cmd
}

func runExport(opts *ExportOptions, name string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	sess, err := opts.openStore()
	if err != nil {
		return formatter.Fail("failed to load store", err)
	}

	path, err := transfer.ExportTo(sess.store, name, opts.Config.Extension, opts.OutputDir)
	if err != nil {
		return formatter.Fail("export failed", err)
	}

	return formatter.Result(RecordResult{Name: name, Action: "exported", Path: path}, func(w io.Writer) {
		fmt.Fprintf(w, "Schema %q exported to %s.\n", name, path)
	})
}

// NewDuplicateCommand creates the duplicate command.
func NewDuplicateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "duplicate <src> [dst]",
		Short: "Copy a schema under a new name",
		Long: `Store a copy of a schema under a new name. Without dst the copy is named
after the source with the copy suffix appended ("Pipeline_copy").

Examples:
  schemastore duplicate Pipeline
  schemastore duplicate Pipeline PipelineV2`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dst := ""
			if len(args) == 2 {
				dst = args[1]
			}
			return runDuplicate(rootOpts, args[0], dst, cmd)
		},
	}
	return cmd
}

func runDuplicate(opts *RootOptions, src, dst string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if dst == "" {
		dst = transfer.DefaultCopyName(src, opts.Config.CopySuffix)
	}

	sess, err := opts.lockStore(commandContext(cmd))
	if err != nil {
		return formatter.Fail("failed to open store", err)
	}
	defer sess.Close(opts.Logger)

	name, err := transfer.Duplicate(sess.store, src, dst)
	if err != nil {
		return formatter.Fail("duplicate failed", err)
	}

	return formatter.Result(RecordResult{Name: name, Action: "duplicated", Source: src}, func(w io.Writer) {
		fmt.Fprintf(w, "Schema %q duplicated as %q.\n", src, name)
	})
}
