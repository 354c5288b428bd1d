package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runDelete(opts *RootOptions, name string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	sess, err := opts.lockStore(commandContext(cmd))
	if err != nil {
		return formatter.Fail("failed to open store", err)
	}
	defer sess.Close(opts.Logger)

	if err := sess.store.Delete(name); err != nil {
		return formatter.Fail("delete failed", err)
	}
	if err := sess.store.Persist(); err != nil {
		return formatter.Fail("delete failed", err)
	}

	return formatter.Result(RecordResult{Name: name, Action: "deleted"}, func(w io.Writer) {
		fmt.Fprintf(w, "Schema %q deleted.\n", name)
	})
}
