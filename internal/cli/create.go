package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// RecordResult is the output of commands that change a single record.
type RecordResult struct {
	Name   string `json:"name"`
	Action string `json:"action"`
	Source string `json:"source,omitempty"`
	Path   string `json:"path,omitempty"`
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <name> <payload|->",
		Short: "Create a schema from payload text",
		Long: `Create a schema from payload text given as an argument, or read from
stdin when the argument is "-".

The text must be a mapping in JSON, YAML or Python literal form; unquoted
None, True and False are read as null, true and false. Anything else is
rejected and nothing is stored. An existing name is never overwritten.

Examples:
  schemastore create Pipeline '{"nodes": [], "links": []}'
  schemastore create Legacy "{'type': 'Feed', 'value': None}"
  cat pipeline.json | schemastore create Pipeline -`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(rootOpts, args[0], args[1], cmd)
		},
	}
	return cmd
}

func runCreate(opts *RootOptions, name, text string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if text == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return formatter.Fail("failed to read stdin", err)
		}
		text = string(data)
	}

	sess, err := opts.lockStore(commandContext(cmd))
	if err != nil {
		return formatter.Fail("failed to open store", err)
	}
	defer sess.Close(opts.Logger)

	if err := sess.store.Create(name, text); err != nil {
		return formatter.Fail("create failed", err)
	}
	if err := sess.store.Persist(); err != nil {
		return formatter.Fail("create failed", err)
	}

	return formatter.Result(RecordResult{Name: name, Action: "created"}, func(w io.Writer) {
		fmt.Fprintf(w, "Schema %q created.\n", name)
	})
}
