package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/schemastore/internal/payload"
	"github.com/roach88/schemastore/internal/store"
)

// ShowResult holds the show command output.
type ShowResult struct {
	Name    string        `json:"name"`
	Hash    string        `json:"hash"`
	Payload payload.Value `json:"payload"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Print a schema payload",
		Long: `Print the payload of one schema as indented JSON with sorted keys.

Example:
  schemastore show Pipeline`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runShow(opts *RootOptions, name string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	sess, err := opts.openStore()
	if err != nil {
		return formatter.Fail("failed to load store", err)
	}

	v, ok := sess.store.Get(name)
	if !ok {
		return formatter.Fail("show failed", &store.RecordError{Op: "show", Name: name, Err: store.ErrNotFound})
	}
	hash, err := payload.ContentHash(v)
	if err != nil {
		return formatter.Fail("show failed", err)
	}

	canonical, err := payload.MarshalCanonical(v)
	if err != nil {
		return formatter.Fail("show failed", err)
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, canonical, "", "  "); err != nil {
		return formatter.Fail("show failed", err)
	}

	return formatter.Result(ShowResult{Name: name, Hash: hash, Payload: v}, func(w io.Writer) {
		fmt.Fprintln(w, pretty.String())
	})
}
