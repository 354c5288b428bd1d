package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/schemastore/internal/payload"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Long bool
}

// SchemaSummary describes one record in list output.
type SchemaSummary struct {
	Name string `json:"name"`
	Keys int    `json:"keys"`
	Hash string `json:"hash"`
}

// ListResult holds the list command output.
type ListResult struct {
	Store   string          `json:"store"`
	Schemas []SchemaSummary `json:"schemas"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List schema names in the store",
		Long: `List the names of all schemas in the primary store, sorted.

With --long, each name is followed by the number of top-level keys and a
short content hash, which is equal for records with equal payloads.

Examples:
  schemastore list
  schemastore list --long --store ./schemas.barfi`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().BoolVarP(&opts.Long, "long", "l", false, "show key count and content hash")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	sess, err := opts.openStore()
	if err != nil {
		return formatter.Fail("failed to load store", err)
	}
	st := sess.store

	result := ListResult{Store: st.Path(), Schemas: []SchemaSummary{}}
	for _, name := range st.List() {
		v, _ := st.Get(name)
		summary := SchemaSummary{Name: name, Hash: payload.ShortHash(v)}
		if m, ok := v.(payload.Map); ok {
			summary.Keys = len(m)
		}
		result.Schemas = append(result.Schemas, summary)
	}

	return formatter.Result(result, func(w io.Writer) {
		if len(result.Schemas) == 0 {
			fmt.Fprintln(w, "No schemas in store.")
			return
		}
		if !opts.Long {
			for _, s := range result.Schemas {
				fmt.Fprintln(w, s.Name)
			}
			return
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tKEYS\tHASH")
		for _, s := range result.Schemas {
			fmt.Fprintf(tw, "%s\t%d\t%s\n", s.Name, s.Keys, s.Hash)
		}
		tw.Flush()
	})
}
