package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"asamanthinks/internal/domain"
)

func newCategoriesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the seven states",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			if !opts.pretty(w) {
				return printJSON(w, domain.Categories())
			}
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tNAME\tNOTE\tCOLOR\tDESCRIPTION")
			for _, c := range domain.Categories() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.Key, c.Name, c.Note, c.Color, c.Description)
			}
			return tw.Flush()
		},
	}
}
