package internal

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/goplus/llar-mongocxx/mod/versions"
)

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List the known driver releases",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog := versions.Default()
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, ver := range catalog.Releases() {
			deps, err := catalog.Requires(ver)
			if err != nil {
				return err
			}
			fmt.Fprintf(tw, "%s\t", ver)
			for i, dep := range deps {
				if i > 0 {
					fmt.Fprint(tw, " ")
				}
				fmt.Fprint(tw, dep)
			}
			fmt.Fprintln(tw)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(versionsCmd)
}
