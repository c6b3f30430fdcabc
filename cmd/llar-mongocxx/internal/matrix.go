package internal

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/goplus/llar-mongocxx/internal/recipe"
)

var matrixAllStds bool

var matrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "List option combinations and whether they are valid",
	Args:  cobra.NoArgs,
	RunE:  runMatrix,
}

func init() {
	matrixCmd.Flags().BoolVar(&matrixAllStds, "all-cppstd", false, "Span every C++ standard instead of the selected one")
	rootCmd.AddCommand(matrixCmd)
}

func runMatrix(cmd *cobra.Command, args []string) error {
	plat, _, err := resolve(cmd)
	if err != nil {
		return err
	}
	var stds []recipe.CppStd
	if matrixAllStds {
		stds = recipe.CppStds()
	}
	m := recipe.Matrix(plat, stds...)

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	combos := m.Combinations()
	valid := 0
	for i, v := range m.Variants() {
		p, o, err := recipe.FromVariant(v)
		if err != nil {
			return err
		}
		status := "ok"
		if err := recipe.Validate(p, o); err != nil {
			status = err.Error()
		} else {
			valid++
		}
		fmt.Fprintf(tw, "%s\t%s\n", combos[i], status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d of %d combinations valid\n", valid, len(combos))
	return nil
}
