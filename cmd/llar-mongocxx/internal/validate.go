package internal

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/goplus/llar-mongocxx/internal/recipe"
)

var validateCmd = &cobra.Command{
	Use:   "validate [version]",
	Short: "Check a configuration without building",
	Long: `Validate checks the settings and options against the driver's
requirements and prints the cmake definitions and dependencies they select.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	r, err := loadRecipe(args)
	if err != nil {
		return err
	}
	plat, opts, err := resolve(cmd)
	if err != nil {
		return err
	}
	if err := recipe.Validate(plat, opts); err != nil {
		return err
	}
	printConfiguration(cmd.OutOrStdout(), r, plat, opts)
	return nil
}

func printConfiguration(w io.Writer, r *recipe.Recipe, plat recipe.Platform, opts recipe.Options) {
	fmt.Fprintf(w, "%s\n", r.Module())
	fmt.Fprintf(w, "variant: %s\n", recipe.Variant(plat, opts))
	fmt.Fprintln(w, "definitions:")
	flags := opts.Polyfill.Definitions().CMakeFlags()
	for _, k := range slices.Sorted(maps.Keys(flags)) {
		v := "OFF"
		if flags[k] {
			v = "ON"
		}
		fmt.Fprintf(w, "  %s=%s\n", k, v)
	}
	fmt.Fprintln(w, "requires:")
	for _, dep := range r.Requires(opts) {
		fmt.Fprintf(w, "  %s\n", dep)
	}
}
