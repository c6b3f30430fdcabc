package internal

import (
	"github.com/spf13/cobra"

	"github.com/goplus/llar-mongocxx/internal/build"
	"github.com/goplus/llar-mongocxx/internal/recipe"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [version]",
	Short: "Remove a built package and its cache entry",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	r, err := loadRecipe(args)
	if err != nil {
		return err
	}
	plat, opts, err := resolve(cmd)
	if err != nil {
		return err
	}
	builder, err := build.NewBuilder(build.Options{})
	if err != nil {
		return err
	}
	return builder.Clean(cmd.Context(), r.Module(), recipe.Variant(plat, opts).String())
}
