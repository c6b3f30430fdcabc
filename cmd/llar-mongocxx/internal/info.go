package internal

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goplus/llar-mongocxx/internal/pkginfo"
	"github.com/goplus/llar-mongocxx/internal/recipe"
)

var infoPrefix string

var infoCmd = &cobra.Command{
	Use:   "info [version]",
	Short: "Print consumption metadata without building",
	Long: `Info prints the libraries, include directories and defines a package
built with the selected options publishes. With --prefix it prints the
compile and link flags for a package installed there.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInfo,
}

func init() {
	infoCmd.Flags().StringVar(&infoPrefix, "prefix", "", "Package root to render flags for")
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
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
	info := pkginfo.Publish(r.Version, opts, r.Requires(opts))
	if infoPrefix != "" {
		fmt.Fprintln(cmd.OutOrStdout(), info.Flags(infoPrefix))
		return nil
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(info)
}
