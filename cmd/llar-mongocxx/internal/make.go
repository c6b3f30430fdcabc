package internal

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/containerd/errdefs"
	"github.com/spf13/cobra"

	"github.com/goplus/llar-mongocxx/internal/build"
	"github.com/goplus/llar-mongocxx/internal/recipe"
	"github.com/goplus/llar-mongocxx/internal/stage"
	"github.com/goplus/llar-mongocxx/mod/versions"
)

var (
	makeVerbose bool
	makeOutput  string
	makeForce   bool
	makeUse     []string
)

var makeCmd = &cobra.Command{
	Use:   "make [version]",
	Short: "Build the driver into the workspace",
	Long: `Make fetches, configures and builds a driver release and stages it into
the workspace. The version may be given as "3.4.0" or
"mongodb/mongo-cxx-driver@3.4.0"; it defaults to the latest release.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMake,
}

func init() {
	makeCmd.Flags().BoolVarP(&makeVerbose, "verbose", "v", false, "Print cmake output")
	makeCmd.Flags().StringVarP(&makeOutput, "output", "o", "", "Output path (directory or .zip file)")
	makeCmd.Flags().BoolVar(&makeForce, "force", false, "Rebuild even when the build is cached")
	makeCmd.Flags().StringArrayVar(&makeUse, "use", nil, "Install root of a dependency (repeatable)")
	rootCmd.AddCommand(makeCmd)
}

func runMake(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	r, err := loadRecipe(args)
	if err != nil {
		return err
	}
	plat, opts, err := resolve(cmd)
	if err != nil {
		return err
	}

	// Resolve paths to absolute before build
	if makeOutput != "" {
		if makeOutput, err = filepath.Abs(makeOutput); err != nil {
			return fmt.Errorf("failed to resolve output path: %w", err)
		}
	}
	use := make([]string, len(makeUse))
	for i, root := range makeUse {
		if use[i], err = filepath.Abs(root); err != nil {
			return fmt.Errorf("failed to resolve dependency root: %w", err)
		}
	}

	buildOpts := build.Options{Force: makeForce}
	if makeVerbose {
		buildOpts.Output = cmd.ErrOrStderr()
	}
	builder, err := build.NewBuilder(buildOpts)
	if err != nil {
		return fmt.Errorf("failed to create builder: %w", err)
	}

	result, err := builder.Build(ctx, build.Request{
		Recipe:   r,
		Platform: plat,
		Options:  opts,
		Use:      use,
	})
	if err != nil {
		return err
	}

	for _, werr := range result.Errs() {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", werr)
	}
	if md := result.Metadata(); md != "" {
		fmt.Fprintln(cmd.OutOrStdout(), md)
	}

	// Output build artifacts if -o specified
	if makeOutput != "" {
		if err := outputResult(result.OutputDir, makeOutput); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

// loadRecipe returns the recipe of the release named by the optional
// version argument.
func loadRecipe(args []string) (*recipe.Recipe, error) {
	var version string
	if len(args) > 0 {
		modPath, ver := parseModuleArg(args[0])
		switch {
		case ver != "":
			if modPath != recipe.ModulePath {
				return nil, fmt.Errorf("unknown module %s: %w", modPath, errdefs.ErrNotFound)
			}
			version = ver
		case modPath != recipe.ModulePath:
			version = modPath
		}
	}
	return recipe.New(versions.Default(), version)
}

// parseModuleArg parses a module argument in the form "owner/repo@version" or "owner/repo".
func parseModuleArg(arg string) (modPath, version string) {
	for i := len(arg) - 1; i >= 0; i-- {
		if arg[i] == '@' {
			return arg[:i], arg[i+1:]
		}
	}
	return arg, ""
}

// outputResult writes the build output to dest.
// If dest ends with ".zip", creates a zip archive; otherwise copies the directory.
func outputResult(srcDir, dest string) error {
	if strings.HasSuffix(dest, ".zip") {
		return zipDir(srcDir, dest)
	}
	return stage.CopyTree(srcDir, dest)
}

// zipDir creates a zip archive at dest from the contents of srcDir.
func zipDir(srcDir, dest string) error {
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()

	w := zip.NewWriter(f)
	defer w.Close()

	return filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		header.Method = zip.Deflate

		writer, err := w.CreateHeader(header)
		if err != nil {
			return err
		}
		if info.Mode()&os.ModeSymlink != 0 {
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			_, err = writer.Write([]byte(link))
			return err
		}
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		_, err = io.Copy(writer, file)
		return err
	})
}
