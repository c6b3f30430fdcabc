package internal

import (
	"github.com/spf13/cobra"

	"github.com/goplus/llar-mongocxx/internal/profile"
	"github.com/goplus/llar-mongocxx/internal/recipe"
)

var (
	profilePath string
	overrides   profile.Overrides
	sharedFlag  bool
	fpicFlag    bool
)

func addProfileFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&profilePath, "profile", "", "Profile file (.yaml, .yml or .toml)")
	f.StringVar(&overrides.OS, "os", "", "Target OS (default: host)")
	f.StringVar(&overrides.Arch, "arch", "", "Target architecture (default: host)")
	f.StringVar(&overrides.Compiler, "compiler", "", "Compiler: gcc, clang, apple-clang, msvc or intel")
	f.StringVar(&overrides.CppStd, "cppstd", "", "C++ standard, e.g. 17 or gnu14 (default: compiler default)")
	f.StringVar(&overrides.BuildType, "build-type", "", "CMake build type (default: Release)")
	f.BoolVar(&sharedFlag, "shared", false, "Build shared libraries")
	f.BoolVar(&fpicFlag, "fpic", true, "Build position independent code")
	f.StringVar(&overrides.Polyfill, "polyfill", "", "C++17 polyfill: std, boost, mnmlstc or experimental")
}

// loadProfile returns the profile of the run: the --profile file, or the
// host profile, with flags applied on top.
func loadProfile(cmd *cobra.Command) (*profile.Profile, error) {
	p := profile.Default()
	if profilePath != "" {
		var err error
		if p, err = profile.Load(profilePath); err != nil {
			return nil, err
		}
	}
	o := overrides
	if cmd.Flags().Changed("shared") {
		o.Shared = &sharedFlag
	}
	if cmd.Flags().Changed("fpic") {
		o.FPIC = &fpicFlag
	}
	p.Override(o)
	return p, nil
}

// resolve returns the platform and options selected by the profile and flags.
func resolve(cmd *cobra.Command) (recipe.Platform, recipe.Options, error) {
	p, err := loadProfile(cmd)
	if err != nil {
		return recipe.Platform{}, recipe.Options{}, err
	}
	return p.Resolve()
}
