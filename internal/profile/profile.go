// Package profile loads build profiles: the settings and options of a
// packaging run, read from a YAML or TOML file and overridden by flags.
package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/goplus/llar-mongocxx/internal/recipe"
)

// Settings describe the target platform.
type Settings struct {
	OS        string `yaml:"os" toml:"os" validate:"omitempty,oneof=linux darwin windows freebsd netbsd openbsd android"`
	Arch      string `yaml:"arch" toml:"arch" validate:"omitempty,oneof=amd64 arm64 386 arm riscv64 ppc64le s390x loong64 mips64le"`
	Compiler  string `yaml:"compiler" toml:"compiler" validate:"omitempty,max=32"`
	CppStd    string `yaml:"cppstd" toml:"cppstd" validate:"omitempty,max=8"`
	BuildType string `yaml:"build_type" toml:"build_type" validate:"omitempty,oneof=Debug Release RelWithDebInfo MinSizeRel"`
}

// Options are the package options. Nil values take the recipe defaults.
type Options struct {
	Shared   *bool  `yaml:"shared" toml:"shared"`
	FPIC     *bool  `yaml:"fPIC" toml:"fPIC"`
	Polyfill string `yaml:"polyfill" toml:"polyfill" validate:"omitempty,oneof=std boost mnmlstc experimental"`
}

// Profile is a build profile file:
//
//	settings:
//	  os: linux
//	  compiler: gcc
//	  cppstd: "17"
//	options:
//	  shared: false
//	  polyfill: std
type Profile struct {
	Settings Settings `yaml:"settings" toml:"settings"`
	Options  Options  `yaml:"options" toml:"options"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Load reads the profile at path. Files ending in .toml are TOML,
// anything else YAML.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p Profile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, &p)
	default:
		err = yaml.Unmarshal(data, &p)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Default returns the profile of the host.
func Default() *Profile {
	return &Profile{
		Settings: Settings{
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			Compiler:  string(hostCompiler(runtime.GOOS)),
			BuildType: "Release",
		},
	}
}

func hostCompiler(goos string) recipe.Compiler {
	switch goos {
	case "windows":
		return recipe.CompilerMSVC
	case "darwin":
		return recipe.CompilerAppleClang
	}
	return recipe.CompilerGCC
}

// Validate checks the raw field values. A failure is a
// *recipe.ConfigurationError naming the field, e.g. "settings.os".
func (p *Profile) Validate() error {
	err := validate.Struct(p)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	_, setting, _ := strings.Cut(fe.Namespace(), ".")
	return &recipe.ConfigurationError{
		Setting: setting,
		Value:   fmt.Sprint(fe.Value()),
		Reason:  fmt.Sprintf("failed the %q check", fe.Tag()),
	}
}

// Overrides are values given on the command line. Empty strings and nil
// pointers leave the profile unchanged.
type Overrides struct {
	OS, Arch, Compiler, CppStd, BuildType string

	Shared, FPIC *bool
	Polyfill     string
}

// Override applies o on top of p.
func (p *Profile) Override(o Overrides) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&p.Settings.OS, o.OS)
	set(&p.Settings.Arch, o.Arch)
	set(&p.Settings.Compiler, o.Compiler)
	set(&p.Settings.CppStd, o.CppStd)
	set(&p.Settings.BuildType, o.BuildType)
	set(&p.Options.Polyfill, o.Polyfill)
	if o.Shared != nil {
		p.Options.Shared = o.Shared
	}
	if o.FPIC != nil {
		p.Options.FPIC = o.FPIC
	}
}

// Resolve returns the platform and options p describes. Unset settings
// take the host values and unset options the recipe defaults.
func (p *Profile) Resolve() (recipe.Platform, recipe.Options, error) {
	if err := p.Validate(); err != nil {
		return recipe.Platform{}, recipe.Options{}, err
	}
	host := Default().Settings
	or := func(v, def string) string {
		if v == "" {
			return def
		}
		return v
	}

	plat := recipe.Platform{
		OS:        or(p.Settings.OS, host.OS),
		Arch:      or(p.Settings.Arch, host.Arch),
		BuildType: or(p.Settings.BuildType, host.BuildType),
	}
	compiler := p.Settings.Compiler
	if compiler == "" {
		compiler = string(hostCompiler(plat.OS))
	}
	var err error
	if plat.Compiler, err = recipe.ParseCompiler(compiler); err != nil {
		return recipe.Platform{}, recipe.Options{}, err
	}
	if plat.CppStd, err = recipe.ParseCppStd(p.Settings.CppStd); err != nil {
		return recipe.Platform{}, recipe.Options{}, err
	}

	opts := recipe.DefaultOptions()
	if p.Options.Shared != nil {
		opts.Shared = *p.Options.Shared
	}
	if p.Options.FPIC != nil {
		opts.FPIC = *p.Options.FPIC
	}
	if p.Options.Polyfill != "" {
		if opts.Polyfill, err = recipe.ParsePolyfill(p.Options.Polyfill); err != nil {
			return recipe.Platform{}, recipe.Options{}, err
		}
	}
	return plat, opts, nil
}
