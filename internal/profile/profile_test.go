package profile

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/containerd/errdefs"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"

	"github.com/goplus/llar-mongocxx/internal/recipe"
)

func writeProfile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	assert.NilError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "yaml",
			file: "linux.yaml",
			content: `settings:
  os: linux
  arch: arm64
  compiler: clang
  cppstd: "17"
  build_type: Debug
options:
  shared: true
  fPIC: false
  polyfill: std
`,
		},
		{
			name: "toml",
			file: "linux.toml",
			content: `[settings]
os = "linux"
arch = "arm64"
compiler = "clang"
cppstd = "17"
build_type = "Debug"

[options]
shared = true
fPIC = false
polyfill = "std"
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Load(writeProfile(t, tt.file, tt.content))
			assert.NilError(t, err)

			plat, opts, err := p.Resolve()
			assert.NilError(t, err)
			assert.Check(t, is.DeepEqual(plat, recipe.Platform{
				OS:        "linux",
				Arch:      "arm64",
				Compiler:  recipe.CompilerClang,
				CppStd:    "17",
				BuildType: "Debug",
			}))
			assert.Check(t, is.DeepEqual(opts, recipe.Options{Shared: true, FPIC: false, Polyfill: recipe.PolyfillStd}))
		})
	}
}

func TestLoadInvalid(t *testing.T) {
	_, err := Load(writeProfile(t, "bad.yml", "settings:\n  os: plan9\n"))
	assert.Check(t, errdefs.IsInvalidArgument(err))
	assert.ErrorContains(t, err, "settings.os=plan9")

	_, err = Load(writeProfile(t, "bad.toml", "[options]\npolyfill = \"stl\"\n"))
	assert.Check(t, errdefs.IsInvalidArgument(err))
	assert.ErrorContains(t, err, "options.polyfill=stl")

	_, err = Load(writeProfile(t, "broken.yaml", "settings: [\n"))
	assert.ErrorContains(t, err, "failed to parse profile")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Check(t, os.IsNotExist(err))
}

func TestResolveDefaults(t *testing.T) {
	plat, opts, err := (&Profile{}).Resolve()
	assert.NilError(t, err)
	assert.Check(t, is.Equal(plat.OS, runtime.GOOS))
	assert.Check(t, is.Equal(plat.Arch, runtime.GOARCH))
	assert.Check(t, is.Equal(plat.Compiler, hostCompiler(runtime.GOOS)))
	assert.Check(t, is.Equal(plat.BuildType, "Release"))
	assert.Check(t, !plat.CppStd.IsSet())
	assert.Check(t, is.DeepEqual(opts, recipe.DefaultOptions()))
}

func TestResolveWindowsCompiler(t *testing.T) {
	p := &Profile{Settings: Settings{OS: "windows"}}
	plat, _, err := p.Resolve()
	assert.NilError(t, err)
	assert.Check(t, is.Equal(plat.Compiler, recipe.CompilerMSVC))
}

func TestOverride(t *testing.T) {
	shared := true
	p := &Profile{
		Settings: Settings{OS: "linux", Compiler: "gcc", CppStd: "14"},
		Options:  Options{Polyfill: "boost"},
	}
	p.Override(Overrides{
		Compiler: "Visual Studio",
		OS:       "windows",
		Shared:   &shared,
	})
	plat, opts, err := p.Resolve()
	assert.NilError(t, err)
	assert.Check(t, is.Equal(plat.OS, "windows"))
	assert.Check(t, is.Equal(plat.Compiler, recipe.CompilerMSVC))
	assert.Check(t, is.Equal(plat.CppStd, recipe.CppStd("14")))
	assert.Check(t, opts.Shared)
	assert.Check(t, opts.FPIC)
	assert.Check(t, is.Equal(opts.Polyfill, recipe.PolyfillBoost))
	assert.Check(t, !opts.PIC(plat))
}

func TestResolveInvalid(t *testing.T) {
	tests := []struct {
		name string
		o    Overrides
		want string
	}{
		{"compiler", Overrides{Compiler: "tcc"}, "compiler=tcc"},
		{"cppstd", Overrides{CppStd: "c++23"}, "compiler.cppstd=23"},
		{"build type", Overrides{BuildType: "Fast"}, "settings.build_type=Fast"},
		{"polyfill", Overrides{Polyfill: "folly"}, "options.polyfill=folly"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Profile{}
			p.Override(tt.o)
			_, _, err := p.Resolve()
			assert.Check(t, errdefs.IsInvalidArgument(err))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
