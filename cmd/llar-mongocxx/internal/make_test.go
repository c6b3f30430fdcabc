package internal

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/containerd/errdefs"
	"github.com/spf13/pflag"

	"github.com/goplus/llar-mongocxx/internal/pkginfo"
)

// execute runs the root command with args after resetting every flag.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			sv.Replace(nil)
		} else {
			f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	rootCmd.PersistentFlags().VisitAll(reset)
	for _, c := range rootCmd.Commands() {
		c.Flags().VisitAll(reset)
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestParseModuleArg(t *testing.T) {
	tests := []struct {
		arg         string
		wantModPath string
		wantVersion string
	}{
		{"mongodb/mongo-cxx-driver@3.4.0", "mongodb/mongo-cxx-driver", "3.4.0"},
		{"mongodb/mongo-cxx-driver@v3.4.0", "mongodb/mongo-cxx-driver", "v3.4.0"},
		{"mongodb/mongo-cxx-driver", "mongodb/mongo-cxx-driver", ""},
		{"3.4.0", "3.4.0", ""},
		{"multiple@at@signs", "multiple@at", "signs"},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			modPath, version := parseModuleArg(tt.arg)
			if modPath != tt.wantModPath {
				t.Errorf("parseModuleArg(%q) modPath = %q, want %q", tt.arg, modPath, tt.wantModPath)
			}
			if version != tt.wantVersion {
				t.Errorf("parseModuleArg(%q) version = %q, want %q", tt.arg, version, tt.wantVersion)
			}
		})
	}
}

func TestLoadRecipe(t *testing.T) {
	tests := []struct {
		args        []string
		wantVersion string
	}{
		{[]string{"3.4.0"}, "3.4.0"},
		{[]string{"v3.4.0"}, "3.4.0"},
		{[]string{"mongodb/mongo-cxx-driver@3.4.0"}, "3.4.0"},
	}
	for _, tt := range tests {
		r, err := loadRecipe(tt.args)
		if err != nil {
			t.Fatalf("loadRecipe(%v): %v", tt.args, err)
		}
		if r.Version != tt.wantVersion {
			t.Errorf("loadRecipe(%v) = %s, want %s", tt.args, r.Version, tt.wantVersion)
		}
	}

	latest, err := loadRecipe(nil)
	if err != nil {
		t.Fatalf("loadRecipe(nil): %v", err)
	}
	same, err := loadRecipe([]string{"mongodb/mongo-cxx-driver"})
	if err != nil {
		t.Fatalf("loadRecipe(module): %v", err)
	}
	if latest.Version != same.Version {
		t.Errorf("latest = %s, module without version = %s", latest.Version, same.Version)
	}

	if _, err := loadRecipe([]string{"mongodb/mongo-c-driver@1.16.1"}); !errdefs.IsNotFound(err) {
		t.Errorf("other module: err = %v, want not found", err)
	}
	if _, err := loadRecipe([]string{"9.9.9"}); !errdefs.IsNotFound(err) {
		t.Errorf("unknown release: err = %v, want not found", err)
	}
}

func TestOutputResult(t *testing.T) {
	src := t.TempDir()
	if err := os.MkdirAll(filepath.Join(src, "lib"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "lib", "libbsoncxx.a"), []byte("ar"), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("dir", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "pkg")
		if err := outputResult(src, dest); err != nil {
			t.Fatalf("outputResult: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dest, "lib", "libbsoncxx.a")); err != nil {
			t.Errorf("missing copied library: %v", err)
		}
	})

	t.Run("zip", func(t *testing.T) {
		dest := filepath.Join(t.TempDir(), "pkg.zip")
		if err := outputResult(src, dest); err != nil {
			t.Fatalf("outputResult: %v", err)
		}
		zr, err := zip.OpenReader(dest)
		if err != nil {
			t.Fatalf("open zip: %v", err)
		}
		defer zr.Close()
		if len(zr.File) != 1 || zr.File[0].Name != "lib/libbsoncxx.a" {
			var names []string
			for _, f := range zr.File {
				names = append(names, f.Name)
			}
			t.Errorf("zip entries = %v", names)
		}
	})
}

func TestValidateCommand(t *testing.T) {
	out, err := execute(t, "validate", "3.4.0", "--os", "linux", "--arch", "amd64", "--compiler", "gcc", "--cppstd", "17", "--polyfill", "std")
	if err != nil {
		t.Fatalf("validate: %v\n%s", err, out)
	}
	for _, want := range []string{
		"mongodb/mongo-cxx-driver@3.4.0",
		"BSONCXX_POLY_USE_STD=ON",
		"BSONCXX_POLY_USE_BOOST=OFF",
		"mongodb/mongo-c-driver@1.16.1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "boostorg/") {
		t.Errorf("std polyfill requires boost:\n%s", out)
	}
}

func TestValidateCommandInvalid(t *testing.T) {
	_, err := execute(t, "validate", "--os", "windows", "--compiler", "Visual Studio", "--polyfill", "mnmlstc")
	if !errdefs.IsInvalidArgument(err) {
		t.Fatalf("err = %v, want invalid argument", err)
	}
	if !strings.Contains(err.Error(), "for msvc, use the boost polyfill") {
		t.Errorf("err = %v", err)
	}
}

func TestValidateCommandProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.toml")
	content := "[settings]\nos = \"linux\"\ncompiler = \"clang\"\ncppstd = \"14\"\n\n[options]\npolyfill = \"std\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "validate", "--profile", path); !errdefs.IsInvalidArgument(err) {
		t.Fatalf("err = %v, want invalid argument", err)
	}
	// Flags override the profile.
	if out, err := execute(t, "validate", "--profile", path, "--cppstd", "17"); err != nil {
		t.Fatalf("validate: %v\n%s", err, out)
	}
}

func TestInfoCommand(t *testing.T) {
	out, err := execute(t, "info", "3.4.0", "--os", "linux", "--compiler", "gcc", "--polyfill", "mnmlstc", "--shared")
	if err != nil {
		t.Fatalf("info: %v\n%s", err, out)
	}
	var info pkginfo.Info
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if strings.Join(info.Libs, " ") != "mongocxx bsoncxx" {
		t.Errorf("libs = %v", info.Libs)
	}
	if len(info.Defines) != 0 {
		t.Errorf("shared build defines %v", info.Defines)
	}
	if info.IncludeDirs[len(info.IncludeDirs)-1] != "include/bsoncxx/third_party/mnmlstc" {
		t.Errorf("include dirs = %v", info.IncludeDirs)
	}

	out, err = execute(t, "info", "--os", "linux", "--compiler", "gcc", "--prefix", "/opt/mongocxx")
	if err != nil {
		t.Fatalf("info --prefix: %v", err)
	}
	if !strings.HasSuffix(strings.TrimSpace(out), "-lmongocxx -lbsoncxx") {
		t.Errorf("flags = %q", out)
	}
}

func TestMatrixCommand(t *testing.T) {
	out, err := execute(t, "matrix", "--os", "windows", "--arch", "amd64", "--compiler", "msvc")
	if err != nil {
		t.Fatalf("matrix: %v\n%s", err, out)
	}
	// msvc only accepts boost and pins fPIC: 2 shared out of 8.
	if !strings.Contains(out, "2 of 8 combinations valid") {
		t.Errorf("output:\n%s", out)
	}
	if !strings.Contains(out, "for msvc, use the boost polyfill") {
		t.Errorf("output lacks the msvc reason:\n%s", out)
	}

	out, err = execute(t, "matrix", "--os", "linux", "--compiler", "gcc", "--all-cppstd")
	if err != nil {
		t.Fatalf("matrix --all-cppstd: %v", err)
	}
	// 10 standards x 16 options; 98 and gnu98 fail, std needs 17 or later.
	if !strings.Contains(out, "of 160 combinations valid") {
		t.Errorf("output:\n%s", out)
	}
}

func TestVersionsCommand(t *testing.T) {
	out, err := execute(t, "versions")
	if err != nil {
		t.Fatalf("versions: %v", err)
	}
	if !strings.Contains(out, "mongodb/mongo-c-driver@1.16.1") {
		t.Errorf("output:\n%s", out)
	}
}
