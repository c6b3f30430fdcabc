// Package pkginfo publishes how consumers compile and link against a
// staged driver package.
package pkginfo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/moby/sys/atomicwriter"

	"github.com/goplus/llar-mongocxx/internal/recipe"
	"github.com/goplus/llar-mongocxx/mod/module"
)

// FileName is the metadata file saved at the package root.
const FileName = "llar-package.json"

// PCName is the pkg-config module written under lib/pkgconfig.
const PCName = "libmongocxx"

// Info is the consumption metadata of a package. Directories are relative
// to the package root and use forward slashes.
type Info struct {
	Name        string           `json:"name"`
	Version     string           `json:"version"`
	Libs        []string         `json:"libs"`
	IncludeDirs []string         `json:"include_dirs"`
	LibDirs     []string         `json:"lib_dirs"`
	Defines     []string         `json:"defines,omitempty"`
	Requires    []module.Version `json:"requires,omitempty"`
}

// Publish returns the metadata of release version built with o.
func Publish(version string, o recipe.Options, requires []module.Version) *Info {
	info := &Info{
		Name:        recipe.ModulePath,
		Version:     version,
		IncludeDirs: []string{"include"},
		LibDirs:     []string{"lib"},
		Requires:    requires,
	}
	// Components are ordered dependent first, which is the link order.
	for _, c := range recipe.Components {
		info.Libs = append(info.Libs, c.Name)
	}
	for _, c := range []string{"bsoncxx", "mongocxx"} {
		info.IncludeDirs = append(info.IncludeDirs, path.Join("include", c, "v_noabi"))
	}
	if o.Polyfill == recipe.PolyfillMnmlstc {
		info.IncludeDirs = append(info.IncludeDirs, "include/bsoncxx/third_party/mnmlstc")
	}
	if !o.Shared {
		info.Defines = append(info.Defines, "BSONCXX_STATIC", "MONGOCXX_STATIC")
	}
	return info
}

// Cflags returns the compile flags for a package installed at prefix.
func (i *Info) Cflags(prefix string) []string {
	var flags []string
	for _, dir := range i.IncludeDirs {
		flags = append(flags, "-I"+filepath.Join(prefix, filepath.FromSlash(dir)))
	}
	for _, def := range i.Defines {
		flags = append(flags, "-D"+def)
	}
	return flags
}

// LinkFlags returns the link flags for a package installed at prefix.
func (i *Info) LinkFlags(prefix string) []string {
	var flags []string
	for _, dir := range i.LibDirs {
		flags = append(flags, "-L"+filepath.Join(prefix, filepath.FromSlash(dir)))
	}
	for _, lib := range i.Libs {
		flags = append(flags, "-l"+lib)
	}
	return flags
}

// Flags returns the compile and link flags as one pkg-config style line.
func (i *Info) Flags(prefix string) string {
	return strings.Join(append(i.Cflags(prefix), i.LinkFlags(prefix)...), " ")
}

var pcTemplate = template.Must(template.New("pc").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(`prefix={{.Prefix}}
libdir=${prefix}/lib
includedir=${prefix}/include

Name: {{.Name}}
Description: MongoDB C++ driver
Version: {{.Version}}
Libs:{{range .LibDirs}} -L${prefix}/{{.}}{{end}}{{range .Libs}} -l{{.}}{{end}}
Cflags:{{range .IncludeDirs}} -I${prefix}/{{.}}{{end}}{{range .Defines}} -D{{.}}{{end}}
`))

// WritePC writes lib/pkgconfig/libmongocxx.pc under the package root dir.
func (i *Info) WritePC(dir string) error {
	var buf bytes.Buffer
	err := pcTemplate.Execute(&buf, struct {
		*Info
		Prefix string
	}{i, filepath.ToSlash(dir)})
	if err != nil {
		return err
	}
	pcDir := filepath.Join(dir, "lib", "pkgconfig")
	if err := os.MkdirAll(pcDir, 0o755); err != nil {
		return err
	}
	return atomicwriter.WriteFile(filepath.Join(pcDir, PCName+".pc"), buf.Bytes(), 0o644)
}

// Save writes the metadata to FileName under the package root dir.
func (i *Info) Save(dir string) error {
	data, err := json.MarshalIndent(i, "", "  ")
	if err != nil {
		return err
	}
	return atomicwriter.WriteFile(filepath.Join(dir, FileName), data, 0o644)
}

// Load reads the metadata saved under the package root dir.
func Load(dir string) (*Info, error) {
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		return nil, err
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}
	return &info, nil
}
