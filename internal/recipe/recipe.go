// Package recipe resolves how the MongoDB C++ driver is built for a
// platform: option validation, cmake definitions, dependencies and the
// packaged components.
package recipe

import (
	"fmt"
	"strings"

	"github.com/goplus/llar-mongocxx/formula"
	"github.com/goplus/llar-mongocxx/mod/module"
	"github.com/goplus/llar-mongocxx/mod/versions"
)

const (
	// ModulePath is the module this recipe packages.
	ModulePath = "mongodb/mongo-cxx-driver"

	// SourceURL is the release archive template; {version} is replaced.
	SourceURL = "https://github.com/mongodb/mongo-cxx-driver/archive/r{version}.tar.gz"

	// ProjectAnchor is the CMakeLists.txt line build patches hook onto.
	ProjectAnchor = "project(MONGO_CXX_DRIVER LANGUAGES CXX)"
)

// Component is one library of the driver.
type Component struct {
	Name         string // library and include namespace, e.g. "bsoncxx"
	StaticDefine string // define consumers need when linking statically
}

// Components lists the driver libraries in link order: mongocxx depends
// on bsoncxx, so it comes first for order-sensitive linkers.
var Components = []Component{
	{Name: "mongocxx", StaticDefine: "MONGOCXX_STATIC"},
	{Name: "bsoncxx", StaticDefine: "BSONCXX_STATIC"},
}

// Recipe is one release of the driver.
type Recipe struct {
	Version  string
	Digest   string           // expected source archive digest, may be empty
	Upstream []module.Version // always required, whatever the options
}

// New returns the recipe of release ver from catalog. An empty ver selects
// the latest release.
func New(catalog *versions.Versions, ver string) (*Recipe, error) {
	if ver == "" {
		latest, err := catalog.Latest()
		if err != nil {
			return nil, err
		}
		ver = latest
	}
	ver = strings.TrimPrefix(ver, "v")
	if err := module.CheckVersion(ver); err != nil {
		return nil, err
	}
	upstream, err := catalog.Requires(ver)
	if err != nil {
		return nil, err
	}
	return &Recipe{
		Version:  ver,
		Digest:   catalog.Digest(ver),
		Upstream: upstream,
	}, nil
}

// Module returns the module version this recipe builds.
func (r *Recipe) Module() module.Version {
	return module.Version{Path: ModulePath, Version: r.Version}
}

// ArchiveURL returns the source archive URL of the release.
func (r *Recipe) ArchiveURL() string {
	return strings.ReplaceAll(SourceURL, "{version}", r.Version)
}

// ArchiveRoot returns the top-level directory of the source archive.
func (r *Recipe) ArchiveRoot() string {
	return fmt.Sprintf("mongo-cxx-driver-r%s", r.Version)
}

// Require declares the dependencies of a build with options o: the
// upstream C driver first, then those of the polyfill.
func (r *Recipe) Require(o Options, deps *formula.ModuleDeps) {
	for _, dep := range r.Upstream {
		deps.Require(dep.Path, dep.Version)
	}
	for _, dep := range o.Polyfill.Dependencies() {
		deps.Require(dep.Path, dep.Version)
	}
}

// Requires returns the dependencies of a build with options o.
func (r *Recipe) Requires(o Options) []module.Version {
	var deps formula.ModuleDeps
	r.Require(o, &deps)
	return deps.Deps()
}

// Patch returns the replacement for ProjectAnchor p needs, or "" when
// the sources build unpatched. msvc needs extended aligned storage
// enabled for std::aligned_storage users in bsoncxx.
func Patch(p Platform) string {
	if p.Compiler != CompilerMSVC {
		return ""
	}
	return ProjectAnchor + "\nadd_definitions(-D_ENABLE_EXTENDED_ALIGNED_STORAGE)"
}
