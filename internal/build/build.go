// Package build runs a packaging build of the driver: fetch, patch,
// configure, build, stage and publish, with a workspace build cache.
package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"time"

	"github.com/containerd/log"
	"github.com/sirupsen/logrus"

	"github.com/goplus/llar-mongocxx/formula"
	"github.com/goplus/llar-mongocxx/internal/env"
	"github.com/goplus/llar-mongocxx/internal/fetch"
	"github.com/goplus/llar-mongocxx/internal/pkginfo"
	"github.com/goplus/llar-mongocxx/internal/recipe"
	"github.com/goplus/llar-mongocxx/internal/stage"
	"github.com/goplus/llar-mongocxx/mod/module"
	"github.com/goplus/llar-mongocxx/x/cmake"
)

// buildSystem is the part of cmake.CMake a build drives.
type buildSystem interface {
	BuildType(name string)
	DefineBool(key string, value bool)
	Use(root string)
	SetOutput(stdout, stderr io.Writer)
	Configure(ctx context.Context, args ...string) error
	Build(ctx context.Context, args ...string) error
}

type sourceFetcher interface {
	Fetch(ctx context.Context, src fetch.Source, destDir string) error
}

// Options configures a Builder.
type Options struct {
	// WorkspaceDir is the workspace root. Defaults to env.WorkDir().
	WorkspaceDir string

	// Force rebuilds even when the build cache has an entry.
	Force bool

	// Output receives cmake output. Defaults to the debug log.
	Output io.Writer

	fetcher        sourceFetcher
	newBuildSystem func(sourceDir, buildDir string) buildSystem
}

// Request is one packaging build.
type Request struct {
	Recipe   *recipe.Recipe
	Platform recipe.Platform
	Options  recipe.Options
	Use      []string // install roots of dependencies
}

// Result is the outcome of a build.
type Result struct {
	Module    module.Version
	Matrix    string
	OutputDir string // package root
	Info      *pkginfo.Info
	Report    *stage.Report // nil for cached builds
	Cached    bool

	formula.BuildResult
}

// Builder builds packages into a workspace.
type Builder struct {
	workspaceDir   string
	force          bool
	output         io.Writer
	fetcher        sourceFetcher
	newBuildSystem func(sourceDir, buildDir string) buildSystem
}

// NewBuilder returns a Builder for opts.
func NewBuilder(opts Options) (*Builder, error) {
	ws := opts.WorkspaceDir
	if ws == "" {
		var err error
		if ws, err = env.WorkDir(); err != nil {
			return nil, fmt.Errorf("failed to get workspace dir: %w", err)
		}
	}
	b := &Builder{
		workspaceDir:   ws,
		force:          opts.Force,
		output:         opts.Output,
		fetcher:        opts.fetcher,
		newBuildSystem: opts.newBuildSystem,
	}
	if b.fetcher == nil {
		b.fetcher = fetch.New(env.DownloadDir(ws))
	}
	if b.newBuildSystem == nil {
		b.newBuildSystem = func(sourceDir, buildDir string) buildSystem {
			return cmake.New(sourceDir, buildDir)
		}
	}
	return b, nil
}

// WorkspaceDir returns the workspace root.
func (b *Builder) WorkspaceDir() string {
	return b.workspaceDir
}

// Build builds req, or returns the cached package when one exists.
func (b *Builder) Build(ctx context.Context, req Request) (*Result, error) {
	r, p, o := req.Recipe, req.Platform, req.Options
	if err := recipe.Validate(p, o); err != nil {
		return nil, err
	}

	mod := r.Module()
	variant := recipe.Variant(p, o).Matrix()
	matrix := variant.String()
	ctx = log.WithLogger(ctx, log.G(ctx).WithFields(log.Fields{
		"module":   mod.String(),
		"matrix":   matrix,
		"polyfill": o.Polyfill.String(),
	}))

	installDir, err := b.installDir(mod, matrix)
	if err != nil {
		return nil, err
	}
	cacheDir, err := b.cacheDir(mod.Path)
	if err != nil {
		return nil, err
	}

	unlock, err := lockPath(filepath.Join(cacheDir, dirKey(mod.Version, matrix)+".lock"))
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Checked under the lock: another process may have built it.
	cache, err := b.loadCache(mod.Path)
	if err != nil {
		return nil, err
	}
	if entry, ok := cache.get(mod.Version, matrix); ok && !b.force {
		if !slices.Equal(entry.Use, req.Use) {
			log.G(ctx).WithField("use", req.Use).Debug("dependency roots changed, rebuilding")
		} else if info, err := pkginfo.Load(installDir); err == nil {
			log.G(ctx).WithField("dir", installDir).Debug("build cache hit")
			res := &Result{Module: mod, Matrix: matrix, OutputDir: installDir, Info: info, Cached: true}
			res.SetMetadata(entry.Metadata)
			return res, nil
		}
	}

	sourceDir, err := b.prepareSource(ctx, r, p)
	if err != nil {
		return nil, err
	}

	buildDir := filepath.Join(cacheDir, "build", dirKey(mod.Version, matrix))
	if b.force {
		if err := os.RemoveAll(buildDir); err != nil {
			return nil, err
		}
	}
	if err := b.compile(ctx, req, sourceDir, buildDir); err != nil {
		return nil, fmt.Errorf("failed to build %s: %w", mod, err)
	}

	if err := os.RemoveAll(installDir); err != nil {
		return nil, err
	}
	stager := &stage.Stager{
		SourceDir:  sourceDir,
		BuildDir:   buildDir,
		Layout:     stage.Layout{Root: installDir},
		Components: recipe.Components,
		Mnmlstc:    o.Polyfill == recipe.PolyfillMnmlstc,
	}
	report, err := stager.Stage(ctx)
	if err != nil {
		return nil, err
	}
	if report.Libraries == 0 {
		return nil, fmt.Errorf("failed to build %s: no libraries found in %s", mod, buildDir)
	}

	info := pkginfo.Publish(mod.Version, o, r.Requires(o))
	if err := info.Save(installDir); err != nil {
		return nil, fmt.Errorf("failed to save package info: %w", err)
	}
	if err := info.WritePC(installDir); err != nil {
		return nil, fmt.Errorf("failed to write pkg-config file: %w", err)
	}

	res := &Result{Module: mod, Matrix: matrix, OutputDir: installDir, Info: info, Report: report}
	res.SetMetadata(info.Flags(installDir))
	for _, root := range req.Use {
		if _, err := os.Stat(root); err != nil {
			res.AddErr(fmt.Errorf("dependency root %s: %w", root, err))
		}
	}
	if report.Headers == 0 {
		res.AddErr(fmt.Errorf("no headers staged from %s", sourceDir))
	}
	for _, err := range res.Errs() {
		log.G(ctx).WithError(err).Warn("build warning")
	}

	cache.set(mod.Version, matrix, &buildEntry{
		Metadata:  res.Metadata(),
		Use:       slices.Clone(req.Use),
		BuildTime: time.Now(),
	})
	if err := b.saveCache(mod.Path, cache); err != nil {
		return nil, err
	}
	log.G(ctx).WithField("dir", installDir).Info("package built")
	return res, nil
}

// prepareSource fetches the sources of r and applies the patch p needs.
// Patched sources are kept apart from pristine ones.
func (b *Builder) prepareSource(ctx context.Context, r *recipe.Recipe, p recipe.Platform) (string, error) {
	patch := recipe.Patch(p)
	key := r.Version
	if patch != "" {
		key += "-" + string(p.Compiler)
	}
	sourceDir := env.SourceDir(b.workspaceDir, key)

	src := fetch.Source{URL: r.ArchiveURL(), Root: r.ArchiveRoot(), Digest: r.Digest}
	if err := b.fetcher.Fetch(ctx, src, sourceDir); err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", src.URL, err)
	}
	proj := &formula.Project{DirFS: os.DirFS(sourceDir)}
	if !proj.Exists("CMakeLists.txt") {
		return "", fmt.Errorf("no CMakeLists.txt in %s", sourceDir)
	}
	if patch != "" {
		if err := cmake.PatchFile(filepath.Join(sourceDir, "CMakeLists.txt"), recipe.ProjectAnchor, patch); err != nil {
			return "", err
		}
		log.G(ctx).WithField("dir", sourceDir).Debug("patched CMakeLists.txt")
	}
	return sourceDir, nil
}

// compile configures and builds req with a single build system instance.
func (b *Builder) compile(ctx context.Context, req Request, sourceDir, buildDir string) error {
	p, o := req.Platform, req.Options
	bs := b.newBuildSystem(sourceDir, buildDir)

	out := b.output
	if out == nil {
		w := log.G(ctx).WriterLevel(logrus.DebugLevel)
		defer w.Close()
		out = w
	}
	bs.SetOutput(out, out)

	if p.BuildType != "" {
		bs.BuildType(p.BuildType)
	}
	for _, def := range cmakeDefines(p, o) {
		bs.DefineBool(def.key, def.value)
	}
	for _, root := range req.Use {
		bs.Use(root)
	}

	log.G(ctx).WithFields(log.Fields{
		"source": sourceDir,
		"build":  buildDir,
	}).Info("configuring")
	if err := bs.Configure(ctx); err != nil {
		return err
	}
	log.G(ctx).Info("building")
	return bs.Build(ctx)
}

type define struct {
	key   string
	value bool
}

// cmakeDefines returns the boolean cache entries of a build, sorted by key.
func cmakeDefines(p recipe.Platform, o recipe.Options) []define {
	flags := o.Polyfill.Definitions().CMakeFlags()
	flags["BUILD_SHARED_LIBS"] = o.Shared
	flags["ENABLE_TESTS"] = false
	if o.PIC(p) {
		flags["CMAKE_POSITION_INDEPENDENT_CODE"] = true
	}
	defs := make([]define, 0, len(flags))
	for k, v := range flags {
		defs = append(defs, define{k, v})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].key < defs[j].key })
	return defs
}

// Clean removes the package and build tree of a variant along with its
// cache entry.
func (b *Builder) Clean(ctx context.Context, mod module.Version, matrix string) error {
	cacheDir, err := b.cacheDir(mod.Path)
	if err != nil {
		return err
	}
	installDir, err := b.installDir(mod, matrix)
	if err != nil {
		return err
	}
	unlock, err := lockPath(filepath.Join(cacheDir, dirKey(mod.Version, matrix)+".lock"))
	if err != nil {
		return err
	}
	defer unlock()

	for _, dir := range []string{installDir, filepath.Join(cacheDir, "build", dirKey(mod.Version, matrix))} {
		if err := os.RemoveAll(dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	cache, err := b.loadCache(mod.Path)
	if err != nil {
		return err
	}
	if _, ok := cache.get(mod.Version, matrix); !ok {
		return nil
	}
	delete(cache.Cache, cacheKey(mod.Version, matrix))
	log.G(ctx).WithField("module", mod.String()).Debug("removed cache entry")
	return b.saveCache(mod.Path, cache)
}
