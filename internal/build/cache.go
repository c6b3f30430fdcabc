package build

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/moby/sys/atomicwriter"

	"github.com/goplus/llar-mongocxx/mod/module"
)

// Workspace directory layout:
//
//	workspaceDir/
//	  downloads/                      # source archives
//	  src/<version>/source_subfolder/ # extracted sources
//	  <escaped>/                      # module-level dir (cacheDir)
//	    .cache.json                   # build cache: maps "version-matrix" to buildEntry
//	    build/<version>-<matrix>/     # cmake build tree
//	  <escaped>@<version>-<matrix>/   # package dir (installDir), '|' written as '+'
//	    include/
//	    lib/
//	    llar-package.json
const cacheFile = ".cache.json"

// buildEntry contains metadata about a single successful build. Use
// holds the dependency roots it was configured with; a build with other
// roots does not hit the entry.
type buildEntry struct {
	Metadata  string    `json:"metadata"`
	Use       []string  `json:"use,omitempty"`
	BuildTime time.Time `json:"build_time"`
}

// buildCache maps "version-matrixString" keys to their build entries.
type buildCache struct {
	Cache map[string]*buildEntry `json:"cache"`
}

func cacheKey(version, matrix string) string {
	return version + "-" + matrix
}

func (c *buildCache) get(version, matrix string) (*buildEntry, bool) {
	entry, ok := c.Cache[cacheKey(version, matrix)]
	return entry, ok
}

func (c *buildCache) set(version, matrix string, entry *buildEntry) {
	if c.Cache == nil {
		c.Cache = make(map[string]*buildEntry)
	}
	c.Cache[cacheKey(version, matrix)] = entry
}

// cacheDir returns the module-level directory for cache storage: workspaceDir/<escapedPath>.
func (b *Builder) cacheDir(modPath string) (string, error) {
	escaped, err := module.EscapePath(modPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(b.workspaceDir, escaped), nil
}

// installDir returns the package directory: workspaceDir/<escapedPath>@<version>-<matrix>.
func (b *Builder) installDir(mod module.Version, matrix string) (string, error) {
	escaped, err := module.EscapePath(mod.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(b.workspaceDir, fmt.Sprintf("%s@%s", escaped, dirKey(mod.Version, matrix))), nil
}

// dirKey is cacheKey made safe for file names: windows rejects '|'.
func dirKey(version, matrix string) string {
	return strings.ReplaceAll(cacheKey(version, matrix), "|", "+")
}

// loadCache reads the cache file for a module from the workspace directory.
// A missing file is an empty cache.
func (b *Builder) loadCache(modPath string) (*buildCache, error) {
	dir, err := b.cacheDir(modPath)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, cacheFile))
	if errors.Is(err, fs.ErrNotExist) {
		return &buildCache{}, nil
	}
	if err != nil {
		return nil, err
	}
	var cache buildCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", cacheFile, err)
	}
	return &cache, nil
}

// saveCache writes the cache file for a module to the workspace directory.
func (b *Builder) saveCache(modPath string, cache *buildCache) error {
	dir, err := b.cacheDir(modPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return err
	}
	return atomicwriter.WriteFile(filepath.Join(dir, cacheFile), data, 0o644)
}
