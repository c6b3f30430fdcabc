// Package stage copies the headers and libraries of a driver build into
// the canonical package layout.
package stage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/containerd/log"
	"github.com/moby/patternmatcher"

	"github.com/goplus/llar-mongocxx/internal/recipe"
)

// MnmlstcSubdir is where the build tree keeps the headers of the bundled
// mnmlstc core library.
const MnmlstcSubdir = "src/bsoncxx/third_party/EP_mnmlstc_core-prefix/src/EP_mnmlstc_core/include/core"

// Layout is a package tree:
//
//	<root>/
//	  include/<c>/v_noabi/<c>/...             # component headers
//	  include/bsoncxx/third_party/mnmlstc/core # mnmlstc only
//	  lib/                                     # libraries, flattened
type Layout struct {
	Root string
}

// IncludeDir returns the header directory of component c.
func (l Layout) IncludeDir(c string) string {
	return filepath.Join(l.Root, "include", c, "v_noabi", c)
}

// MnmlstcDir returns the directory of the mnmlstc core headers.
func (l Layout) MnmlstcDir() string {
	return filepath.Join(l.Root, "include", "bsoncxx", "third_party", "mnmlstc", "core")
}

// LibDir returns the library directory.
func (l Layout) LibDir() string {
	return filepath.Join(l.Root, "lib")
}

// Report summarizes a staging run.
type Report struct {
	Headers   int
	Libraries int
	Renamed   []string // libraries renamed to their canonical name
}

// Stager stages one build.
type Stager struct {
	SourceDir  string // extracted driver sources
	BuildDir   string // cmake build tree
	Layout     Layout
	Components []recipe.Component
	Mnmlstc    bool // also stage the bundled mnmlstc headers
}

var headerPatterns = []string{"**/*.hpp", "**/*.h", "!test", "!third_party"}

func libraryPatterns(c string) []string {
	return []string{
		"**/lib" + c + "*.a",
		"**/lib" + c + "*.so*",
		"**/lib" + c + "*.dylib",
		"**/" + c + "*.lib",
		"**/" + c + "*.dll",
	}
}

// Stage copies headers and libraries into s.Layout. Subtrees missing from
// the source or build tree are skipped.
func (s *Stager) Stage(ctx context.Context) (*Report, error) {
	headers, err := patternmatcher.New(headerPatterns)
	if err != nil {
		return nil, err
	}
	report := &Report{}
	for _, c := range s.Components {
		dest := s.Layout.IncludeDir(c.Name)
		for _, root := range []string{s.SourceDir, s.BuildDir} {
			n, err := copyMatching(filepath.Join(root, "src", c.Name), dest, headers, false)
			if err != nil {
				return nil, fmt.Errorf("failed to stage %s headers: %w", c.Name, err)
			}
			report.Headers += n
		}

		libs, err := patternmatcher.New(libraryPatterns(c.Name))
		if err != nil {
			return nil, err
		}
		n, err := copyMatching(s.BuildDir, s.Layout.LibDir(), libs, true)
		if err != nil {
			return nil, fmt.Errorf("failed to stage %s libraries: %w", c.Name, err)
		}
		report.Libraries += n

		lib := "lib" + c.Name
		renamed, err := RenameOrSkip(
			filepath.Join(s.Layout.LibDir(), lib+"-static.a"),
			filepath.Join(s.Layout.LibDir(), lib+".a"),
		)
		if err != nil {
			return nil, err
		}
		if renamed {
			report.Renamed = append(report.Renamed, lib+".a")
		}
	}

	if s.Mnmlstc {
		all, err := patternmatcher.New([]string{"**/*"})
		if err != nil {
			return nil, err
		}
		n, err := copyMatching(filepath.Join(s.BuildDir, filepath.FromSlash(MnmlstcSubdir)), s.Layout.MnmlstcDir(), all, true)
		if err != nil {
			return nil, fmt.Errorf("failed to stage mnmlstc headers: %w", err)
		}
		report.Headers += n
	}

	log.G(ctx).WithFields(log.Fields{
		"headers":   report.Headers,
		"libraries": report.Libraries,
		"renamed":   report.Renamed,
	}).Debug("staged package")
	return report, nil
}

// RenameOrSkip renames from to to. A missing from is not an error: it
// reports false so the caller can tell whether anything happened.
func RenameOrSkip(from, to string) (bool, error) {
	if err := os.Rename(from, to); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// copyMatching copies the files under src matched by pm into dest and
// returns how many were copied. flatten drops the relative directory.
func copyMatching(src, dest string, pm *patternmatcher.PatternMatcher, flatten bool) (int, error) {
	if _, err := os.Stat(src); errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	n := 0
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		ok, err := pm.MatchesOrParentMatches(rel)
		if err != nil || !ok {
			return err
		}
		target := filepath.Join(dest, rel)
		if flatten {
			target = filepath.Join(dest, d.Name())
		}
		if err := copyFile(path, target); err != nil {
			return err
		}
		n++
		return nil
	})
	return n, err
}

// copyFile copies src to dest. Symlinks are recreated with the same target.
func copyFile(src, dest string) error {
	fi, err := os.Lstat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	if fi.Mode()&fs.ModeSymlink != 0 {
		link, err := os.Readlink(src)
		if err != nil {
			return err
		}
		os.Remove(dest)
		return os.Symlink(link, dest)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fi.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// CopyTree copies the package at src to dest, keeping symlinks.
func CopyTree(src, dest string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if d.IsDir() {
			return os.MkdirAll(filepath.Join(dest, rel), 0o755)
		}
		return copyFile(path, filepath.Join(dest, rel))
	})
}
