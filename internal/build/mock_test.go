package build

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/goplus/llar-mongocxx/internal/fetch"
	"github.com/goplus/llar-mongocxx/internal/recipe"
)

// mockFetcher writes a minimal driver source tree instead of downloading.
type mockFetcher struct {
	calls []fetch.Source
}

func (m *mockFetcher) Fetch(ctx context.Context, src fetch.Source, destDir string) error {
	m.calls = append(m.calls, src)
	if entries, err := os.ReadDir(destDir); err == nil && len(entries) > 0 {
		return nil
	}
	return writeTree(destDir, map[string]string{
		"CMakeLists.txt":              "cmake_minimum_required(VERSION 3.2)\n" + recipe.ProjectAnchor + "\n",
		"src/bsoncxx/json.hpp":        "#pragma once\n",
		"src/mongocxx/client.hpp":     "#pragma once\n",
		"src/mongocxx/test/mock.hpp":  "#pragma once\n",
		"src/bsoncxx/types/value.hpp": "#pragma once\n",
	})
}

// mockCMake records how it was driven and produces libraries on Build.
type mockCMake struct {
	sourceDir, buildDir string

	buildType string
	defines   map[string]bool
	uses      []string
	steps     []string
	shared    bool
	failOn    string
}

func (m *mockCMake) BuildType(name string) { m.buildType = name }

func (m *mockCMake) DefineBool(key string, value bool) {
	m.defines[key] = value
	if key == "BUILD_SHARED_LIBS" {
		m.shared = value
	}
}

func (m *mockCMake) Use(root string) { m.uses = append(m.uses, root) }

func (m *mockCMake) SetOutput(stdout, stderr io.Writer) {}

func (m *mockCMake) Configure(ctx context.Context, args ...string) error {
	m.steps = append(m.steps, "configure")
	if m.failOn == "configure" {
		return errConfigure
	}
	return writeTree(m.buildDir, map[string]string{
		"src/bsoncxx/config/export.hpp": "#pragma once\n",
	})
}

func (m *mockCMake) Build(ctx context.Context, args ...string) error {
	m.steps = append(m.steps, "build")
	if m.failOn == "build" {
		return errBuild
	}
	libs := map[string]string{
		"src/bsoncxx/libbsoncxx-static.a":   "ar",
		"src/mongocxx/libmongocxx-static.a": "ar",
	}
	if m.shared {
		libs = map[string]string{
			"src/bsoncxx/libbsoncxx.so.3.4.0":   "elf",
			"src/mongocxx/libmongocxx.so.3.4.0": "elf",
		}
	}
	return writeTree(m.buildDir, libs)
}

func writeTree(root string, files map[string]string) error {
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}
